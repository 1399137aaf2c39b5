package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Save12sttm/Vaulto/auth"
)

func newMasterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "master",
		Short: "Configure the master password",
	}
	cmd.AddCommand(newMasterSetCmd(a), newMasterChangeCmd(a))
	return cmd
}

func newMasterSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Set the master password on a new vault",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			pw, confirm, err := a.promptNewPassword("Enter master password: ", "Confirm master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(pw)
			defer zeroBytes(confirm)

			printStrength(a, string(pw))
			if err := svc.SetMaster(string(pw), string(confirm)); err != nil {
				return masterPolicyError(err)
			}

			fmt.Fprintf(a.out, "vault initialised at %s\n", a.cfg.Vault.Dir)
			return nil
		},
	}
}

func newMasterChangeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "change",
		Short: "Change the master password",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			oldPw, err := a.promptPassword("Old master password: ")
			if err != nil {
				return fmt.Errorf("read old master password: %w", err)
			}
			defer zeroBytes(oldPw)

			newPw, confirm, err := a.promptNewPassword("New master password: ", "Confirm new master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(newPw)
			defer zeroBytes(confirm)

			printStrength(a, string(newPw))
			if err := svc.ChangeMaster(string(oldPw), string(newPw), string(confirm)); err != nil {
				if errors.Is(err, auth.ErrIncorrectPassword) {
					return userError{msg: "old master password is incorrect"}
				}
				return masterPolicyError(err)
			}

			fmt.Fprintln(a.out, "master password updated")
			return nil
		},
	}
}

func masterPolicyError(err error) error {
	switch {
	case errors.Is(err, auth.ErrMismatch):
		return userError{msg: "passwords do not match"}
	case errors.Is(err, auth.ErrTooShort):
		return userErrorf("password does not meet policy requirements: at least %d characters", auth.MinMasterLength)
	}
	return err
}

func printStrength(a *app, pw string) {
	report := auth.MasterStrength(pw)
	fmt.Fprintf(a.out, "strength: %s (estimated crack time %s)\n", report.Level, report.CrackTime)
}
