package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Save12sttm/Vaulto/internal/service"
)

func newSessionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Unlock once and run commands interactively",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			fmt.Fprintln(a.out, "session unlocked; type 'help' for commands")
			return a.sessionLoop(svc)
		},
	}
}

func (a *app) sessionLoop(svc *service.Service) error {
	for {
		fmt.Fprint(a.out, "pm> ")
		line, err := a.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "help":
			printSessionHelp(a)
		case "exit", "quit":
			return nil
		case "lock":
			svc.Lock()
			fmt.Fprintln(a.out, "vault locked")
		case "unlock":
			handleSessionError(a.unlock(svc))
		default:
			err := a.sessionCommand(svc, cmd, args)
			if errors.Is(err, service.ErrLocked) {
				fmt.Fprintln(os.Stderr, "vault is locked; type 'unlock' to continue")
				continue
			}
			handleSessionError(err)
		}
	}
}

func (a *app) sessionCommand(svc *service.Service, cmd string, args []string) error {
	switch cmd {
	case "list":
		records, err := svc.ListRecords()
		if err != nil {
			return err
		}
		printList(a.out, records)
	case "get", "show":
		if len(args) != 1 {
			return userErrorf("usage: %s <id>", cmd)
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		r, err := svc.GetRecord(id)
		if err != nil {
			return err
		}
		printRecord(a.out, r, cmd == "show", time.Now())
	case "add":
		if len(args) == 0 {
			return userError{msg: "usage: add <title> [username]"}
		}
		f := addFlags{title: args[0], itemType: "PASSWORD"}
		if len(args) > 1 {
			f.user = args[1]
		}
		if !svc.IsUnlocked() {
			return service.ErrLocked
		}
		id, err := a.addRecord(svc, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "record %d added\n", id)
	case "rm":
		if len(args) != 1 {
			return userError{msg: "usage: rm <id>"}
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := svc.DeleteRecord(id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "record %d deleted\n", id)
	case "gen":
		res, err := svc.Generator().GenerateFromOptions(generatorOptions(a))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t%.1f bits\t%s\n", res.Password, res.Entropy, res.Strength)
	case "history":
		for i, pw := range svc.Generator().History().List() {
			fmt.Fprintf(a.out, "%2d  %s\n", i+1, pw)
		}
	default:
		return userErrorf("unknown command: %s", cmd)
	}
	return nil
}

func handleSessionError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, describeError(err))
}

func printSessionHelp(a *app) {
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  list                    list records")
	fmt.Fprintln(a.out, "  get <id> | show <id>    show a record (show reveals secrets)")
	fmt.Fprintln(a.out, "  add <title> [username]  add a password record")
	fmt.Fprintln(a.out, "  rm <id>                 delete a record")
	fmt.Fprintln(a.out, "  gen | history           generate a password, list recent ones")
	fmt.Fprintln(a.out, "  lock | unlock           lock or unlock the vault")
	fmt.Fprintln(a.out, "  exit                    leave the session")
}
