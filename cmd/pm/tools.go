package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Save12sttm/Vaulto/internal/backup"
	"github.com/Save12sttm/Vaulto/internal/config"
	"github.com/Save12sttm/Vaulto/internal/generator"
	"github.com/Save12sttm/Vaulto/internal/health"
	"github.com/Save12sttm/Vaulto/internal/service"
	"github.com/Save12sttm/Vaulto/internal/totp"
)

func generatorOptions(a *app) generator.Options {
	opts := generator.DefaultOptions()
	opts.Length = a.cfg.Generator.Length
	return opts
}

func newGenCmd(a *app) *cobra.Command {
	var (
		length           int
		count            int
		noUpper          bool
		noLower          bool
		noDigits         bool
		noSymbols        bool
		excludeAmbiguous bool
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random password",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := generatorOptions(a)
			if cmd.Flags().Changed("length") {
				opts.Length = length
			}
			opts.Uppercase = !noUpper
			opts.Lowercase = !noLower
			opts.Digits = !noDigits
			opts.Symbols = !noSymbols
			opts.ExcludeAmbiguous = excludeAmbiguous

			g := generator.New()
			for range max(count, 1) {
				res, err := g.GenerateFromOptions(opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%.1f bits\t%s\n", res.Password, res.Entropy, res.Strength)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&length, "length", generator.DefaultLength, "password length (clamped to 4..128)")
	fl.IntVar(&count, "count", 1, "number of passwords")
	fl.BoolVar(&noUpper, "no-upper", false, "exclude upper-case letters")
	fl.BoolVar(&noLower, "no-lower", false, "exclude lower-case letters")
	fl.BoolVar(&noDigits, "no-digits", false, "exclude digits")
	fl.BoolVar(&noSymbols, "no-symbols", false, "exclude symbols")
	fl.BoolVar(&excludeAmbiguous, "exclude-ambiguous", false, "exclude il1Lo0O")
	return cmd
}

func newTOTPCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "totp <secret>",
		Short: "Print the current TOTP code for a Base32 secret",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := totp.Decode(args[0])
			if err != nil {
				return err
			}

			if !watch {
				now := time.Now().Unix()
				fmt.Fprintf(a.out, "%s (%ds left)\n",
					totp.GenerateCode(secret, now, totp.DefaultStep, totp.DefaultDigits),
					totp.RemainingSeconds(now, totp.DefaultStep))
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			for snap := range totp.Watch(ctx, secret, nil, time.Second) {
				fmt.Fprintf(a.out, "\r%s  %2ds left", snap.Code, snap.Remaining)
			}
			fmt.Fprintln(a.out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "refresh every second until interrupted")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the vault",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case service.FormatJSON, service.FormatEncrypted, service.FormatCSV:
			default:
				return userErrorf("unknown export format %q: use json, csv or encrypted", format)
			}

			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			var passphrase string
			if format == service.FormatEncrypted {
				pw, confirm, err := a.promptNewPassword("Backup passphrase: ", "Confirm backup passphrase: ")
				if err != nil {
					return err
				}
				defer zeroBytes(pw)
				defer zeroBytes(confirm)
				if string(pw) != string(confirm) {
					return userError{msg: "passphrases do not match"}
				}
				if len(pw) == 0 {
					return userError{msg: "backup passphrase must not be empty"}
				}
				passphrase = string(pw)
			}

			data, err := svc.Export(format, passphrase)
			if err != nil {
				return err
			}
			if out == "" {
				out = exportFileName(format, time.Now())
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if format != service.FormatEncrypted {
				fmt.Fprintln(os.Stderr, "warning: the export is not encrypted")
			}
			fmt.Fprintf(a.out, "exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", service.FormatEncrypted, "json, csv or encrypted")
	cmd.Flags().StringVar(&out, "out", "", "output file (default vaulto_backup_<time>.<ext>)")
	return cmd
}

func exportFileName(format string, t time.Time) string {
	if format == service.FormatCSV {
		return "vaulto_export_" + t.Format("2006-01-02_15-04-05") + ".csv"
	}
	return backup.FileName(format == service.FormatEncrypted, t)
}

func newImportCmd(a *app) *cobra.Command {
	var file string
	var fallback bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON or encrypted backup",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return userError{msg: "import requires --file"}
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return userErrorf("read %s: %v", file, err)
			}

			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			pw, err := a.promptPassword("Backup passphrase (empty for plaintext): ")
			if err != nil {
				return fmt.Errorf("read backup passphrase: %w", err)
			}
			defer zeroBytes(pw)

			res, err := svc.Import(data, backup.ImportOptions{
				Passphrase:             string(pw),
				AllowPlaintextFallback: fallback,
			})
			switch {
			case errors.Is(err, backup.ErrNotEncrypted):
				return userError{msg: "backup is not encrypted; retry with an empty passphrase or --plaintext-fallback"}
			case err != nil:
				return err
			}

			if res.PlaintextFallback {
				fmt.Fprintln(os.Stderr, "warning: backup was not encrypted")
			}
			fmt.Fprintf(a.out, "imported %d record(s)\n", len(res.Records))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "backup file")
	cmd.Flags().BoolVar(&fallback, "plaintext-fallback", false, "accept a plaintext backup even when a passphrase is given")
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Audit stored passwords",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.unlockedService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			report, err := svc.Health(ctx)
			if err != nil {
				return err
			}
			printHealth(a, report)
			return nil
		},
	}
	cmd.Flags().Bool("breach-check", false, "look passwords up in Have I Been Pwned")
	return cmd
}

func printHealth(a *app, r health.Report) {
	fmt.Fprintf(a.out, "security score: %d (%s)\n", r.Score, r.Rating())
	fmt.Fprintf(a.out, "passwords analysed: %d\n", r.Total)

	section := func(name string, findings []health.Finding) {
		fmt.Fprintf(a.out, "%s: %d\n", name, len(findings))
		for _, f := range findings {
			line := fmt.Sprintf("  [%d] %s (strength %d)", f.ID, f.Title, f.Strength)
			if f.Breaches > 0 {
				line += fmt.Sprintf(", seen %d times", f.Breaches)
			}
			fmt.Fprintln(a.out, line)
		}
	}
	section("weak", r.Weak)
	section("reused", r.Reused)
	section("old", r.Old)
	if a.cfg.Health.BreachCheck {
		section("breached", r.Breached)
		for _, e := range r.BreachErrors {
			fmt.Fprintf(os.Stderr, "breach lookup failed for record %d: %v\n", e.ID, e.Err)
		}
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to a file",
		Args:  noArgs,
		// --config names the file to create, so it must not be read first.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, "")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return userErrorf("%s already exists; use --force to overwrite", path)
			}

			written, err := config.Write(filepath.Clean(path), a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", written)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
