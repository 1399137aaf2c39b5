package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Save12sttm/Vaulto/internal/config"
	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/internal/logger"
	"github.com/Save12sttm/Vaulto/internal/service"
)

var version = "0.2.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func userErrorf(format string, args ...any) error {
	return userError{msg: fmt.Sprintf(format, args...)}
}

// app carries what PersistentPreRunE resolved for the running command.
type app struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
	in      *bufio.Reader
	out     io.Writer
	// tty selects no-echo password reads on stdin.
	tty bool
}

func main() {
	a := &app{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		tty: term.IsTerminal(int(os.Stdin.Fd())),
	}
	root := newRootCmd(a)
	err := root.Execute()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	handleError(err)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pm",
		Short:         "Vaulto local password manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, a.cfgFile)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError{msg: err.Error()}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default <user config dir>/vaulto/vaulto.yaml)")
	pf.String("dir", "", "vault directory")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("keystore", "", "keystore backend: auto, keychain, file, memory")

	cmd.AddCommand(
		newVersionCmd(a),
		newMasterCmd(a),
		newAddCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newRmCmd(a),
		newGenCmd(a),
		newTOTPCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newHealthCmd(a),
		newConfigCmd(a),
		newSessionCmd(a),
	)
	return cmd
}

// setup resolves the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cmd, cfgFile)
	if err != nil {
		return userErrorf("%v", err)
	}
	lg, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = lg
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, version)
		},
	}
}

func handleError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, describeError(err))
	os.Exit(exitCode(err))
}

// exitCode is 1 for errors the user can act on and 2 for everything else.
func exitCode(err error) int {
	var uerr userError
	if errors.As(err, &uerr) {
		return 1
	}
	switch fault.KindOf(err) {
	case fault.Validation, fault.Authentication, fault.Format, fault.RateLimited:
		return 1
	}
	return 2
}

func describeError(err error) string {
	if exitCode(err) == 1 {
		return err.Error()
	}
	return "unexpected error: " + err.Error()
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 {
		return userError{msg: "unexpected positional arguments"}
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return userErrorf("expected %d argument(s), got %d", n, len(args))
		}
		return nil
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userErrorf("invalid record id %q", s)
	}
	return id, nil
}

func (a *app) openService() (*service.Service, error) {
	svc, err := service.New(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return svc, nil
}

// unlockedService opens the vault and prompts for the master password.
func (a *app) unlockedService() (*service.Service, error) {
	svc, err := a.openService()
	if err != nil {
		return nil, err
	}

	needs, err := svc.NeedsMasterSetup()
	if err != nil {
		svc.Close()
		return nil, err
	}
	if needs {
		svc.Close()
		return nil, userError{msg: "vault header not found; run pm master set first"}
	}

	if err := a.unlock(svc); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func (a *app) unlock(svc *service.Service) error {
	pw, err := a.promptPassword("Enter master password: ")
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	defer zeroBytes(pw)

	if err := svc.Unlock(string(pw)); err != nil {
		if errors.Is(err, service.ErrTooManyAttempts) {
			return err
		}
		if fault.KindOf(err) == fault.Authentication {
			return userError{msg: "failed to unlock vault"}
		}
		return err
	}
	return nil
}

// promptPassword reads without echo from a terminal, or a plain line when
// stdin is piped.
func (a *app) promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !a.tty {
		line, err := a.readLine()
		if err != nil {
			return nil, err
		}
		return []byte(line), nil
	}
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// promptNewPassword asks twice; the caller validates the pair.
func (a *app) promptNewPassword(prompt, confirmPrompt string) ([]byte, []byte, error) {
	pw, err := a.promptPassword(prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("read password: %w", err)
	}
	confirm, err := a.promptPassword(confirmPrompt)
	if err != nil {
		zeroBytes(pw)
		return nil, nil, fmt.Errorf("read confirmation password: %w", err)
	}
	return pw, confirm, nil
}

func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
