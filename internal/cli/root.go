// Package cli implements the mdrimport command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mdrimport/internal/logging"
	"github.com/mesh-intelligence/mdrimport/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
}

var flags rootFlags

// NewRootCmd creates the top-level "mdrimport" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mdrimport",
		Short: "Import staged MDR source data into normalized tables",
		Long: "mdrimport copies harvested staging data of each source into its\n" +
			"normalized tables, in batches, and records every run in the monitor.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (env MDRIMPORT_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "SQLite data directory (env MDRIMPORT_DATA_DIR)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newRunCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	log, err := logging.New(types.LogConfig{})
	if err != nil {
		log = zap.NewNop()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runRoot(ctx, NewRootCmd(), os.Stderr, log)
	stop()
	_ = log.Sync()
	os.Exit(code)
}

// runRoot executes root and returns the exit code. A panic escaping a
// command is logged and reported as a user error.
func runRoot(ctx context.Context, root *cobra.Command, stderr io.Writer, log *zap.Logger) (code int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("command panicked",
				zap.String("command", root.Name()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			code = exitUserError
		}
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return ExitCode(err)
	}
	return exitSuccess
}

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// ExitCode maps a command error to the process exit code. Errors raised by
// cobra itself (unknown flags, missing arguments) are user errors.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
