// Command infratest runs black-box integration tests against a deployed
// PetClinic environment.
//
// Usage:
//
//	infratest run tests.yaml dev --output report.json
//	infratest validate tests.yaml
//	infratest version
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

const (
	exitPass      = 0
	exitFail      = 1
	exitInterrupt = 130
)

// exitError carries a process exit code out of a cobra RunE. A nil err
// means the reason was already printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:           "infratest",
		Short:         "Integration tests for deployed AWS infrastructure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)

	code := exitCode(ctx, rootCmd.ExecuteContext(ctx))
	stop()
	os.Exit(code)
}

func exitCode(ctx context.Context, err error) int {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", ee.err)
		}
		return ee.code
	case ctx.Err() != nil:
		fmt.Fprintln(os.Stderr, "Interrupted")
		return exitInterrupt
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFail
	}
	return exitPass
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "infratest %s\n", version)
		},
	}
}
