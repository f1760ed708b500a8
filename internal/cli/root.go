package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/curly/internal/logging"
)

var version = "0.1.0"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "curly",
		Short:   "A fluent, curl-like HTTP transfer tool",
		Version: version,
		Long: `Curly builds a single HTTP transfer from flags or a request file and
runs it synchronously: custom methods, headers, bodies, form fields, file
uploads (streamed above 1 MiB), redirects, proxies, TLS and timeouts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().Bool("debug", false, "Log transfer details to stderr")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(newRequestCmd())
	for _, method := range []string{"GET", "HEAD", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"} {
		root.AddCommand(newVerbCmd(method))
	}
	root.AddCommand(newRunCmd())

	return root
}

// Execute runs the command line and returns the first error.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func loggerFor(cmd *cobra.Command) *zap.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logging.NewWithWriter(cmd.ErrOrStderr(), debug)
}
