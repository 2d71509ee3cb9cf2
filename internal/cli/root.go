// Package cli is the operator command line: reindexing, one-shot questions,
// index maintenance, saved sessions and the MCP server.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/akolanti/TranscriptRAG/internal/app"
	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"github.com/spf13/cobra"
)

// Opener builds the components a command needs. release is called when the command is done.
type Opener func(ctx context.Context, configPath string) (a *app.App, release func() error, err error)

// DefaultOpener loads settings and connects every backend. Logs go to stderr
// so stdout stays clean for command output and the MCP transport.
func DefaultOpener(ctx context.Context, configPath string) (*app.App, func() error, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger_i.InitWithWriter(os.Stderr, settings.IsProd(), settings.LogLevel)
	a, err := app.Build(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

type runner struct {
	open       Opener
	configPath string
}

// withApp opens the components, runs fn and releases them again.
func (r *runner) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, release, err := r.open(cmd.Context(), r.configPath)
	if err != nil {
		return fmt.Errorf("starting up: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			cmd.PrintErrln("shutdown:", err)
		}
	}()
	return fn(a)
}

func NewRootCmd(open Opener) *cobra.Command {
	r := &runner{open: open}
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Search and chat with programme transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&r.configPath, "config", "c", config.DefaultConfigFile, "path to the yaml config file")

	root.AddCommand(
		newReindexCmd(r),
		newAskCmd(r),
		newStatsCmd(r),
		newClearCmd(r),
		newSessionsCmd(r),
		newMCPCmd(r),
	)
	return root
}

func Execute(ctx context.Context) error {
	return NewRootCmd(DefaultOpener).ExecuteContext(ctx)
}
