package cli

import (
	"github.com/akolanti/TranscriptRAG/internal/app"
	"github.com/akolanti/TranscriptRAG/internal/mcpserver"
	"github.com/spf13/cobra"
)

func newMCPCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the transcript tools over MCP (stdio)",
		Long: `Starts a Model Context Protocol server on stdin/stdout exposing
search_transcripts, ask_transcripts and list_sessions.

Client configuration:
  {
    "mcpServers": {
      "transcripts": {"command": "/path/to/ragctl", "args": ["mcp"]}
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(a *app.App) error {
				server, err := mcpserver.NewServer(&mcpserver.Ports{
					Retriever: a.Retriever,
					Answerer:  a.Answerer,
					Sessions:  a.Sessions,
				})
				if err != nil {
					return err
				}
				return server.Run(cmd.Context())
			})
		},
	}
}
