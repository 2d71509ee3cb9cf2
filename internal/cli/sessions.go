package cli

import (
	"errors"
	"fmt"

	"github.com/akolanti/TranscriptRAG/internal/app"
	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/spf13/cobra"
)

func newSessionsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved chat sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List sessions, most recently updated first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withApp(cmd, func(a *app.App) error {
					summaries := a.Sessions.ListSessions(cmd.Context())
					if len(summaries) == 0 {
						cmd.Println("No saved sessions.")
						return nil
					}
					for _, s := range summaries {
						cmd.Printf("%s  %s  (%d messages, updated %s)\n", s.Id, s.Name, s.MessageCount,
							s.LastUpdated.Local().Format(config.SessionNameLayout))
						if s.Preview != "" {
							cmd.Printf("    %s\n", s.Preview)
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show [session-id]",
			Short: "Print a saved conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(a *app.App) error {
					record, ok := a.Sessions.Get(cmd.Context(), args[0])
					if !ok {
						return fmt.Errorf("session %s not found", args[0])
					}
					printSession(cmd, record)
					return nil
				})
			},
		},
		newExportCmd(r),
		&cobra.Command{
			Use:   "delete [session-id]",
			Short: "Delete a saved session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.withApp(cmd, func(a *app.App) error {
					if !a.Sessions.Delete(cmd.Context(), args[0]) {
						return fmt.Errorf("session %s not found", args[0])
					}
					cmd.Printf("Deleted session %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func newExportCmd(r *runner) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Write a session to the exports directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := sessionModel.ExportFormat(format)
			if !f.Valid() {
				return errors.New("format must be one of txt, md, json")
			}
			return r.withApp(cmd, func(a *app.App) error {
				path, ok := a.Sessions.Export(cmd.Context(), args[0], f)
				if !ok {
					return fmt.Errorf("could not export session %s", args[0])
				}
				cmd.Println(path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(sessionModel.ExportTxt), "txt, md or json")
	return cmd
}

func printSession(cmd *cobra.Command, s sessionModel.Session) {
	cmd.Printf("%s (%s)\n", s.SessionName, s.SessionId)
	cmd.Printf("Started %s, %d messages\n", s.StartTime.Local().Format(config.SessionNameLayout), s.MessageCount)
	for i, t := range s.Conversation {
		cmd.Printf("\n[%d] Q: %s\n", i+1, t.Question)
		cmd.Printf("    A: %s\n", t.Response)
		if len(t.Sources) > 0 {
			cmd.Printf("    Sources: %s\n", rag.FormatSources(rag.GroupCitations(t.Sources)))
		}
	}
}
