package cli

import (
	"errors"

	"github.com/akolanti/TranscriptRAG/internal/app"
	"github.com/spf13/cobra"
)

func newReindexCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [document-id...]",
		Short: "Chunk, embed and index transcripts",
		Long: `Re-reads the transcripts directory and replaces the indexed chunks of every
document. Pass document ids to reindex only those transcripts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *app.App) error {
				report, err := a.Reindex(cmd.Context(), args)
				if err != nil {
					return err
				}
				cmd.Printf("Indexed %d documents (%d chunks)\n", len(report.Indexed), report.TotalChunks)
				for _, f := range report.Failed {
					cmd.Printf("  skipped %s: %s\n", f.DocumentId, f.Reason)
				}
				if len(report.Indexed) == 0 && len(report.Failed) > 0 {
					return errors.New("no document could be indexed")
				}
				return nil
			})
		},
	}
}

func newStatsCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show what the vector index holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(a *app.App) error {
				stats, err := a.Index.Stats(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("Collection: %s\n", stats.CollectionName)
				cmd.Printf("Backend:    %s\n", stats.Backend)
				cmd.Printf("Chunks:     %d\n", stats.TotalChunks)
				return nil
			})
		},
	}
}

func newClearCmd(r *runner) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every indexed chunk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the index without --yes")
			}
			return r.withApp(cmd, func(a *app.App) error {
				if err := a.Clear(cmd.Context()); err != nil {
					return err
				}
				cmd.Println("Index cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm clearing the index")
	return cmd
}
