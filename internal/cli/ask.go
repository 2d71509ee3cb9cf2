package cli

import (
	"errors"
	"strings"

	"github.com/akolanti/TranscriptRAG/internal/app"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/akolanti/TranscriptRAG/internal/rag/retriever"
	"github.com/spf13/cobra"
)

type askOptions struct {
	noRAG     bool
	sources   []string
	sessionId string
	save      bool
	name      string
	topK      int
}

func newAskCmd(r *runner) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the transcripts",
		Long: `Retrieves the most relevant transcript excerpts and asks the configured model
to answer from them, citing each source. Use --no-rag to ask the model directly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *app.App) error {
				return runAsk(cmd, a, strings.Join(args, " "), opts)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.noRAG, "no-rag", false, "answer without transcript context")
	cmd.Flags().StringSliceVarP(&opts.sources, "source", "s", nil, "restrict retrieval to these transcript ids")
	cmd.Flags().StringVar(&opts.sessionId, "session", "", "continue a saved session")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save the turn to the session")
	cmd.Flags().StringVar(&opts.name, "name", "", "session name when saving")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "number of excerpts to retrieve")
	return cmd
}

func runAsk(cmd *cobra.Command, a *app.App, question string, opts askOptions) error {
	ctx := cmd.Context()
	filter, err := retriever.ValidateFilter(opts.sources)
	if err != nil {
		return err
	}
	if opts.sessionId != "" && !a.Sessions.Load(ctx, opts.sessionId) {
		return errors.New("session " + opts.sessionId + " not found")
	}

	result := a.Answerer.Ask(ctx, rag.AskRequest{
		Question: question,
		UseRAG:   !opts.noRAG,
		Filter:   filter,
		K:        opts.topK,
	})
	if result.Error {
		return errors.New(result.Response)
	}

	cmd.Println(result.Response)
	cmd.Println()
	cmd.Println("Sources:")
	cmd.Println(rag.FormatSources(result.Sources))

	if opts.save || opts.sessionId != "" {
		a.Sessions.AppendTurn(question, result.Response, result.Citations)
		id, err := a.Sessions.Save(ctx, opts.name)
		if err != nil {
			return err
		}
		cmd.Printf("\nSaved to session %s\n", id)
	}
	return nil
}
