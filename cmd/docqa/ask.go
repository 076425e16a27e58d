package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docqa/internal/document"
)

func createAskCommand(a *app) *cobra.Command {
	var question string
	var chunkSize, overlap int

	cmd := &cobra.Command{
		Use:   "ask <file>",
		Short: "Ask a question of one document",
		Long:  "Load a PDF, Markdown, text, HTML or office document, ask the question of every chunk and print the combined answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			chunking := a.chunking()
			if cmd.Flags().Changed("chunk-size") {
				chunking.MaxSize = chunkSize
			}
			if cmd.Flags().Changed("overlap") {
				chunking.Overlap = overlap
			}

			engine, _, err := a.engine(ctx, chunking)
			if err != nil {
				return err
			}

			doc, err := document.LoadFile(args[0], document.Options{PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext})
			if err != nil {
				return err
			}

			agg, err := engine.Answer(ctx, doc, question)
			if err != nil {
				return err
			}

			hist, err := a.openHistory()
			if err != nil {
				a.log.Warn("history unavailable", "error", err)
			} else if hist != nil {
				defer hist.Close()
				a.record(ctx, hist, agg, string(doc.Format))
			}

			if agg.Empty() {
				fmt.Fprintln(os.Stderr, "document has no text")
				return nil
			}
			fmt.Println(agg.String())
			fmt.Fprintf(os.Stderr, "\n%d chunks, %d failed\n", agg.TotalChunks, len(agg.Failures))
			if agg.Failed() {
				return fmt.Errorf("every chunk query failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Question to ask")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Maximum chunk size in characters (default $CHUNK_SIZE)")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "Characters shared between consecutive chunks (default $CHUNK_OVERLAP)")
	cmd.MarkFlagRequired("question")

	return cmd
}
