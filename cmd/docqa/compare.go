package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docqa/internal/document"
	"github.com/dgallion1/docqa/internal/qa"
	"github.com/dgallion1/docqa/internal/report"
	"github.com/dgallion1/docqa/internal/tokens"
)

func createCompareCommand(a *app) *cobra.Command {
	var pdfPath, mdPath, question, outDir string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Ask the same question of a PDF and its Markdown conversion",
		Long:  "Answer the question from the raw PDF text and from the converted Markdown, print both with token counts, and optionally write report.md.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			engine, _, err := a.engine(ctx, a.chunking())
			if err != nil {
				return err
			}
			loadOpts := document.Options{PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext}

			pdfDoc, err := document.LoadFile(pdfPath, loadOpts)
			if err != nil {
				return err
			}
			mdDoc, err := document.LoadFile(mdPath, loadOpts)
			if err != nil {
				return err
			}

			hist, err := a.openHistory()
			if err != nil {
				a.log.Warn("history unavailable", "error", err)
				hist = nil
			}
			if hist != nil {
				defer hist.Close()
			}

			answers := make([]*qa.AggregateAnswer, 2)
			for i, doc := range []*document.Document{pdfDoc, mdDoc} {
				agg, err := engine.Answer(ctx, doc, question)
				if err != nil {
					return err
				}
				a.record(ctx, hist, agg, string(doc.Format))
				answers[i] = agg
			}

			rawPDF, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", pdfPath, err)
			}
			counts := tokens.NewCounter().Compare(rawPDF, mdDoc.Text)

			fmt.Printf("Answer from PDF:\n%s\n\n", answers[0])
			fmt.Printf("Answer from Markdown:\n%s\n\n", answers[1])
			fmt.Print(counts.String())

			if outDir == "" {
				return nil
			}
			path, err := report.Write(outDir, report.Comparison{
				Question:    question,
				Model:       engine.Options().Model,
				PDFSource:   pdfPath,
				MDSource:    mdPath,
				PDFAnswer:   answers[0],
				MDAnswer:    answers[1],
				Tokens:      &counts,
				GeneratedAt: time.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Source PDF")
	cmd.Flags().StringVar(&mdPath, "markdown", "", "Markdown conversion of the PDF")
	cmd.Flags().StringVarP(&question, "question", "q", "", "Question to ask")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for report.md (omit to skip the report)")
	cmd.MarkFlagRequired("pdf")
	cmd.MarkFlagRequired("markdown")
	cmd.MarkFlagRequired("question")

	return cmd
}
