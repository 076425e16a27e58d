package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docqa/internal/document"
	"github.com/dgallion1/docqa/internal/tokens"
)

func createTokensCommand(a *app) *cobra.Command {
	var pdfPath, mdPath string

	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Compare token counts of a raw PDF and its Markdown conversion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawPDF, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", pdfPath, err)
			}
			mdDoc, err := document.LoadFile(mdPath, document.Options{})
			if err != nil {
				return err
			}

			counts := tokens.NewCounter().Compare(rawPDF, mdDoc.Text)
			fmt.Print(counts.String())
			if saved := counts.Saved(); saved > 0 {
				fmt.Printf("\nMarkdown saves %s tokens\n", tokens.FormatNumber(saved))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Source PDF")
	cmd.Flags().StringVar(&mdPath, "markdown", "", "Markdown conversion of the PDF")
	cmd.MarkFlagRequired("pdf")
	cmd.MarkFlagRequired("markdown")

	return cmd
}
