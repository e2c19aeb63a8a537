package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"printpoller/internal/infrastructure/pdf"
)

var extractPages string

var extractCmd = &cobra.Command{
	Use:   "extract <input.pdf> <output.pdf>",
	Short: "Write the selected pages of a PDF to a new file",
	Long: `extract applies a page range expression such as "1-3,5" to a local PDF,
the same way the poller does before dispatch.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		n, err := pdf.NewTransformer().ExtractPages(ctx, args[0], args[1], extractPages)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d pages to %s\n", n, args[1])
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractPages, "pages", "p", "all", "page range expression")
	rootCmd.AddCommand(extractCmd)
}
