package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

func newKnowledgeBaseCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Aliases: []string{"knowledge-base"},
		Short:   "Manage the knowledge base spreadsheet",
	}

	cmd.AddCommand(
		newKBListCmd(rt),
		newKBAddCmd(rt),
		newKBImportCmd(rt),
		newKBExportCmd(rt),
		newKBClearCmd(rt),
	)
	return cmd
}

func newKBListCmd(rt *runtime) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print knowledge base entries",
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			var (
				entries []domain.KnowledgeBaseEntry
				err     error
			)
			if search != "" {
				entries, err = rt.services.KnowledgeBase.Search(cmd.Context(), search)
			} else {
				entries, err = rt.services.KnowledgeBase.List(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err = fmt.Fprintln(out, "knowledge base is empty")
				return err
			}
			_, err = fmt.Fprint(out, usecase.FormatKnowledgeBase(entries))
			return err
		}),
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only entries whose name contains this text")
	return cmd
}

func newKBAddCmd(rt *runtime) *cobra.Command {
	var (
		name     string
		price    float64
		platform string
		link     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append one entry",
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			entry := domain.KnowledgeBaseEntry{
				ProductName: strings.TrimSpace(name),
				UnitPrice:   price,
				Platform:    domain.Platform(strings.TrimSpace(platform)),
				SourceURL:   strings.TrimSpace(link),
			}
			if err := rt.services.KnowledgeBase.AddEntry(cmd.Context(), entry); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "added %s at %s\n", entry.ProductName, usecase.FormatRupiah(entry.UnitPrice))
			return err
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().Float64Var(&price, "price", 0, "unit price in rupiah")
	cmd.Flags().StringVar(&platform, "platform", "", "platform label")
	cmd.Flags().StringVar(&link, "link", "", "source URL")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("platform")
	return cmd
}

func newKBImportCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Append every row of a spreadsheet with the knowledge base columns",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := rt.services.KnowledgeBase.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows\n", n)
			return err
		}),
	}
}

func newKBExportCmd(rt *runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the knowledge base to an .xlsx file",
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			data, err := rt.services.KnowledgeBase.Export(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
			return err
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "knowledge_base_export.xlsx", "destination file")
	return cmd
}

func newKBClearCmd(rt *runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			if err := rt.services.KnowledgeBase.Clear(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "knowledge base cleared")
			return err
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
