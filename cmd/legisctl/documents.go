package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"legisdraft/api/internal/htmldiff"
	"legisdraft/api/internal/legislation"
	"legisdraft/api/internal/search"
)

func tocCmd() *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "toc <contents-url>",
		Short: "Print the table of contents of an upstream document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, fetcher, closeCache, err := upstream(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			page, ok := fetcher.Fetch(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("%w: %s", legislation.ErrContentsUnavailable, args[0])
			}
			toc := legislation.ParseTOC(page, args[0])
			if jsonFlag {
				return writeJSON(cmd.OutOrStdout(), toc.Items)
			}
			printTOC(cmd.OutOrStdout(), toc.Items)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print items as JSON")
	return cmd
}

func printTOC(w io.Writer, items []legislation.TocItem) {
	for _, item := range items {
		fmt.Fprintf(w, "%s%s  <%s>\n", strings.Repeat("  ", item.Level), item.Title, item.Href)
	}
}

func assembleCmd() *cobra.Command {
	var (
		htmlFlag   bool
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "assemble <contents-url>",
		Short: "Assemble a full document from its contents page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, fetcher, closeCache, err := upstream(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			doc, err := legislation.NewAssembler(fetcher, cfg.Fetch.Workers).Assemble(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputFlag != "" {
				file, err := os.Create(outputFlag)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				out = file
			}
			if htmlFlag {
				_, err = io.WriteString(out, doc.FullHTML)
				return err
			}
			return writeJSON(out, doc)
		},
	}

	cmd.Flags().BoolVar(&htmlFlag, "html", false, "write only the assembled HTML")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		queryFlag string
		typeFlag  string
		limitFlag int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List draft legislation from the upstream catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, fetcher, closeCache, err := upstream(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			catalog := legislation.NewCatalog(fetcher, cfg.UpstreamBaseURL, cfg.CatalogTypes, cfg.CatalogYears, cfg.Fetch.Workers)
			items := search.Filter(catalog.List(cmd.Context()), search.Query{Text: queryFlag, Type: typeFlag, Limit: limitFlag})
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", item.Year, item.DocumentID, item.Title, item.Href)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "title substring")
	cmd.Flags().StringVar(&typeFlag, "type", "", "legislation type, e.g. ukdsi")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "max items (0 = all)")
	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old.html> <new.html>",
		Short: "Print an insert/delete diff of two HTML files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldHTML, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read old: %w", err)
			}
			newHTML, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read new: %w", err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), htmldiff.Diff(string(oldHTML), string(newHTML)))
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
