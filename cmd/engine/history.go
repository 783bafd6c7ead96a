package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"northscrape-engine/internal/store"
)

var (
	historyLimit int
	historyJSON  bool
	catalogJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, storeDSN(cfg))
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		limit := historyLimit
		if limit == 0 {
			limit = cfg.History.Limit
		}
		hist, err := st.ListHistory(ctx, limit)
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(cmd.OutOrStdout(), hist)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tCATEGORY\tLOCATIONS\tLEADS\tRUN")
		for _, h := range hist {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				h.At.Local().Format(time.DateTime), h.Query.Category,
				strings.Join(h.Query.Locations, "; "), h.ResultCount, h.RunID)
		}
		return tw.Flush()
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the configured categories and locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if catalogJSON {
			return printJSON(cmd.OutOrStdout(), cfg.Catalog)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Categories:")
		for _, c := range cfg.Catalog.Categories {
			fmt.Fprintf(w, "  %s\n", c)
		}
		fmt.Fprintln(w, "Locations:")
		for _, l := range cfg.Catalog.Locations {
			fmt.Fprintf(w, "  %s\n", l)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "number of runs (default history.limit; -1 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON")
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print JSON")
	rootCmd.AddCommand(historyCmd, catalogCmd)
}
