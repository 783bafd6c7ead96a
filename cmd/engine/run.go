package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/events"
	"northscrape-engine/internal/pipeline"
)

var (
	runCategory  string
	runLocations []string
	runOut       string

	enrichIn  string
	enrichOut string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover and enrich leads for a category and locations",
	Long: `Runs one discovery pass and writes the leads when it finishes.

Examples:
  northscrape run --category Plumbers --location "Sudbury, ON" --location "Timmins, ON" --out leads.xlsx
  northscrape run --category Dentists --location "North Bay, ON" > leads.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, err := newEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		return runAndWrite(ctx, cmd, eng, runOut, func(ctx context.Context) (*pipeline.RunHandle, error) {
			return eng.runs.StartRun(ctx, domain.Query{Category: runCategory, Locations: runLocations})
		})
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill in phones and websites for a previously exported sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := readLeadsFile(enrichIn)
		if err != nil {
			return err
		}
		for _, bad := range res.Rejected {
			fmt.Fprintf(cmd.ErrOrStderr(), "rejected line %d: %s\n", bad.Line, bad.Reason)
		}

		eng, err := newEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		return runAndWrite(ctx, cmd, eng, enrichOut, func(ctx context.Context) (*pipeline.RunHandle, error) {
			return eng.runs.StartImport(ctx, filepath.Base(enrichIn), res.Leads)
		})
	},
}

func runAndWrite(ctx context.Context, cmd *cobra.Command, eng *engine, out string, start func(context.Context) (*pipeline.RunHandle, error)) error {
	// subscribe first so RunStarted is not missed
	ch, unsubscribe := eng.runs.Events().Subscribe()
	defer unsubscribe()

	h, err := start(ctx)
	if err != nil {
		return err
	}
	sum := followProgress(ctx, cmd.ErrOrStderr(), h, ch)

	if err := writeLeadsFile(out, cmd.OutOrStdout(), h.Leads()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d leads, %d enriched, %d failed, %d skipped, %d need review\n",
		sum.Status, sum.Total, sum.Enriched, sum.Failed, sum.Skipped, sum.NeedsReview)
	if sum.Status == domain.RunCancelled {
		return eris.New("run cancelled")
	}
	return nil
}

// followProgress prints the run's events until it finishes. Cancelling ctx
// cancels the run and keeps waiting for it to drain.
func followProgress(ctx context.Context, w io.Writer, h *pipeline.RunHandle, ch <-chan events.Event) domain.Summary {
	interrupted := ctx.Done()
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				ch = nil
				continue
			}
			if e.RunID == h.ID() {
				printEvent(w, e)
			}
		case <-interrupted:
			interrupted = nil
			if err := h.Cancel(); err != nil {
				zap.L().Debug("run: cancel", zap.Error(err))
			}
		case <-h.Done():
			for {
				select {
				case e, ok := <-ch:
					if ok && e.RunID == h.ID() {
						printEvent(w, e)
						continue
					}
				default:
				}
				return h.Summary()
			}
		}
	}
}

func printEvent(w io.Writer, e events.Event) {
	switch e.Kind {
	case events.RunStarted:
		if e.Summary != nil {
			fmt.Fprintf(w, "started %s (%s)\n", e.Summary.Query.String(), e.RunID)
		}
	case events.LeadDiscovered:
		fmt.Fprintf(w, "  found    %s, %s\n", e.Lead.Name, e.Lead.Address.City)
	case events.LeadEnriched:
		fmt.Fprintf(w, "  enriched %s  %s  %s\n", e.Lead.Name, orDash(e.Lead.Phone), orDash(e.Lead.Website))
	case events.LeadFailed:
		fmt.Fprintf(w, "  failed   %s: %s\n", e.Lead.Name, e.Reason)
	case events.LeadSkipped:
		fmt.Fprintf(w, "  skipped  %s\n", e.Lead.Name)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	runCmd.Flags().StringVar(&runCategory, "category", "", "business category, e.g. Plumbers")
	runCmd.Flags().StringArrayVar(&runLocations, "location", nil, "location to search (repeatable)")
	runCmd.Flags().StringVar(&runOut, "out", "", "output file, .csv or .xlsx (default CSV on stdout)")
	_ = runCmd.MarkFlagRequired("category")
	_ = runCmd.MarkFlagRequired("location")

	enrichCmd.Flags().StringVar(&enrichIn, "in", "", "sheet to enrich, .csv or .xlsx")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "", "output file, .csv or .xlsx (default CSV on stdout)")
	_ = enrichCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(runCmd, enrichCmd)
}
