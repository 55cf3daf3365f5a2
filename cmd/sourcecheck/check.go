package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/api"
	"github.com/jackzampolin/sourcecheck/internal/check"
	"github.com/jackzampolin/sourcecheck/internal/server/endpoints"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/svcctx"
)

var (
	checkAll bool
	checkTag string
)

var checkCmd = &cobra.Command{
	Use:   "check [source-url...]",
	Short: "Validate sources locally without a server",
	Long: `Run a validation pass in this process against the home database.

Progress is printed as each source finishes. Ctrl+C stops the run; probes
that were cancelled are not recorded. The summary of the run is printed at
the end in the --output format.

Do not run this while 'sourcecheck serve' uses the same home directory; use
'sourcecheck api check start' instead.

Examples:
  sourcecheck check https://a.example       # Check one source
  sourcecheck check --all                   # Check every enabled source
  sourcecheck check --all --tag slow        # Check enabled sources tagged slow`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 0 && !checkAll {
			return errors.New("name source urls or pass --all")
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h, logger)
		if err != nil {
			return err
		}

		// The run outlives ctx so an interrupt can stop it cleanly.
		services, err := svcctx.Build(context.WithoutCancel(ctx), svcctx.BuildConfig{
			Home:   h,
			Config: mgr,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		defer services.Close()

		ids := args
		if len(ids) == 0 {
			enabled := true
			ids, err = services.Store.SourceURLs(ctx, store.SourceFilter{Tag: checkTag, Enabled: &enabled})
			if err != nil {
				return err
			}
		}

		events, unsubscribe := services.Scheduler.Bus().Subscribe(256)
		defer unsubscribe()

		run, err := services.Scheduler.Start(ctx, ids)
		if err != nil {
			return err
		}
		fmt.Printf("Checking %d sources (run %s)\n", len(run.IDs), run.ID)

		// The bus drops events for slow readers, so the done event alone
		// cannot end the loop.
		finished := make(chan struct{})
		go func() {
			services.Scheduler.Wait(context.Background())
			close(finished)
		}()

	follow:
		for {
			select {
			case <-ctx.Done():
				fmt.Println("Stopping run...")
				stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
				_, err := services.Scheduler.Stop(stopCtx)
				cancel()
				if err != nil {
					return fmt.Errorf("run did not stop: %w", err)
				}
				break follow
			case <-finished:
				drainEvents(events, run.ID)
				break follow
			case ev := <-events:
				if printRunEvent(ev, run.ID) {
					break follow
				}
			}
		}

		summary, err := services.MetricsQuery.RunSummary(context.WithoutCancel(ctx), run.ID)
		if err != nil {
			return err
		}
		return api.Output(summary)
	},
}

// printRunEvent prints ev if it belongs to runID and reports whether it
// ended the run.
func printRunEvent(ev check.Event, runID string) bool {
	if ev.RunID != "" && ev.RunID != runID {
		return false
	}
	endpoints.PrintEvent(ev)
	return ev.Type == check.EventDone
}

func drainEvents(events <-chan check.Event, runID string) {
	for {
		select {
		case ev := <-events:
			if printRunEvent(ev, runID) {
				return
			}
		default:
			return
		}
	}
}

func init() {
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "Check every enabled source")
	checkCmd.Flags().StringVar(&checkTag, "tag", "", "With --all, only check sources carrying this tag")

	rootCmd.AddCommand(checkCmd)
}
