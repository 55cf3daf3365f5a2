package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/api"
	"github.com/jackzampolin/sourcecheck/internal/metrics"
	"github.com/jackzampolin/sourcecheck/internal/svcctx"
)

const metricsGroup = "metrics"

// RunsResponse lists recorded runs.
type RunsResponse struct {
	Runs []metrics.RunInfo `json:"runs"`
}

// HistoryResponse lists the recent probes of one source.
type HistoryResponse struct {
	SourceURL string           `json:"source_url"`
	Metrics   []metrics.Metric `json:"metrics"`
}

func limitParam(r *http.Request, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return def
}

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return true }
func (e *MetricsSummaryEndpoint) Group() string      { return metricsGroup }

// handler godoc
//
//	@Summary		Probe metrics summary
//	@Description	Summarizes one run (the latest by default) or, with all=true, every recorded probe
//	@Tags			metrics
//	@Produce		json
//	@Param			run_id	query		string	false	"Run ID"
//	@Param			source	query		string	false	"Source URL"
//	@Param			all		query		bool	false	"Summarize across runs"
//	@Success		200		{object}	metrics.Summary
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/metrics/summary [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := svcctx.MetricsQueryFrom(ctx)
	q := r.URL.Query()

	f := metrics.Filter{
		RunID:     q.Get("run_id"),
		SourceURL: q.Get("source"),
	}
	if all, _ := strconv.ParseBool(q.Get("all")); !all && f.RunID == "" {
		latest, err := query.LatestRunID(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if latest == "" {
			writeJSON(w, http.StatusOK, metrics.Summarize(nil))
			return
		}
		f.RunID = latest
	}

	summary, err := query.GetSummary(ctx, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var runID, source string
	var all bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize probe metrics for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if runID != "" {
				params.Set("run_id", runID)
			}
			if source != "" {
				params.Set("source", source)
			}
			if all {
				params.Set("all", "true")
			}
			path := "/api/metrics/summary"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp metrics.Summary
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}

			fmt.Printf("Check Summary\n")
			fmt.Printf("=============\n")
			if resp.RunID != "" {
				fmt.Printf("  Run:       %s\n", resp.RunID)
			}
			fmt.Printf("  Count:     %d\n", resp.Count)
			fmt.Printf("  Success:   %d\n", resp.SuccessCount)
			fmt.Printf("  Failures:  %d\n", resp.FailureCount)
			if len(resp.FailuresByTag) > 0 {
				tags := make([]string, 0, len(resp.FailuresByTag))
				for tag := range resp.FailuresByTag {
					tags = append(tags, tag)
				}
				sort.Strings(tags)
				for _, tag := range tags {
					fmt.Printf("    %-14s %d\n", tag, resp.FailuresByTag[tag])
				}
			}
			fmt.Println()
			fmt.Printf("  Avg Respond: %s\n", ms(resp.AvgRespondMS))
			fmt.Printf("  P50 Respond: %s\n", ms(resp.P50RespondMS))
			fmt.Printf("  P95 Respond: %s\n", ms(resp.P95RespondMS))
			fmt.Printf("  Max Respond: %s\n", ms(float64(resp.MaxRespondMS)))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest run)")
	cmd.Flags().StringVar(&source, "source", "", "Only this source URL")
	cmd.Flags().BoolVar(&all, "all", false, "Summarize across all runs")
	return cmd
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond)).Round(time.Millisecond)
}

// MetricsRunsEndpoint handles GET /api/metrics/runs.
type MetricsRunsEndpoint struct{}

func (e *MetricsRunsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/runs", e.handler
}

func (e *MetricsRunsEndpoint) RequiresInit() bool { return true }
func (e *MetricsRunsEndpoint) Group() string      { return metricsGroup }

// handler godoc
//
//	@Summary	List recorded runs
//	@Tags		metrics
//	@Produce	json
//	@Param		limit	query		int	false	"Maximum runs (default 20)"
//	@Success	200		{object}	RunsResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/metrics/runs [get]
func (e *MetricsRunsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	runs, err := svcctx.MetricsQueryFrom(r.Context()).Runs(r.Context(), limitParam(r, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []metrics.RunInfo{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (e *MetricsRunsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RunsResponse
			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/metrics/runs?limit=%d", limit), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs")
	return cmd
}

// SourceHistoryEndpoint handles GET /api/metrics/history.
type SourceHistoryEndpoint struct{}

func (e *SourceHistoryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/history", e.handler
}

func (e *SourceHistoryEndpoint) RequiresInit() bool { return true }
func (e *SourceHistoryEndpoint) Group() string      { return metricsGroup }

// handler godoc
//
//	@Summary	Probe history of a source
//	@Tags		metrics
//	@Produce	json
//	@Param		url		query		string	true	"Source URL"
//	@Param		limit	query		int		false	"Maximum probes (default 50)"
//	@Success	200		{object}	HistoryResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/metrics/history [get]
func (e *SourceHistoryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("url")
	if src == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	history, err := svcctx.MetricsQueryFrom(r.Context()).SourceHistory(r.Context(), src, limitParam(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []metrics.Metric{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SourceURL: src, Metrics: history})
}

func (e *SourceHistoryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <url>",
		Short: "Show recent probes of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"url": {args[0]}, "limit": {strconv.Itoa(limit)}}
			client := api.NewClient(getServerURL())
			var resp HistoryResponse
			if err := client.Get(cmd.Context(), "/api/metrics/history?"+params.Encode(), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum probes")
	return cmd
}
