package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/api"
	"github.com/jackzampolin/sourcecheck/internal/check"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/svcctx"
)

const checkGroup = "check"

const (
	eventWriteWait = 10 * time.Second
	eventPingEvery = 30 * time.Second
	eventBuffer    = 256
)

// StartCheckRequest selects the sources for a run. IDs wins over All.
type StartCheckRequest struct {
	IDs []string `json:"ids,omitempty"`
	// All checks every enabled source, optionally narrowed by Tag.
	All bool   `json:"all,omitempty"`
	Tag string `json:"tag,omitempty"`
}

// StopCheckResponse reports whether a run was stopped.
type StopCheckResponse struct {
	Stopped bool `json:"stopped"`
}

// StartCheckEndpoint handles POST /api/check/start.
type StartCheckEndpoint struct{}

func (e *StartCheckEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/check/start", e.handler
}

func (e *StartCheckEndpoint) RequiresInit() bool { return true }
func (e *StartCheckEndpoint) Group() string      { return checkGroup }

// handler godoc
//
//	@Summary		Start a validation run
//	@Description	Checks the named sources, or every enabled source when all is set. Only one run may be active.
//	@Tags			check
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StartCheckRequest	true	"Sources to check"
//	@Success		202		{object}	check.Run
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/check/start [post]
func (e *StartCheckEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req StartCheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids := req.IDs
	if len(ids) == 0 && req.All {
		enabled := true
		urls, err := svcctx.StoreFrom(ctx).SourceURLs(ctx, store.SourceFilter{Tag: req.Tag, Enabled: &enabled})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ids = urls
	}

	run, err := svcctx.SchedulerFrom(ctx).Start(ctx, ids)
	switch {
	case errors.Is(err, check.ErrRunActive):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, check.ErrNoSources):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (e *StartCheckEndpoint) Command(getServerURL func() string) *cobra.Command {
	var all, follow bool
	var tag string
	cmd := &cobra.Command{
		Use:   "start [url...]",
		Short: "Start a validation run on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("name source URLs or pass --all")
			}
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var run check.Run
			if err := client.Post(ctx, "/api/check/start", StartCheckRequest{IDs: args, All: all, Tag: tag}, &run); err != nil {
				return err
			}
			fmt.Printf("Run %s started: %d sources, %d workers\n", run.ID, len(run.IDs), run.Workers)
			if !follow {
				return nil
			}
			return followEvents(ctx, client, run.ID)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Check every enabled source")
	cmd.Flags().StringVar(&tag, "tag", "", "With --all, only sources with this tag or group")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Print progress until the run is done")
	return cmd
}

// StopCheckEndpoint handles POST /api/check/stop.
type StopCheckEndpoint struct{}

func (e *StopCheckEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/check/stop", e.handler
}

func (e *StopCheckEndpoint) RequiresInit() bool { return true }
func (e *StopCheckEndpoint) Group() string      { return checkGroup }

// handler godoc
//
//	@Summary		Stop the active validation run
//	@Description	Cancels in-flight probes and waits for workers to exit. Cancelled probes are not recorded.
//	@Tags			check
//	@Produce		json
//	@Success		200	{object}	StopCheckResponse
//	@Failure		504	{object}	ErrorResponse
//	@Router			/api/check/stop [post]
func (e *StopCheckEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	stopped, err := svcctx.SchedulerFrom(ctx).Stop(ctx)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, "run did not stop in time: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StopCheckResponse{Stopped: stopped})
}

func (e *StopCheckEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active validation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StopCheckResponse
			if err := client.Post(cmd.Context(), "/api/check/stop", nil, &resp); err != nil {
				return err
			}
			if resp.Stopped {
				fmt.Println("Run stopped")
			} else {
				fmt.Println("No run active")
			}
			return nil
		},
	}
}

// CheckStatusEndpoint handles GET /api/check/status.
type CheckStatusEndpoint struct{}

func (e *CheckStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/check/status", e.handler
}

func (e *CheckStatusEndpoint) RequiresInit() bool { return true }
func (e *CheckStatusEndpoint) Group() string      { return checkGroup }

// handler godoc
//
//	@Summary		Validation run status
//	@Description	Scheduler state, the active or last run, and the check log
//	@Tags			check
//	@Produce		json
//	@Success		200	{object}	check.Status
//	@Router			/api/check/status [get]
func (e *CheckStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, svcctx.SchedulerFrom(r.Context()).Status())
}

func (e *CheckStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show validation run status and the check log",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var status check.Status
			if err := client.Get(cmd.Context(), "/api/check/status", &status); err != nil {
				return err
			}
			return api.Output(status)
		},
	}
}

// CheckEventsEndpoint handles GET /api/check/events as a websocket.
type CheckEventsEndpoint struct {
	Upgrader websocket.Upgrader
}

func (e *CheckEventsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/check/events", e.handler
}

func (e *CheckEventsEndpoint) RequiresInit() bool { return true }
func (e *CheckEventsEndpoint) Group() string      { return checkGroup }

// handler godoc
//
//	@Summary		Stream run events
//	@Description	Websocket of progress, done and notice events as JSON text messages
//	@Tags			check
//	@Success		101
//	@Router			/api/check/events [get]
func (e *CheckEventsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sched := svcctx.SchedulerFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	// Subscribe before the handshake completes so a client that starts a run
	// right after connecting sees all of its events.
	events, unsubscribe := sched.Bus().Subscribe(eventBuffer)
	defer unsubscribe()

	conn, err := e.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	defer conn.Close()

	// The reader only watches for the client going away. Pongs keep the
	// read deadline ahead of the ping interval.
	conn.SetReadDeadline(time.Now().Add(2 * eventPingEvery))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * eventPingEvery))
	})
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingEvery)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if logger != nil {
					logger.Debug("event stream write failed", "error", err)
				}
				return
			}
		}
	}
}

func (e *CheckEventsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var untilDone bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow validation run events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if untilDone {
				return followEvents(cmd.Context(), client, "")
			}
			return client.Stream(cmd.Context(), "/api/check/events", func(msg []byte) error {
				var ev check.Event
				if err := json.Unmarshal(msg, &ev); err != nil {
					return err
				}
				PrintEvent(ev)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&untilDone, "until-done", false, "Exit after the next done event")
	return cmd
}

// errRunDone ends a followed stream.
var errRunDone = errors.New("run done")

// followEvents prints events until a done event for runID (any run when
// runID is empty) arrives.
func followEvents(ctx context.Context, client *api.Client, runID string) error {
	err := client.Stream(ctx, "/api/check/events", func(msg []byte) error {
		var ev check.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			return err
		}
		if runID != "" && ev.RunID != "" && ev.RunID != runID {
			return nil
		}
		PrintEvent(ev)
		if ev.Type == check.EventDone {
			return errRunDone
		}
		return nil
	})
	if errors.Is(err, errRunDone) {
		return nil
	}
	return err
}

// PrintEvent writes one run event as a line of CLI output.
func PrintEvent(ev check.Event) {
	switch ev.Type {
	case check.EventDone:
		fmt.Printf("done: %s\n", ev.Message)
	case check.EventNotice:
		fmt.Printf("notice: %s\n", ev.Message)
	default:
		fmt.Println(ev.Message)
	}
}
