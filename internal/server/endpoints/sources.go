package endpoints

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/api"
	"github.com/jackzampolin/sourcecheck/internal/schema"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/svcctx"
	"github.com/jackzampolin/sourcecheck/internal/types"
)

// maxImportBytes bounds source and rule import bodies.
const maxImportBytes = 16 << 20

const sourcesGroup = "sources"

// ListSourcesResponse is the response for listing sources.
type ListSourcesResponse struct {
	Sources []*types.BookSource `json:"sources"`
}

// SourceSelection names sources for bulk operations.
type SourceSelection struct {
	URLs    []string `json:"urls"`
	Enabled bool     `json:"enabled,omitempty"`
}

// ImportResponse reports how many records an import stored.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// ExportSourcesResponse carries exported sources and, when saved, the file.
type ExportSourcesResponse struct {
	Count   int                 `json:"count"`
	Path    string              `json:"path,omitempty"`
	Sources []*types.BookSource `json:"sources"`
}

// sourceFilter reads q, tag and enabled from the query string.
func sourceFilter(r *http.Request) (store.SourceFilter, error) {
	q := r.URL.Query()
	f := store.SourceFilter{Query: q.Get("q"), Tag: q.Get("tag")}
	if v := q.Get("enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid enabled value: %q", v)
		}
		f.Enabled = &enabled
	}
	return f, nil
}

func sourceQuery(path, query, tag, enabled string) string {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if tag != "" {
		params.Set("tag", tag)
	}
	if enabled != "" {
		params.Set("enabled", enabled)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return path
}

// ListSourcesEndpoint handles GET /api/sources.
type ListSourcesEndpoint struct{}

func (e *ListSourcesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sources", e.handler
}

func (e *ListSourcesEndpoint) RequiresInit() bool { return true }
func (e *ListSourcesEndpoint) Group() string      { return sourcesGroup }

// handler godoc
//
//	@Summary		List book sources
//	@Description	List sources in custom order, optionally filtered
//	@Tags			sources
//	@Produce		json
//	@Param			q		query		string	false	"Substring of name or URL"
//	@Param			tag		query		string	false	"Tag or group entry"
//	@Param			enabled	query		bool	false	"Only enabled or disabled sources"
//	@Success		200		{object}	ListSourcesResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/sources [get]
func (e *ListSourcesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	f, err := sourceFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sources, err := st.ListSources(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []*types.BookSource{}
	}
	writeJSON(w, http.StatusOK, ListSourcesResponse{Sources: sources})
}

func (e *ListSourcesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var query, tag, enabled string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List book sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListSourcesResponse
			if err := client.Get(cmd.Context(), sourceQuery("/api/sources", query, tag, enabled), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by name or URL substring")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag or group")
	cmd.Flags().StringVar(&enabled, "enabled", "", "Filter by enabled state (true or false)")
	return cmd
}

// GetSourceEndpoint handles GET /api/sources/source.
type GetSourceEndpoint struct{}

func (e *GetSourceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sources/source", e.handler
}

func (e *GetSourceEndpoint) RequiresInit() bool { return true }
func (e *GetSourceEndpoint) Group() string      { return sourcesGroup }

// handler godoc
//
//	@Summary	Get a book source
//	@Tags		sources
//	@Produce	json
//	@Param		url	query		string	true	"Source URL"
//	@Success	200	{object}	types.BookSource
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/sources/source [get]
func (e *GetSourceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("url")
	if id == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	src, err := svcctx.StoreFrom(r.Context()).GetSource(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (e *GetSourceEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <url>",
		Short: "Get a book source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var src types.BookSource
			if err := client.Get(cmd.Context(), "/api/sources/source?url="+url.QueryEscape(args[0]), &src); err != nil {
				return err
			}
			return api.Output(src)
		},
	}
}

// ImportSourcesEndpoint handles POST /api/sources/import.
type ImportSourcesEndpoint struct{}

func (e *ImportSourcesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sources/import", e.handler
}

func (e *ImportSourcesEndpoint) RequiresInit() bool { return true }
func (e *ImportSourcesEndpoint) Group() string      { return sourcesGroup }

// handler godoc
//
//	@Summary		Import book sources
//	@Description	Accepts one source or an array. Existing URLs are replaced.
//	@Tags			sources
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]types.BookSource	true	"Sources"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/sources/import [post]
func (e *ImportSourcesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	body, err := readImport(r, schema.BookSourceDoc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var sources []*types.BookSource
	if err := decodeOneOrMany(body, &sources); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := svcctx.StoreFrom(r.Context()).SaveSources(r.Context(), sources); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: len(sources)})
}

func (e *ImportSourcesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import book sources from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp ImportResponse
			if err := client.Post(cmd.Context(), "/api/sources/import", json.RawMessage(data), &resp); err != nil {
				return err
			}
			fmt.Printf("Imported %d sources\n", resp.Imported)
			return nil
		},
	}
}

// ExportSourcesEndpoint handles GET /api/sources/export.
type ExportSourcesEndpoint struct{}

func (e *ExportSourcesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sources/export", e.handler
}

func (e *ExportSourcesEndpoint) RequiresInit() bool { return true }
func (e *ExportSourcesEndpoint) Group() string      { return sourcesGroup }

// handler godoc
//
//	@Summary		Export book sources
//	@Description	Returns matching sources. With save=true they are also written to the exports directory.
//	@Tags			sources
//	@Produce		json
//	@Param			q		query		string	false	"Substring of name or URL"
//	@Param			tag		query		string	false	"Tag or group entry"
//	@Param			enabled	query		bool	false	"Only enabled or disabled sources"
//	@Param			save	query		bool	false	"Write an export file"
//	@Success		200		{object}	ExportSourcesResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/sources/export [get]
func (e *ExportSourcesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := sourceFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sources, err := svcctx.StoreFrom(ctx).ListSources(ctx, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []*types.BookSource{}
	}
	resp := ExportSourcesResponse{Count: len(sources), Sources: sources}
	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save {
		path, err := saveExport(r, "sources", sources)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Path = path
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ExportSourcesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var query, tag, enabled, outputFile string
	var save bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export book sources as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := sourceQuery("/api/sources/export", query, tag, enabled)
			if save {
				path += sep(path) + "save=true"
			}
			client := api.NewClient(getServerURL())
			var resp ExportSourcesResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if resp.Path != "" {
				fmt.Printf("Exported %d sources to %s\n", resp.Count, resp.Path)
				return nil
			}
			if outputFile != "" {
				return writeExportFile(outputFile, resp.Sources)
			}
			return api.OutputAs(api.OutputFormatJSON, resp.Sources)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by name or URL substring")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag or group")
	cmd.Flags().StringVar(&enabled, "enabled", "", "Filter by enabled state (true or false)")
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "Save to the server's exports directory")
	return cmd
}

// DeleteSourcesEndpoint handles POST /api/sources/delete.
type DeleteSourcesEndpoint struct{}

func (e *DeleteSourcesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sources/delete", e.handler
}

func (e *DeleteSourcesEndpoint) RequiresInit() bool { return true }
func (e *DeleteSourcesEndpoint) Group() string      { return sourcesGroup }

// handler godoc
//
//	@Summary	Delete book sources
//	@Tags		sources
//	@Accept		json
//	@Produce	json
//	@Param		body	body		SourceSelection	true	"Source URLs"
//	@Success	200		{object}	SourceSelection
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/sources/delete [post]
func (e *DeleteSourcesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeSourceSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := svcctx.StoreFrom(r.Context()).DeleteSources(r.Context(), sel.URLs...); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (e *DeleteSourcesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>...",
		Short: "Delete book sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/api/sources/delete", SourceSelection{URLs: args}, nil); err != nil {
				return err
			}
			fmt.Printf("Deleted %d sources\n", len(args))
			return nil
		},
	}
}

// EnableSourcesEndpoint handles POST /api/sources/enable.
type EnableSourcesEndpoint struct{}

func (e *EnableSourcesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sources/enable", e.handler
}

func (e *EnableSourcesEndpoint) RequiresInit() bool { return true }
func (e *EnableSourcesEndpoint) Group() string      { return sourcesGroup }

// handler godoc
//
//	@Summary	Enable or disable book sources
//	@Tags		sources
//	@Accept		json
//	@Produce	json
//	@Param		body	body		SourceSelection	true	"Source URLs and target state"
//	@Success	200		{object}	SourceSelection
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/sources/enable [post]
func (e *EnableSourcesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeSourceSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := svcctx.StoreFrom(r.Context()).SetSourcesEnabled(r.Context(), sel.Enabled, sel.URLs...); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (e *EnableSourcesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var disable bool
	cmd := &cobra.Command{
		Use:   "enable <url>...",
		Short: "Enable (or, with --disable, disable) book sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			sel := SourceSelection{URLs: args, Enabled: !disable}
			if err := client.Post(cmd.Context(), "/api/sources/enable", sel, nil); err != nil {
				return err
			}
			state := "Enabled"
			if disable {
				state = "Disabled"
			}
			fmt.Printf("%s %d sources\n", state, len(args))
			return nil
		},
	}
	cmd.Flags().BoolVar(&disable, "disable", false, "Disable instead of enable")
	return cmd
}

// readImport reads an import body and validates it against the named schema.
func readImport(r *http.Request, doc string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("request body is empty")
	}
	if err := schema.Validate(doc, body); err != nil {
		return nil, err
	}
	return body, nil
}

// decodeOneOrMany decodes a JSON object or array of objects into out.
func decodeOneOrMany[T any](body []byte, out *[]T) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var one T
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*out = []T{one}
	return nil
}

// errEmptySelection is returned for bulk operations naming nothing.
var errEmptySelection = errors.New("selection is empty")

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func decodeSourceSelection(r *http.Request) (SourceSelection, error) {
	var sel SourceSelection
	if err := decodeBody(r, &sel); err != nil {
		return sel, err
	}
	if len(sel.URLs) == 0 {
		return sel, errEmptySelection
	}
	return sel, nil
}

// saveExport writes records to a timestamped file in the exports directory.
func saveExport(r *http.Request, kind string, records any) (string, error) {
	h := svcctx.HomeFrom(r.Context())
	if h == nil {
		return "", errors.New("server has no home directory to export into")
	}
	if err := h.EnsureExportsDir(); err != nil {
		return "", err
	}
	path := h.ExportPath(kind, time.Now().Format("20060102_150405"))
	if err := writeExportFile(path, records); err != nil {
		return "", err
	}
	return path, nil
}

func writeExportFile(path string, records any) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// sep returns the separator for appending one more query parameter.
func sep(path string) string {
	if strings.Contains(path, "?") {
		return "&"
	}
	return "?"
}
