package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/api"
	"github.com/jackzampolin/sourcecheck/internal/schema"
	"github.com/jackzampolin/sourcecheck/internal/store"
	"github.com/jackzampolin/sourcecheck/internal/svcctx"
	"github.com/jackzampolin/sourcecheck/internal/types"
)

const rulesGroup = "rules"

// ListRulesResponse is the response for listing replace rules.
type ListRulesResponse struct {
	Rules []types.ReplaceRule `json:"rules"`
}

// RuleGroupsResponse lists the distinct rule groups.
type RuleGroupsResponse struct {
	Groups []string `json:"groups"`
}

// RuleSelection names rules for bulk operations.
type RuleSelection struct {
	IDs      []int64 `json:"ids"`
	Enabled  bool    `json:"enabled,omitempty"`
	Position string  `json:"position,omitempty"` // "top" or "bottom" for moves
}

// ExportRulesResponse carries exported rules and, when saved, the file.
type ExportRulesResponse struct {
	Count int                 `json:"count"`
	Path  string              `json:"path,omitempty"`
	Rules []types.ReplaceRule `json:"rules"`
}

func decodeRuleSelection(r *http.Request) (RuleSelection, error) {
	var sel RuleSelection
	if err := decodeBody(r, &sel); err != nil {
		return sel, err
	}
	if len(sel.IDs) == 0 {
		return sel, errEmptySelection
	}
	return sel, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rule id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func rulesQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + url.Values{"q": {query}}.Encode()
}

// ListRulesEndpoint handles GET /api/rules.
type ListRulesEndpoint struct{}

func (e *ListRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/rules", e.handler
}

func (e *ListRulesEndpoint) RequiresInit() bool { return true }
func (e *ListRulesEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary		List replace rules
//	@Description	Rules in order. q matches name or pattern; "group:x" matches a group.
//	@Tags			rules
//	@Produce		json
//	@Param			q	query		string	false	"Search text or group:name"
//	@Success		200	{object}	ListRulesResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/rules [get]
func (e *ListRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rules, err := svcctx.StoreFrom(r.Context()).ListRules(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rules == nil {
		rules = []types.ReplaceRule{}
	}
	writeJSON(w, http.StatusOK, ListRulesResponse{Rules: rules})
}

func (e *ListRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List replace rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListRulesResponse
			if err := client.Get(cmd.Context(), rulesQuery("/api/rules", query), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", `Search text, or "group:<name>"`)
	return cmd
}

// RuleGroupsEndpoint handles GET /api/rules/groups.
type RuleGroupsEndpoint struct{}

func (e *RuleGroupsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/rules/groups", e.handler
}

func (e *RuleGroupsEndpoint) RequiresInit() bool { return true }
func (e *RuleGroupsEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary	List replace rule groups
//	@Tags		rules
//	@Produce	json
//	@Success	200	{object}	RuleGroupsResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/rules/groups [get]
func (e *RuleGroupsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	groups, err := svcctx.StoreFrom(r.Context()).RuleGroups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, RuleGroupsResponse{Groups: groups})
}

func (e *RuleGroupsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List replace rule groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RuleGroupsResponse
			if err := client.Get(cmd.Context(), "/api/rules/groups", &resp); err != nil {
				return err
			}
			for _, g := range resp.Groups {
				fmt.Println(g)
			}
			return nil
		},
	}
}

// GetRuleEndpoint handles GET /api/rules/{id}.
type GetRuleEndpoint struct{}

func (e *GetRuleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/rules/{id}", e.handler
}

func (e *GetRuleEndpoint) RequiresInit() bool { return true }
func (e *GetRuleEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary	Get a replace rule
//	@Tags		rules
//	@Produce	json
//	@Param		id	path		int	true	"Rule ID"
//	@Success	200	{object}	types.ReplaceRule
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/rules/{id} [get]
func (e *GetRuleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	rule, err := svcctx.StoreFrom(r.Context()).GetRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (e *GetRuleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a replace rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rule types.ReplaceRule
			if err := client.Get(cmd.Context(), "/api/rules/"+url.PathEscape(args[0]), &rule); err != nil {
				return err
			}
			return api.Output(rule)
		},
	}
}

// ImportRulesEndpoint handles POST /api/rules/import.
type ImportRulesEndpoint struct{}

func (e *ImportRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/rules/import", e.handler
}

func (e *ImportRulesEndpoint) RequiresInit() bool { return true }
func (e *ImportRulesEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary		Import replace rules
//	@Description	Accepts one rule or an array. Rules with a known id are replaced.
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]types.ReplaceRule	true	"Rules"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/rules/import [post]
func (e *ImportRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	body, err := readImport(r, schema.ReplaceRuleDoc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var rules []types.ReplaceRule
	if err := decodeOneOrMany(body, &rules); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := svcctx.StoreFrom(r.Context()).ImportRules(r.Context(), rules)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: len(saved)})
}

func (e *ImportRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import replace rules from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp ImportResponse
			if err := client.Post(cmd.Context(), "/api/rules/import", json.RawMessage(data), &resp); err != nil {
				return err
			}
			fmt.Printf("Imported %d rules\n", resp.Imported)
			return nil
		},
	}
}

// ExportRulesEndpoint handles GET /api/rules/export.
type ExportRulesEndpoint struct{}

func (e *ExportRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/rules/export", e.handler
}

func (e *ExportRulesEndpoint) RequiresInit() bool { return true }
func (e *ExportRulesEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary	Export replace rules
//	@Tags		rules
//	@Produce	json
//	@Param		q		query		string	false	"Search text or group:name"
//	@Param		save	query		bool	false	"Write an export file"
//	@Success	200		{object}	ExportRulesResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/rules/export [get]
func (e *ExportRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rules, err := svcctx.StoreFrom(r.Context()).ListRules(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rules == nil {
		rules = []types.ReplaceRule{}
	}
	resp := ExportRulesResponse{Count: len(rules), Rules: rules}
	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save {
		path, err := saveExport(r, "rules", rules)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Path = path
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ExportRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var query, outputFile string
	var save bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export replace rules as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rulesQuery("/api/rules/export", query)
			if save {
				path += sep(path) + "save=true"
			}
			client := api.NewClient(getServerURL())
			var resp ExportRulesResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if resp.Path != "" {
				fmt.Printf("Exported %d rules to %s\n", resp.Count, resp.Path)
				return nil
			}
			if outputFile != "" {
				return writeExportFile(outputFile, resp.Rules)
			}
			return api.OutputAs(api.OutputFormatJSON, resp.Rules)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", `Search text, or "group:<name>"`)
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "Save to the server's exports directory")
	return cmd
}

// DeleteRulesEndpoint handles POST /api/rules/delete.
type DeleteRulesEndpoint struct{}

func (e *DeleteRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/rules/delete", e.handler
}

func (e *DeleteRulesEndpoint) RequiresInit() bool { return true }
func (e *DeleteRulesEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary	Delete replace rules
//	@Tags		rules
//	@Accept		json
//	@Produce	json
//	@Param		body	body		RuleSelection	true	"Rule IDs"
//	@Success	200		{object}	RuleSelection
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/rules/delete [post]
func (e *DeleteRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeRuleSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := svcctx.StoreFrom(r.Context()).DeleteRules(r.Context(), sel.IDs...); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (e *DeleteRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete replace rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/api/rules/delete", RuleSelection{IDs: ids}, nil); err != nil {
				return err
			}
			fmt.Printf("Deleted %d rules\n", len(ids))
			return nil
		},
	}
}

// EnableRulesEndpoint handles POST /api/rules/enable.
type EnableRulesEndpoint struct{}

func (e *EnableRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/rules/enable", e.handler
}

func (e *EnableRulesEndpoint) RequiresInit() bool { return true }
func (e *EnableRulesEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary	Enable or disable replace rules
//	@Tags		rules
//	@Accept		json
//	@Produce	json
//	@Param		body	body		RuleSelection	true	"Rule IDs and target state"
//	@Success	200		{object}	RuleSelection
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/rules/enable [post]
func (e *EnableRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeRuleSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := svcctx.StoreFrom(r.Context()).SetRulesEnabled(r.Context(), sel.Enabled, sel.IDs...); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (e *EnableRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var disable bool
	cmd := &cobra.Command{
		Use:   "enable <id>...",
		Short: "Enable (or, with --disable, disable) replace rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/api/rules/enable", RuleSelection{IDs: ids, Enabled: !disable}, nil); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&disable, "disable", false, "Disable instead of enable")
	return cmd
}

// MoveRulesEndpoint handles POST /api/rules/move.
type MoveRulesEndpoint struct{}

func (e *MoveRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/rules/move", e.handler
}

func (e *MoveRulesEndpoint) RequiresInit() bool { return true }
func (e *MoveRulesEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary		Move replace rules
//	@Description	Moves the selection to the top or bottom of the order, keeping its relative order.
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RuleSelection	true	"Rule IDs and position"
//	@Success		200		{object}	RuleSelection
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/rules/move [post]
func (e *MoveRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeRuleSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := svcctx.StoreFrom(r.Context())
	switch sel.Position {
	case "top":
		err = st.MoveRulesToTop(r.Context(), sel.IDs...)
	case "bottom":
		err = st.MoveRulesToBottom(r.Context(), sel.IDs...)
	default:
		writeError(w, http.StatusBadRequest, `position must be "top" or "bottom"`)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (e *MoveRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var bottom bool
	cmd := &cobra.Command{
		Use:   "move <id>...",
		Short: "Move replace rules to the top (or, with --bottom, the bottom)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			sel := RuleSelection{IDs: ids, Position: "top"}
			if bottom {
				sel.Position = "bottom"
			}
			client := api.NewClient(getServerURL())
			return client.Post(cmd.Context(), "/api/rules/move", sel, nil)
		},
	}
	cmd.Flags().BoolVar(&bottom, "bottom", false, "Move to the bottom instead")
	return cmd
}

// RenumberRulesEndpoint handles POST /api/rules/renumber.
type RenumberRulesEndpoint struct{}

func (e *RenumberRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/rules/renumber", e.handler
}

func (e *RenumberRulesEndpoint) RequiresInit() bool { return true }
func (e *RenumberRulesEndpoint) Group() string      { return rulesGroup }

// handler godoc
//
//	@Summary	Renumber replace rule order
//	@Tags		rules
//	@Produce	json
//	@Success	200	{object}	ListRulesResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/rules/renumber [post]
func (e *RenumberRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if err := st.RenumberRules(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rules, err := st.ListRules(r.Context(), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListRulesResponse{Rules: rules})
}

func (e *RenumberRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "renumber",
		Short: "Renumber replace rule order to 1..n",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListRulesResponse
			if err := client.Post(cmd.Context(), "/api/rules/renumber", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Renumbered %d rules\n", len(resp.Rules))
			return nil
		},
	}
}
