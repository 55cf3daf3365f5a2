package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"github.com/swaggo/swag"

	"github.com/jackzampolin/sourcecheck/internal/api"

	// Registers the OpenAPI document with swag.
	_ "github.com/jackzampolin/sourcecheck/docs"
)

// SwaggerEndpoint serves the OpenAPI document with its host set to the
// address the request reached.
type SwaggerEndpoint struct {
	// SpecPath is a generated swagger.json. When it cannot be read the
	// document compiled into the docs package is served.
	SpecPath string

	once sync.Once
	doc  map[string]any
	err  error
}

func (e *SwaggerEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/swagger.json", e.handler
}

func (e *SwaggerEndpoint) RequiresInit() bool { return false }

// load reads the document once.
func (e *SwaggerEndpoint) load() (map[string]any, error) {
	e.once.Do(func() {
		data, err := os.ReadFile(e.SpecPath)
		if err != nil || e.SpecPath == "" {
			doc, docErr := swag.ReadDoc()
			if docErr != nil {
				e.err = docErr
				return
			}
			data = []byte(doc)
		}
		e.err = json.Unmarshal(data, &e.doc)
	})
	return e.doc, e.err
}

// handler godoc
//
//	@Summary	OpenAPI document
//	@Tags		docs
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	500	{object}	ErrorResponse
//	@Router		/swagger.json [get]
func (e *SwaggerEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	doc, err := e.load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "openapi document unavailable: "+err.Error())
		return
	}

	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	if r.Host != "" {
		out["host"] = r.Host
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, out)
}

func (e *SwaggerEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "swagger",
		Short: "Fetch the OpenAPI document from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc map[string]any
			if err := client.Get(cmd.Context(), "/swagger.json", &doc); err != nil {
				return err
			}
			if outputFile != "" {
				return api.OutputToFile(doc, outputFile)
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write to this file (.json, .yaml or .yml)")
	return cmd
}

// SwaggerUIEndpoint serves a Swagger UI page for /swagger.json.
type SwaggerUIEndpoint struct{}

func (e *SwaggerUIEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/swagger", e.handler
}

func (e *SwaggerUIEndpoint) RequiresInit() bool { return false }

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>sourcecheck API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>SwaggerUIBundle({url: '/swagger.json', dom_id: '#ui', deepLinking: true});</script>
</body>
</html>`

func (e *SwaggerUIEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(swaggerUIPage))
}

// Command is nil: the page is only useful in a browser.
func (e *SwaggerUIEndpoint) Command(getServerURL func() string) *cobra.Command { return nil }

// GetSwaggerSpecPath looks for docs/swagger/swagger.json next to the
// executable, then relative to the working directory.
func GetSwaggerSpecPath() string {
	if exe, err := os.Executable(); err == nil {
		specPath := filepath.Join(filepath.Dir(exe), "docs", "swagger", "swagger.json")
		if _, err := os.Stat(specPath); err == nil {
			return specPath
		}
	}
	return filepath.Join("docs", "swagger", "swagger.json")
}
