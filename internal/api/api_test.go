package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type testEndpoint struct {
	method, path string
	group        string
	needsInit    bool
	noCommand    bool
}

func (e *testEndpoint) Route() (string, string, http.HandlerFunc) {
	return e.method, e.path, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(e.path))
	}
}

func (e *testEndpoint) RequiresInit() bool { return e.needsInit }

func (e *testEndpoint) Command(getServerURL func() string) *cobra.Command {
	if e.noCommand {
		return nil
	}
	return &cobra.Command{Use: strings.TrimPrefix(filepath.Base(e.path), "/")}
}

type groupedEndpoint struct{ testEndpoint }

func (e *groupedEndpoint) Group() string { return e.group }

func TestRegistry_RegisterRoutes(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&testEndpoint{method: "GET", path: "/health"})
	reg.Register(&testEndpoint{method: "GET", path: "/api/things", needsInit: true})

	var wrapped []string
	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			wrapped = append(wrapped, r.URL.Path)
			next(w, r)
		}
	})

	for _, path := range []string{"/health", "/api/things"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Body.String() != path {
			t.Errorf("%s body = %q, want %q", path, rec.Body.String(), path)
		}
	}
	if len(wrapped) != 1 || wrapped[0] != "/api/things" {
		t.Errorf("wrapped = %v, want only /api/things", wrapped)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestRegistry_BuildCommandsGroups(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&testEndpoint{method: "GET", path: "/health"})
	reg.Register(&groupedEndpoint{testEndpoint{method: "GET", path: "/api/sources/list", group: "sources"}})
	reg.Register(&groupedEndpoint{testEndpoint{method: "POST", path: "/api/sources/import", group: "sources"}})
	reg.Register(&groupedEndpoint{testEndpoint{method: "GET", path: "/api/rules/list", group: "rules"}})
	reg.Register(&testEndpoint{method: "GET", path: "/swagger/ui", noCommand: true})

	root := reg.BuildCommands(func() string { return "http://localhost" })

	names := map[string][]string{}
	for _, cmd := range root.Commands() {
		var subs []string
		for _, sub := range cmd.Commands() {
			subs = append(subs, sub.Name())
		}
		names[cmd.Name()] = subs
	}

	if _, ok := names["health"]; !ok {
		t.Error("expected top-level health command")
	}
	if got := names["sources"]; len(got) != 2 {
		t.Errorf("sources subcommands = %v, want 2", got)
	}
	if got := names["rules"]; len(got) != 1 || got[0] != "list" {
		t.Errorf("rules subcommands = %v, want [list]", got)
	}
	if _, ok := names["ui"]; ok {
		t.Error("nil command should be skipped")
	}
	if len(root.Commands()) != 3 {
		t.Errorf("top-level commands = %d, want 3", len(root.Commands()))
	}
}

func TestOutputTo(t *testing.T) {
	data := map[string]any{"name": "Alpha", "count": 2}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
			t.Fatalf("OutputTo() error = %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if got["name"] != "Alpha" {
			t.Errorf("name = %v, want Alpha", got["name"])
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
			t.Fatalf("OutputTo() error = %v", err)
		}
		if !strings.Contains(buf.String(), "name: Alpha") {
			t.Errorf("yaml output = %q, want name: Alpha", buf.String())
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := OutputTo(&bytes.Buffer{}, "toml", data); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestOutputToFile(t *testing.T) {
	dir := t.TempDir()
	data := map[string]string{"title": "sourcecheck"}

	yamlPath := filepath.Join(dir, "doc.yaml")
	if err := OutputToFile(data, yamlPath); err != nil {
		t.Fatalf("OutputToFile(yaml) error = %v", err)
	}
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML map[string]string
	if err := yaml.Unmarshal(raw, &fromYAML); err != nil || fromYAML["title"] != "sourcecheck" {
		t.Errorf("yaml file = %q, err %v", raw, err)
	}

	jsonPath := filepath.Join(dir, "doc.json")
	if err := OutputToFile(data, jsonPath); err != nil {
		t.Fatalf("OutputToFile(json) error = %v", err)
	}
	raw, err = os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromJSON map[string]string
	if err := json.Unmarshal(raw, &fromJSON); err != nil || fromJSON["title"] != "sourcecheck" {
		t.Errorf("json file = %q, err %v", raw, err)
	}
}

func TestClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":"hello"}`))
	})
	mux.HandleFunc("POST /echo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "missing content type", http.StatusBadRequest)
			return
		}
		body := map[string]string{}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("GET /fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"a run is already active"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := NewClient(ts.URL + "/")
	ctx := context.Background()

	var got struct {
		Value string `json:"value"`
	}
	if err := client.Get(ctx, "/ok", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Value != "hello" {
		t.Errorf("Value = %q, want hello", got.Value)
	}

	var echo map[string]string
	if err := client.Post(ctx, "/echo", map[string]string{"a": "b"}, &echo); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if echo["a"] != "b" {
		t.Errorf("echo = %v, want a=b", echo)
	}

	err := client.Get(ctx, "/fail", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Get(/fail) error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusConflict || statusErr.Message != "a run is already active" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestClient_Stream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range []string{"one", "two", "three"} {
			conn.WriteMessage(websocket.TextMessage, []byte(msg))
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.ReadMessage()
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	t.Run("until close", func(t *testing.T) {
		var got []string
		err := client.Stream(context.Background(), "/", func(msg []byte) error {
			got = append(got, string(msg))
			return nil
		})
		if err != nil {
			t.Fatalf("Stream() error = %v", err)
		}
		if strings.Join(got, ",") != "one,two,three" {
			t.Errorf("messages = %v, want one,two,three", got)
		}
	})

	t.Run("callback error stops", func(t *testing.T) {
		stop := errors.New("stop")
		var n int
		err := client.Stream(context.Background(), "/", func(msg []byte) error {
			n++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("Stream() error = %v, want stop", err)
		}
		if n != 1 {
			t.Errorf("callback calls = %d, want 1", n)
		}
	})
}
