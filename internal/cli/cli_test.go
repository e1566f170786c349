package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// bodyRecorder запоминает тело последнего запроса.
type bodyRecorder struct {
	mu   sync.Mutex
	body []byte
}

func (b *bodyRecorder) record(r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.body = data
	b.mu.Unlock()
}

func (b *bodyRecorder) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.body
}

// fakeAPI — минимальный API сервер для тестов CLI.
func fakeAPI(t *testing.T) (*httptest.Server, *bodyRecorder) {
	t.Helper()

	lastBody := &bodyRecorder{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /prompt", func(w http.ResponseWriter, r *http.Request) {
		lastBody.record(r)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data": {
			"prompt_id": "p-1",
			"outputs": {"1": "a cat", "2": "data:image/png;base64,iVBORw0KGgo="},
			"order": ["1", "2"],
			"warnings": [{"node_id": "2", "input": "seed", "source_id": "9", "slot": 0}]
		}}`)
	})
	mux.HandleFunc("POST /api/v1/prompts", func(w http.ResponseWriter, r *http.Request) {
		lastBody.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, `{"data": {"id": "r-1", "status": "PENDING", "created_at": "2026-01-01T00:00:00Z"}}`)
	})
	mux.HandleFunc("GET /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "FAILED" {
			t.Errorf("expected status filter FAILED, got %q", r.URL.RawQuery)
		}
		io.WriteString(w, `{"data": [{"id": "r-2", "status": "FAILED", "error_kind": "CIRCULAR_DEPENDENCY", "created_at": "x"}], "total": 1}`)
	})
	mux.HandleFunc("GET /api/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error": {"code": "NOT_FOUND", "message": "run not found"}}`)
	})
	mux.HandleFunc("GET /object_info", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"textInput": {"input": {"required": {"text": ["STRING", {"default": ""}]}}, "output": ["STRING"], "category": "basic"},
			"output": {"input": {"required": {"image": ["IMAGE"]}}, "output": ["STRING"], "category": "io"}
		}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, lastBody
}

// execute запускает команду с аргументами.
func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func newTestFns(url string, jsonMode bool) (func() *Client, func() *Output, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(url) }
	outputFn := func() *Output { return NewOutputTo(&stdout, &stderr, jsonMode) }
	return clientFn, outputFn, &stdout, &stderr
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmit_Sync(t *testing.T) {
	srv, lastBody := fakeAPI(t)
	clientFn, outputFn, stdout, stderr := newTestFns(srv.URL, false)

	path := writeFile(t, `{"1": {"class_type": "textInput", "inputs": {"text": "a cat"}}}`)
	if err := execute(t, NewSubmitCmd(clientFn, outputFn), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sent map[string]map[string]any
	if err := json.Unmarshal(lastBody.bytes(), &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if _, ok := sent["prompt"]["1"]; !ok {
		t.Errorf("bare workflow should be wrapped in prompt: %s", lastBody.bytes())
	}

	if !strings.Contains(stdout.String(), "a cat") {
		t.Errorf("expected text output in table, got:\n%s", stdout)
	}
	if !strings.Contains(stdout.String(), "<image,") {
		t.Errorf("expected image to be abbreviated, got:\n%s", stdout)
	}
	if !strings.Contains(stderr.String(), "Prompt executed: p-1") {
		t.Errorf("expected success message, got:\n%s", stderr)
	}
	if !strings.Contains(stderr.String(), "missing node 9") {
		t.Errorf("expected warning about node 9, got:\n%s", stderr)
	}
}

func TestSubmit_AsyncWithPromptEnvelope(t *testing.T) {
	srv, lastBody := fakeAPI(t)
	clientFn, outputFn, _, stderr := newTestFns(srv.URL, false)

	path := writeFile(t, `{"prompt": {"1": {"class_type": "textInput"}}, "client_id": "abc"}`)
	if err := execute(t, NewSubmitCmd(clientFn, outputFn), path, "--async"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sent map[string]map[string]any
	if err := json.Unmarshal(lastBody.bytes(), &sent); err != nil {
		t.Fatal(err)
	}
	if _, ok := sent["prompt"]["1"]; !ok {
		t.Errorf("prompt envelope should be unwrapped, got %s", lastBody.bytes())
	}
	if !strings.Contains(stderr.String(), "Prompt queued: r-1") {
		t.Errorf("expected queued message, got:\n%s", stderr)
	}
}

func TestSubmit_InvalidFile(t *testing.T) {
	srv, _ := fakeAPI(t)
	clientFn, outputFn, _, _ := newTestFns(srv.URL, false)

	path := writeFile(t, `not json`)
	if err := execute(t, NewSubmitCmd(clientFn, outputFn), path); err == nil {
		t.Error("expected error for invalid JSON file")
	}
}

func TestRunsList_JSON(t *testing.T) {
	srv, _ := fakeAPI(t)
	clientFn, outputFn, stdout, _ := newTestFns(srv.URL, true)

	if err := execute(t, NewRunsCmd(clientFn, outputFn), "list", "--status", "FAILED"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var runs []RunResponse
	if err := json.Unmarshal(stdout.Bytes(), &runs); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(runs) != 1 || runs[0].ErrorKind != "CIRCULAR_DEPENDENCY" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestRunsShow_NotFound(t *testing.T) {
	srv, _ := fakeAPI(t)
	clientFn, outputFn, _, _ := newTestFns(srv.URL, false)

	err := execute(t, NewRunsCmd(clientFn, outputFn), "show", "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "NOT_FOUND" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestNodes_Table(t *testing.T) {
	srv, _ := fakeAPI(t)
	clientFn, outputFn, stdout, _ := newTestFns(srv.URL, false)

	if err := execute(t, NewNodesCmd(clientFn, outputFn)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got:\n%s", stdout)
	}
	if !strings.HasPrefix(lines[2], "output") || !strings.HasPrefix(lines[3], "textInput") {
		t.Errorf("kinds should be sorted, got:\n%s", stdout)
	}
	if !strings.Contains(lines[3], "text:STRING") {
		t.Errorf("expected text:STRING in row, got %q", lines[3])
	}
}

func TestFormatOutput(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "-"},
		{"string", "hello", "hello"},
		{"number", float64(3), "3"},
		{"long", strings.Repeat("x", 100), strings.Repeat("x", maxOutputWidth-3) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatOutput(tt.in); got != tt.want {
				t.Errorf("formatOutput(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractWorkflow(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantIDs []string
	}{
		{"bare workflow", `{"1": {"class_type": "textInput"}}`, []string{"1"}},
		{"envelope", `{"prompt": {"1": {"class_type": "textInput"}}, "client_id": "abc"}`, []string{"1"}},
		{"node named prompt", `{"prompt": {"class_type": "textInput"}, "2": {"class_type": "output", "inputs": {"image": ["prompt", 0]}}}`, []string{"2", "prompt"}},
		{"node named prompt with kind", `{"prompt": {"kind": "textInput"}}`, []string{"prompt"}},
		{"non-object prompt", `{"prompt": "text"}`, []string{"prompt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := extractWorkflow([]byte(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var wf map[string]json.RawMessage
			if err := json.Unmarshal(raw, &wf); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(wf) != len(tt.wantIDs) {
				t.Fatalf("expected nodes %v, got %s", tt.wantIDs, raw)
			}
			for _, id := range tt.wantIDs {
				if _, ok := wf[id]; !ok {
					t.Errorf("missing node %q in %s", id, raw)
				}
			}
		})
	}
}
