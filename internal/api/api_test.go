package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/executor"
	"github.com/shaiso/Nodeflow/internal/nodes"
	"github.com/shaiso/Nodeflow/internal/repo"
)

// memRunStore — хранилище runs в памяти.
type memRunStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]domain.Run
}

func newMemRunStore() *memRunStore {
	return &memRunStore{runs: make(map[uuid.UUID]domain.Run)}
}

func (s *memRunStore) Create(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return repo.ErrAlreadyExists
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *memRunStore) Update(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return repo.ErrNotFound
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *memRunStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &run, nil
}

func (s *memRunStore) List(_ context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Run
	for _, run := range s.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

// fakeQueue запоминает опубликованные run ID.
type fakeQueue struct {
	published []uuid.UUID
	err       error
}

func (q *fakeQueue) PublishPromptQueued(_ context.Context, runID uuid.UUID) error {
	q.published = append(q.published, runID)
	return q.err
}

// runnerFunc адаптирует функцию к интерфейсу Runner.
type runnerFunc func(ctx context.Context, wf domain.Workflow) (*executor.Result, error)

func (f runnerFunc) Run(ctx context.Context, wf domain.Workflow) (*executor.Result, error) {
	return f(ctx, wf)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()

	if cfg.Runner == nil {
		registry := nodes.NewRegistry()
		registry.Register(nodes.NewTextInputNode())
		cfg.Runner = executor.New(executor.Config{Nodes: registry})
		if cfg.Catalog == nil {
			cfg.Catalog = registry
		}
	}
	cfg.Logger = testLogger()

	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) ErrorDetail {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestPostPrompt_Success(t *testing.T) {
	store := newMemRunStore()
	srv := newTestServer(t, Config{Runs: store})

	resp := postJSON(t, srv.URL+"/prompt", `{"prompt": {
		"1": {"class_type": "textInput", "inputs": {"text": "a cat"}},
		"2": {"class_type": "textInput", "inputs": {"text": ["1", 0]}}
	}}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Data PromptResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got := body.Data.Outputs["2"]; got != "a cat" {
		t.Errorf("expected output of node 2 to be %q, got %v", "a cat", got)
	}
	if len(body.Data.Order) != 2 || body.Data.Order[0] != "1" {
		t.Errorf("unexpected order: %v", body.Data.Order)
	}

	run, err := store.GetByID(context.Background(), body.Data.PromptID)
	if err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	if run.Status != domain.RunStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", run.Status)
	}
}

func TestPostPrompt_DanglingLinkWarning(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp := postJSON(t, srv.URL+"/prompt", `{"prompt": {
		"1": {"class_type": "textInput", "inputs": {"text": ["99", 0]}}
	}}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Data PromptResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Data.Warnings) != 1 || body.Data.Warnings[0].SourceID != "99" {
		t.Errorf("expected one warning for source 99, got %+v", body.Data.Warnings)
	}
	if got := body.Data.Outputs["1"]; got != "" {
		t.Errorf("expected default text, got %v", got)
	}
}

func TestPostPrompt_Malformed(t *testing.T) {
	srv := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"invalid json", `{"prompt":`, "invalid request body"},
		{"missing prompt", `{}`, "No prompt provided"},
		{"null prompt", `{"prompt": null}`, "No prompt provided"},
		{"prompt is array", `{"prompt": [1, 2]}`, ""},
		{"node not object", `{"prompt": {"1": 5}}`, ""},
		{"empty class_type", `{"prompt": {"1": {"class_type": ""}}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/prompt", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			detail := decodeError(t, resp)
			if detail.Code != ErrCodeMalformedWorkflow {
				t.Errorf("expected code %s, got %s", ErrCodeMalformedWorkflow, detail.Code)
			}
			if tt.msg != "" && detail.Message != tt.msg {
				t.Errorf("expected message %q, got %q", tt.msg, detail.Message)
			}
		})
	}
}

func TestPostPrompt_ExecutionErrors(t *testing.T) {
	store := newMemRunStore()
	srv := newTestServer(t, Config{Runs: store})

	tests := []struct {
		name   string
		body   string
		status int
		code   ErrorCode
	}{
		{
			name: "cycle",
			body: `{"prompt": {
				"1": {"class_type": "textInput", "inputs": {"text": ["2", 0]}},
				"2": {"class_type": "textInput", "inputs": {"text": ["1", 0]}}
			}}`,
			status: http.StatusUnprocessableEntity,
			code:   ErrorCode(executor.KindCircularDependency),
		},
		{
			name:   "unknown kind",
			body:   `{"prompt": {"1": {"class_type": "upscaler"}}}`,
			status: http.StatusInternalServerError,
			code:   ErrorCode(executor.KindUnknownNodeKind),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/prompt", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if detail := decodeError(t, resp); detail.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, detail.Code)
			}
		})
	}

	failed, _ := store.List(context.Background(), repo.RunFilter{Status: domain.RunStatusFailed})
	if len(failed) != len(tests) {
		t.Errorf("expected %d failed runs in history, got %d", len(tests), len(failed))
	}
	for _, run := range failed {
		if run.ErrorKind == "" || run.Outputs != nil {
			t.Errorf("failed run should carry error kind and no outputs: %+v", run)
		}
	}
}

func TestPostPrompt_ImageSerializedAsDataURI(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, wf domain.Workflow) (*executor.Result, error) {
		return &executor.Result{
			Order: []string{"1"},
			Outputs: map[string]domain.Value{
				"1": domain.NewValue(domain.TypeImage, &domain.Image{PNG: []byte("png")}),
			},
		}, nil
	})
	srv := newTestServer(t, Config{Runner: runner})

	resp := postJSON(t, srv.URL+"/prompt", `{"prompt": {"1": {"class_type": "modelSelector"}}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Data PromptResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	uri, _ := body.Data.Outputs["1"].(string)
	if uri != "data:image/png;base64,cG5n" {
		t.Errorf("unexpected data uri: %q", uri)
	}
}

func TestQueuePrompt(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, Config{})
		resp := postJSON(t, srv.URL+"/api/v1/prompts", `{"prompt": {"1": {"class_type": "textInput"}}}`)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", resp.StatusCode)
		}
	})

	t.Run("queued", func(t *testing.T) {
		store := newMemRunStore()
		queue := &fakeQueue{}
		srv := newTestServer(t, Config{Runs: store, Queue: queue})

		resp := postJSON(t, srv.URL+"/api/v1/prompts", `{"prompt": {"1": {"class_type": "textInput"}}}`)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}

		var body struct {
			Data RunResponse `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if body.Data.Status != domain.RunStatusPending {
			t.Errorf("expected PENDING, got %s", body.Data.Status)
		}
		if len(queue.published) != 1 || queue.published[0] != body.Data.ID {
			t.Errorf("expected run %s published, got %v", body.Data.ID, queue.published)
		}
	})

	t.Run("publish failure keeps run pending", func(t *testing.T) {
		store := newMemRunStore()
		queue := &fakeQueue{err: errors.New("broker down")}
		srv := newTestServer(t, Config{Runs: store, Queue: queue})

		resp := postJSON(t, srv.URL+"/api/v1/prompts", `{"prompt": {"1": {"class_type": "textInput"}}}`)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}

		pending, _ := store.List(context.Background(), repo.RunFilter{Status: domain.RunStatusPending})
		if len(pending) != 1 {
			t.Errorf("expected 1 pending run, got %d", len(pending))
		}
	})
}

func TestGetObjectInfo(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/object_info")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]struct {
		Input struct {
			Required map[string][]any `json:"required"`
		} `json:"input"`
		Output []string `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	info, ok := body[nodes.KindTextInput]
	if !ok {
		t.Fatalf("expected %s in object_info, got %v", nodes.KindTextInput, body)
	}
	text := info.Input.Required["text"]
	if len(text) == 0 || text[0] != "STRING" {
		t.Errorf("unexpected text input spec: %v", text)
	}
	if len(info.Output) != 1 || info.Output[0] != "STRING" {
		t.Errorf("unexpected outputs: %v", info.Output)
	}
}

func TestRunFromDomain_Duration(t *testing.T) {
	run := domain.NewRun(domain.Workflow{})
	if got := RunFromDomain(*run); got.DurationMs != 0 {
		t.Errorf("pending run should have no duration, got %d", got.DurationMs)
	}

	started := time.Now()
	finished := started.Add(250 * time.Millisecond)
	run.StartedAt, run.FinishedAt = &started, &finished
	if got := RunFromDomain(*run); got.DurationMs != 250 {
		t.Errorf("expected 250ms, got %d", got.DurationMs)
	}
}

func TestRunHistory(t *testing.T) {
	store := newMemRunStore()
	run := domain.NewRun(domain.Workflow{"1": {Kind: nodes.KindTextInput}})
	if err := store.Create(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, Config{Runs: store})

	t.Run("get", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/runs/" + run.ID.String())
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/runs/" + uuid.NewString())
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/runs/not-a-uuid")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("list by status", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/runs?status=PENDING&limit=10")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var body struct {
			Data  []RunResponse `json:"data"`
			Total int           `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Total != 1 || body.Data[0].ID != run.ID {
			t.Errorf("unexpected list: %+v", body)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/runs?status=DONE")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer(t, Config{CORSAllowOrigin: "*"})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/prompt", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected allow origin *, got %q", got)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil)))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestErrorCode_Status(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeMalformedWorkflow, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrorCode("NODE_INVOCATION"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.code.Status(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.code, tt.want, got)
		}
	}
}

func TestFailRepo(t *testing.T) {
	logger := testLogger()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"not found", repo.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"invalid state", repo.ErrInvalidState, http.StatusUnprocessableEntity, ErrCodeInvalidState},
		{"other", errors.New("db down"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if !failRepo(rec, logger, tt.err, "run not found") {
				t.Fatal("expected error to be handled")
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, body.Error.Code)
			}
		})
	}

	if failRepo(httptest.NewRecorder(), logger, nil, "") {
		t.Error("nil error should not be handled")
	}
}
