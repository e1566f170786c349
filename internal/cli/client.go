package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// defaultTimeout покрывает синхронное выполнение workflow с генерацией изображений.
const defaultTimeout = 10 * time.Minute

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// UnresolvedInput — неразрешённая ссылка из ответа API.
type UnresolvedInput struct {
	NodeID   string `json:"node_id"`
	Input    string `json:"input"`
	SourceID string `json:"source_id"`
	Slot     int    `json:"slot"`
}

// PromptResponse — результат синхронного выполнения.
type PromptResponse struct {
	PromptID string            `json:"prompt_id"`
	Outputs  map[string]any    `json:"outputs"`
	Order    []string          `json:"order"`
	Warnings []UnresolvedInput `json:"warnings"`
}

// RunResponse — run из API.
type RunResponse struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Workflow   map[string]any    `json:"workflow,omitempty"`
	Order      []string          `json:"order,omitempty"`
	Outputs    map[string]any    `json:"outputs,omitempty"`
	Warnings   []UnresolvedInput `json:"warnings,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	StartedAt  string            `json:"started_at,omitempty"`
	FinishedAt string            `json:"finished_at,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

// NodeInfo — описание типа ноды из /object_info.
type NodeInfo struct {
	Input struct {
		Required map[string][]any `json:"required"`
		Optional map[string][]any `json:"optional,omitempty"`
	} `json:"input"`
	Output   []string `json:"output"`
	Category string   `json:"category,omitempty"`
}

// --- Request types ---

// promptRequest — тело запроса на выполнение workflow.
type promptRequest struct {
	Prompt json.RawMessage `json:"prompt"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	Status string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, возвращённая API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Nodeflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// --- Prompts ---

// SubmitPrompt выполняет workflow синхронно.
func (c *Client) SubmitPrompt(workflow json.RawMessage) (*PromptResponse, error) {
	var resp PromptResponse
	err := c.post("/prompt", promptRequest{Prompt: workflow}, &resp)
	return &resp, err
}

// QueuePrompt ставит workflow в очередь.
func (c *Client) QueuePrompt(workflow json.RawMessage) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/prompts", promptRequest{Prompt: workflow}, &run)
	return &run, err
}

// --- Runs ---

// ListRuns возвращает историю runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", opts.Offset))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+url.PathEscape(id), &run)
	return &run, err
}

// --- Nodes ---

// ListNodes возвращает описания всех зарегистрированных типов нод.
// /object_info отвечает без обёртки data.
func (c *Client) ListNodes() (map[string]NodeInfo, error) {
	resp, err := c.do(http.MethodGet, "/object_info", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var infos map[string]NodeInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return infos, nil
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}

	return apiErr
}
