package nodes

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Nodeflow/internal/domain"
)

const (
	// KindModelSelector — тип ноды генерации изображения.
	KindModelSelector = "modelSelector"

	// Значения по умолчанию.
	DefaultModel            = "segmind/tiny-sd"
	DefaultInferenceSteps   = 10
	DefaultInferenceURL     = "http://localhost:7860"
	defaultInferenceTimeout = 300 * time.Second
	maxImageBody            = 32 * 1024 * 1024 // 32 MB
)

var (
	// ErrInference — сервис генерации вернул ошибку.
	ErrInference = errors.New("inference request failed")

	// ErrResponseTooLarge — ответ сервиса генерации превышает лимит размера.
	ErrResponseTooLarge = errors.New("response too large")
)

// InferenceConfig — настройки сервиса генерации изображений.
type InferenceConfig struct {
	// BaseURL — адрес сервиса (POST {BaseURL}/generate).
	BaseURL string

	// Timeout — таймаут одного запроса генерации.
	Timeout time.Duration

	// Client — HTTP клиент (nil — клиент по умолчанию с Timeout).
	Client *http.Client
}

// ModelSelectorNode — нода генерации изображения по текстовому описанию.
//
// Сама модель не загружается в процесс: нода обращается к внешнему
// сервису генерации.
//
// Запрос:
//
//	POST {BaseURL}/generate
//	{"model": "segmind/tiny-sd", "prompt": "a cat", "num_inference_steps": 10}
//
// Ответ: image/png или JSON {"image": "<base64 png>"}.
//
// Выход: (IMAGE).
type ModelSelectorNode struct {
	baseURL string
	client  *http.Client
	maxBody int64
}

// NewModelSelectorNode создаёт новую ModelSelectorNode.
func NewModelSelectorNode(cfg InferenceConfig) *ModelSelectorNode {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultInferenceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultInferenceTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &ModelSelectorNode{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		maxBody: maxImageBody,
	}
}

// Kind возвращает тип ноды.
func (n *ModelSelectorNode) Kind() string {
	return KindModelSelector
}

// Info возвращает метаданные ноды.
func (n *ModelSelectorNode) Info() Info {
	return Info{
		Required: map[string]InputSpec{
			"prompt": {Type: domain.TypeString},
			"model":  {Type: domain.TypeString, Default: DefaultModel},
		},
		Optional: map[string]InputSpec{
			"steps": {Type: domain.TypeInt, Default: DefaultInferenceSteps},
		},
		Outputs:  []domain.ValueType{domain.TypeImage},
		Category: "basic",
	}
}

// generateRequest — тело запроса к сервису генерации.
type generateRequest struct {
	Model             string `json:"model"`
	Prompt            string `json:"prompt"`
	NumInferenceSteps int    `json:"num_inference_steps"`
}

// Execute генерирует изображение.
func (n *ModelSelectorNode) Execute(ctx context.Context, in Inputs) ([]domain.Value, error) {
	req, err := n.parseInputs(in)
	if err != nil {
		return nil, err
	}

	httpReq, err := n.buildRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := n.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	img, err := n.parseResponse(resp)
	if err != nil {
		return nil, err
	}

	return single(domain.TypeImage, img), nil
}

// parseInputs собирает запрос генерации из входов ноды.
func (n *ModelSelectorNode) parseInputs(in Inputs) (*generateRequest, error) {
	prompt, err := in.String("prompt")
	if err != nil {
		return nil, err
	}

	model, err := in.StringOr("model", DefaultModel)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}

	steps, err := in.IntOr("steps", DefaultInferenceSteps)
	if err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidInput, steps)
	}

	return &generateRequest{
		Model:             model,
		Prompt:            prompt,
		NumInferenceSteps: steps,
	}, nil
}

// buildRequest создаёт HTTP запрос к сервису генерации.
func (n *ModelSelectorNode) buildRequest(ctx context.Context, body *generateRequest) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/generate", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png, application/json")

	return req, nil
}

// parseResponse извлекает PNG из ответа сервиса.
func (n *ModelSelectorNode) parseResponse(resp *http.Response) (*domain.Image, error) {
	// Лишний байт сверх лимита отличает обрезанный ответ от ответа ровно в лимит
	body, err := io.ReadAll(io.LimitReader(resp.Body, n.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	tooLarge := int64(len(body)) > n.maxBody
	if tooLarge {
		body = body[:n.maxBody]
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %w", ErrInference, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		})
	}

	if tooLarge {
		return nil, fmt.Errorf("%w: %w: response exceeds %d bytes", ErrInference, ErrResponseTooLarge, n.maxBody)
	}

	pngData := body
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var payload struct {
			Image string `json:"image"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", ErrInference, err)
		}
		pngData, err = decodeImageString(payload.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInference, err)
		}
	}

	img, err := domain.NewImageFromPNG(pngData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	return img, nil
}

// decodeImageString декодирует base64, в том числе в форме data URI.
func decodeImageString(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty image in response")
	}
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

// HTTPError — ошибка HTTP запроса к сервису генерации.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
