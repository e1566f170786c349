package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Nodeflow/internal/executor"
	"github.com/shaiso/Nodeflow/internal/repo"
)

// ErrorCode — код ошибки API.
//
// Помимо кодов ниже кодом ответа служит класс ошибки выполнения
// (executor.ErrorKind): CIRCULAR_DEPENDENCY, NODE_INVOCATION и т.д.
type ErrorCode string

const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeMalformedWorkflow  ErrorCode = "MALFORMED_WORKFLOW"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState       ErrorCode = "INVALID_STATE"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

var codeStatus = map[ErrorCode]int{
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeMalformedWorkflow:  http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInternalError:      http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// Status возвращает HTTP статус для кода. Неизвестные коды — 500.
func (c ErrorCode) Status() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — тело успешного ответа. Total заполняется только для списков.
type DataResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Success отправляет 200 с данными.
func Success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: data})
}

// Accepted отправляет 202: задача принята в обработку.
func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List отправляет 200 со списком.
func List(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, DataResponse{Data: data, Total: total})
}

// NoContent отправляет 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Fail отправляет ошибку со статусом, соответствующим коду.
func Fail(w http.ResponseWriter, code ErrorCode, message string) {
	failWithStatus(w, code.Status(), code, message)
}

func failWithStatus(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// InternalError логирует err и отправляет 500 без подробностей.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Fail(w, ErrCodeInternalError, "internal server error")
}

// failRepo отвечает на ошибку хранилища. Возвращает false, если err == nil.
func failRepo(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repo.ErrNotFound):
		Fail(w, ErrCodeNotFound, notFoundMsg)
	case errors.Is(err, repo.ErrInvalidState):
		Fail(w, ErrCodeInvalidState, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}

// failExecution отвечает на ошибку выполнения workflow.
//
// Ошибки уровня графа — 422, ошибки нод — 500. Код ответа равен классу ошибки.
func failExecution(w http.ResponseWriter, logger *slog.Logger, err error) {
	var execErr *executor.ExecutionError
	if !errors.As(err, &execErr) {
		logger.Error("execution failed", "error", err)
		failWithStatus(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	if execErr.Kind.IsGraphLevel() {
		status = http.StatusUnprocessableEntity
	}

	logger.Error("execution failed",
		"kind", execErr.Kind,
		"node_id", execErr.NodeID,
		"error", err,
	)
	failWithStatus(w, status, ErrorCode(execErr.Kind), execErr.Error())
}
