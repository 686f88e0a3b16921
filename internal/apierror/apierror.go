// Package apierror классифицирует ошибки провайдеров моделей в фиксированную
// таксономию: HTTP-статус, машинный код, признак повторяемости и сообщение
// для пользователя. Повторы здесь не выполняются, только считается задержка.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidKey
	KindModelNotFound
	KindRateLimited
	KindServerError
	KindUnavailable
	KindTimeout
	KindNetwork
	KindContextLength
)

type kindInfo struct {
	name      string
	status    int
	code      string
	retryable bool
	message   string
}

var kinds = map[Kind]kindInfo{
	KindUnknown:       {"unknown", http.StatusInternalServerError, "UNKNOWN_ERROR", false, "An unexpected error occurred while contacting the AI provider."},
	KindInvalidKey:    {"invalid_key", http.StatusUnauthorized, "INVALID_API_KEY", false, "The API key was rejected by the provider. Check your key and try again."},
	KindModelNotFound: {"model_not_found", http.StatusNotFound, "MODEL_NOT_FOUND", false, "The requested model is not available for this API key."},
	KindRateLimited:   {"rate_limited", http.StatusTooManyRequests, "RATE_LIMITED", true, "The provider is rate limiting requests. Please wait and try again."},
	KindServerError:   {"server_error", http.StatusBadGateway, "PROVIDER_ERROR", true, "The AI provider returned a server error. Please try again."},
	KindUnavailable:   {"unavailable", http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", true, "The AI provider is temporarily unavailable."},
	KindTimeout:       {"timeout", http.StatusGatewayTimeout, "TIMEOUT", true, "The AI provider took too long to respond."},
	KindNetwork:       {"network_error", http.StatusServiceUnavailable, "NETWORK_ERROR", true, "Could not reach the AI provider. Check your connection."},
	KindContextLength: {"context_length_exceeded", http.StatusBadRequest, "CONTEXT_TOO_LONG", false, "The conversation is too long for this model. Start a new chat or unlink some entities."},
}

func (k Kind) String() string { return kinds[k].name }

// Status HTTP-статус для ответа клиенту.
func (k Kind) Status() int { return kinds[k].status }

func (k Kind) Code() string { return kinds[k].code }

func (k Kind) Retryable() bool { return kinds[k].retryable }

// Error классифицированная ошибка провайдера.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Status() int     { return e.Kind.Status() }
func (e *Error) Code() string    { return e.Kind.Code() }
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// New ошибка заданного вида с сообщением по умолчанию.
func New(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: kinds[kind].message, Err: err}
}

// Classify сначала смотрит на HTTP-статус из ошибок SDK, затем на текст
// ошибки. Уже классифицированная ошибка возвращается как есть.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTimeout, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(KindTimeout, provider, err)
	}

	if kind, ok := kindFromStatus(statusOf(err)); ok {
		return New(kind, provider, err)
	}
	// длина контекста приходит с 400, статус её не различает
	msg := strings.ToLower(err.Error())
	if isContextLength(msg) {
		return New(KindContextLength, provider, err)
	}
	return New(kindFromMessage(msg), provider, err)
}

func statusOf(err error) int {
	var oaAPI *openai.APIError
	if errors.As(err, &oaAPI) {
		return oaAPI.HTTPStatusCode
	}
	var oaReq *openai.RequestError
	if errors.As(err, &oaReq) {
		return oaReq.HTTPStatusCode
	}
	var anth *anthropic.Error
	if errors.As(err, &anth) {
		return anth.StatusCode
	}
	return 0
}

func kindFromStatus(status int) (Kind, bool) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindInvalidKey, true
	case status == http.StatusNotFound:
		return KindModelNotFound, true
	case status == http.StatusTooManyRequests:
		return KindRateLimited, true
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout, true
	case status == http.StatusServiceUnavailable || status == 529:
		return KindUnavailable, true
	case status >= 500:
		return KindServerError, true
	}
	return KindUnknown, false
}

func isContextLength(msg string) bool {
	return containsAny(msg, "context length", "context_length", "maximum context", "context window", "prompt is too long", "too many tokens")
}

func kindFromMessage(msg string) Kind {
	switch {
	case containsAny(msg, "invalid api key", "invalid_api_key", "incorrect api key", "invalid x-api-key", "authentication", "unauthorized", "401"):
		return KindInvalidKey
	case strings.Contains(msg, "model") && containsAny(msg, "not found", "does not exist", "not_found", "404"):
		return KindModelNotFound
	case containsAny(msg, "rate limit", "rate_limit", "too many requests", "429"):
		return KindRateLimited
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return KindTimeout
	case containsAny(msg, "overloaded", "unavailable", "503", "529"):
		return KindUnavailable
	case containsAny(msg, "internal server error", "bad gateway", "500", "502"):
		return KindServerError
	case containsAny(msg, "connection refused", "econnrefused", "connection reset", "no such host", "network", "eof"):
		return KindNetwork
	}
	return KindUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Response тело ответа с ошибкой.
type Response struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Provider string `json:"provider,omitempty"`
	// InvalidKey имя провайдера, чей ключ отклонён.
	InvalidKey string `json:"invalidKey,omitempty"`
	// RetryAfter секунды до повтора.
	RetryAfter int      `json:"retryAfter,omitempty"`
	Details    []string `json:"details,omitempty"`
}

// Response тело ответа для клиента; для повторяемых ошибок с задержкой
// первой попытки.
func (e *Error) Response() Response {
	resp := Response{
		Error:    e.Message,
		Code:     e.Code(),
		Provider: e.Provider,
	}
	if resp.Error == "" {
		resp.Error = kinds[e.Kind].message
	}
	if e.Kind == KindInvalidKey {
		resp.InvalidKey = e.Provider
	}
	if e.Retryable() {
		resp.RetryAfter = Seconds(BackoffDelay(1, DefaultBaseDelay, 0))
	}
	return resp
}

// ValidationResponse ответ на невалидный запрос.
func ValidationResponse(errs []string) Response {
	return Response{Error: "Invalid request", Code: "VALIDATION_ERROR", Details: errs}
}

// RateLimitResponse ответ на отказ собственного лимитера.
func RateLimitResponse(retryAfter time.Duration) Response {
	return Response{
		Error:      "Too many requests. Please slow down.",
		Code:       "RATE_LIMIT_EXCEEDED",
		RetryAfter: max(Seconds(retryAfter), 1),
	}
}

// Seconds округляет длительность вверх до целых секунд.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
