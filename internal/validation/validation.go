// Package validation проверяет форму входящего запроса чата до любой
// сборки контекста. Ошибки возвращаются списком сообщений, а не error.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"storyForge/internal/entity"
	"storyForge/internal/sanitizer"
)

const (
	MaxMessageChars   = 50_000
	MaxRequestBytes   = 1 << 20
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Roles допустимые роли сообщений.
var Roles = []string{"user", "assistant", "system"}

// Providers допустимые провайдеры.
var Providers = []string{ProviderAnthropic, ProviderOpenAI}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest входящий запрос чата.
type ChatRequest struct {
	Messages           []Message `json:"messages"`
	Provider           string    `json:"provider,omitempty"`
	APIKey             string    `json:"apiKey,omitempty"`
	Model              string    `json:"model,omitempty"`
	PinnedEntityIDs    []string  `json:"pinnedEntityIds,omitempty"`
	MentionedEntityIDs []string  `json:"mentionedEntityIds,omitempty"`
	LinkedCharacter    string    `json:"linkedCharacter,omitempty"`
	LinkedWorld        string    `json:"linkedWorld,omitempty"`
	LinkedProject      string    `json:"linkedProject,omitempty"`
	ModeInstruction    string    `json:"modeInstruction,omitempty"`
	SessionSetup       string    `json:"sessionSetup,omitempty"`
	Mode               string    `json:"mode,omitempty"`
}

// Result итог проверки. Clean заполнен только для валидного запроса.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []string     `json:"errors,omitempty"`
	Clean  *ChatRequest `json:"-"`
}

// IDs разобранные идентификаторы из чистого запроса.
type IDs struct {
	Linked    []entity.ID
	Pinned    []entity.ID
	Mentioned []entity.ID
}

// ValidateChatRequest проверяет запрос и возвращает очищенную копию.
func ValidateChatRequest(req *ChatRequest) Result {
	if req == nil {
		return Result{Errors: []string{"Request body is required"}}
	}

	var errs []string

	if raw, err := json.Marshal(req); err != nil {
		errs = append(errs, "Request is not serializable")
	} else if len(raw) > MaxRequestBytes {
		errs = append(errs, fmt.Sprintf("Request size %d bytes exceeds limit of %d bytes", len(raw), MaxRequestBytes))
	}

	errs = append(errs, validateMessages(req.Messages)...)

	if req.Provider != "" && !contains(Providers, req.Provider) {
		errs = append(errs, fmt.Sprintf("Invalid provider %q: must be one of %s", req.Provider, strings.Join(Providers, ", ")))
	}

	errs = append(errs, validateLinked("linkedCharacter", req.LinkedCharacter, entity.KindCharacter)...)
	errs = append(errs, validateLinked("linkedWorld", req.LinkedWorld, entity.KindWorld)...)
	errs = append(errs, validateLinked("linkedProject", req.LinkedProject, entity.KindProject)...)
	errs = append(errs, validateIDList("pinnedEntityIds", req.PinnedEntityIDs)...)
	errs = append(errs, validateIDList("mentionedEntityIds", req.MentionedEntityIDs)...)

	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Valid: true, Clean: clean(req)}
}

func validateMessages(msgs []Message) []string {
	if len(msgs) == 0 {
		return []string{"Messages array must not be empty"}
	}
	var errs []string
	for i, m := range msgs {
		if !contains(Roles, m.Role) {
			errs = append(errs, fmt.Sprintf("Message %d has invalid role %q", i, m.Role))
		}
		if strings.TrimSpace(m.Content) == "" {
			errs = append(errs, fmt.Sprintf("Message %d content must not be empty", i))
		}
		if n := utf8.RuneCountInString(m.Content); n > MaxMessageChars {
			errs = append(errs, fmt.Sprintf("Message %d content exceeds %d characters (%d)", i, MaxMessageChars, n))
		}
	}
	return errs
}

// validateLinked связанная сущность должна иметь сигил своего типа.
func validateLinked(field, raw string, kind entity.Kind) []string {
	if raw == "" {
		return nil
	}
	id, err := entity.ParseID(raw)
	if err != nil {
		return []string{fmt.Sprintf("Invalid %s ID format: %q", field, raw)}
	}
	if id.Kind != kind {
		return []string{fmt.Sprintf("%s must be a %s ID, got %q", field, kind, raw)}
	}
	return nil
}

func validateIDList(field string, raw []string) []string {
	_, rejected := entity.ParseIDs(raw)
	var errs []string
	for _, r := range rejected {
		errs = append(errs, fmt.Sprintf("Invalid entity ID format in %s: %q", field, r))
	}
	return errs
}

// ValidateEntityID проверка одного идентификатора.
func ValidateEntityID(raw string) bool {
	_, err := entity.ParseID(raw)
	return err == nil
}

func clean(req *ChatRequest) *ChatRequest {
	out := *req
	out.Messages = make([]Message, len(req.Messages))
	for i, m := range req.Messages {
		out.Messages[i] = Message{Role: m.Role, Content: sanitizer.Clean(m.Content)}
	}
	out.Provider = strings.TrimSpace(req.Provider)
	out.APIKey = strings.TrimSpace(req.APIKey)
	out.Model = sanitizer.Clean(req.Model)
	out.ModeInstruction = sanitizer.Clean(req.ModeInstruction)
	out.SessionSetup = sanitizer.Clean(req.SessionSetup)
	out.Mode = sanitizer.Clean(req.Mode)
	out.PinnedEntityIDs = append([]string(nil), req.PinnedEntityIDs...)
	out.MentionedEntityIDs = append([]string(nil), req.MentionedEntityIDs...)
	return &out
}

// EntityIDs разбирает идентификаторы чистого запроса. Вызывается после
// успешной проверки, поэтому ошибки формата здесь уже невозможны.
func (r *ChatRequest) EntityIDs() IDs {
	var ids IDs
	for _, raw := range []string{r.LinkedCharacter, r.LinkedWorld, r.LinkedProject} {
		if id, err := entity.ParseID(raw); err == nil {
			ids.Linked = append(ids.Linked, id)
		}
	}
	ids.Pinned, _ = entity.ParseIDs(r.PinnedEntityIDs)
	ids.Mentioned, _ = entity.ParseIDs(r.MentionedEntityIDs)
	return ids
}

// LastUserMessage текст последнего сообщения пользователя.
func (r *ChatRequest) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
