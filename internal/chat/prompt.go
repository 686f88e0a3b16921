package chat

import (
	"strings"

	"storyForge/internal/budget"
	"storyForge/internal/llm"
	"storyForge/internal/validation"
)

// DefaultSystemPrompt базовая инструкция модели.
const DefaultSystemPrompt = `You are StoryForge, a creative writing partner for novelists and worldbuilders.
Treat the story context below as established canon: stay consistent with it and never contradict canonical facts.
Refer to characters, worlds and projects by their names. When something is not covered by the context, say so or offer options instead of inventing canon silently.`

// Идентификаторы и приоритеты секций системного промпта.
const (
	SectionSystem       = "system"
	SectionMode         = "mode_instruction"
	SectionSession      = "session_setup"
	SectionEntities     = "entity_context"
	SectionConversation = "conversation_history"

	prioritySystem       = 100
	priorityMode         = 90
	prioritySession      = 80
	priorityEntities     = 70
	priorityConversation = 40

	minEntityTokens       = 100
	minConversationTokens = 50
)

// DefaultRecentMessages сколько последних сообщений уходит модели как есть;
// более ранние сворачиваются в секцию истории.
const DefaultRecentMessages = 6

func promptSections(system string, req *validation.ChatRequest, entityContext string, earlier []validation.Message) []budget.Section {
	sections := []budget.Section{
		{ID: SectionSystem, Content: system, Priority: prioritySystem},
		{ID: SectionMode, Content: req.ModeInstruction, Priority: priorityMode},
	}
	if req.SessionSetup != "" {
		sections = append(sections, budget.Section{
			ID:          SectionSession,
			Content:     "## Session Setup\n\n" + req.SessionSetup,
			Priority:    prioritySession,
			Truncatable: true,
		})
	}
	if entityContext != "" {
		sections = append(sections, budget.Section{
			ID:          SectionEntities,
			Content:     "## Story Context\n\n" + entityContext,
			Priority:    priorityEntities,
			Truncatable: true,
			MinTokens:   minEntityTokens,
		})
	}
	if len(earlier) > 0 {
		sections = append(sections, budget.Section{
			ID:          SectionConversation,
			Content:     "## Earlier Conversation\n\n" + transcript(earlier),
			Priority:    priorityConversation,
			Truncatable: true,
			MinTokens:   minConversationTokens,
		})
	}
	return sections
}

func transcript(msgs []validation.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n\n")
}

// splitMessages делит диалог на раннюю часть и последние n сообщений.
func splitMessages(msgs []validation.Message, n int) (earlier []validation.Message, recent []llm.Message) {
	if n <= 0 {
		n = DefaultRecentMessages
	}
	cut := max(len(msgs)-n, 0)
	earlier = msgs[:cut]
	recent = make([]llm.Message, 0, len(msgs)-cut)
	for _, m := range msgs[cut:] {
		recent = append(recent, llm.Message{Role: m.Role, Content: m.Content})
	}
	return earlier, recent
}
