package usecase

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"ald-01/internal/domain"
)

// responseReserve is the share of the context window held back for the
// model's answer.
const responseReserve = 4

// ContextBuilder fits a conversation into a token budget, dropping the
// oldest transcript messages first. The system prompt and the current query
// are never dropped.
type ContextBuilder struct {
	enc    *tiktoken.Tiktoken
	logger *slog.Logger
}

// NewContextBuilder loads the cl100k_base encoding. Loading can fail when
// the encoding data is unavailable offline; the builder then falls back to a
// character-count heuristic.
func NewContextBuilder(logger *slog.Logger) *ContextBuilder {
	enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		logger.Warn("token encoding unavailable, using character heuristic", "error", err)
		enc = nil
	}
	return &ContextBuilder{enc: enc, logger: logger}
}

// CountTokens estimates the token count of s.
func (b *ContextBuilder) CountTokens(s string) int {
	if b.enc == nil {
		// Rough heuristic: about four characters per token for English text.
		return len(s)/4 + 1
	}
	return len(b.enc.Encode(s, nil, nil))
}

func (b *ContextBuilder) messageTokens(m domain.Message) int {
	// Small fixed overhead per message for role framing.
	return b.CountTokens(m.Content) + 4
}

// Build assembles [system, transcript..., query] trimmed to fit the window
// minus the response reserve. Oldest transcript messages go first.
func (b *ContextBuilder) Build(system string, transcript []domain.Message, query string, window int) []domain.Message {
	if window <= 0 {
		window = 4096
	}
	budget := window - window/responseReserve

	sys := domain.Message{Role: domain.RoleSystem, Content: system}
	user := domain.Message{Role: domain.RoleUser, Content: query}
	budget -= b.messageTokens(sys) + b.messageTokens(user)

	var kept []domain.Message
	// Walk newest-first so the most recent turns survive trimming.
	for i := len(transcript) - 1; i >= 0; i-- {
		cost := b.messageTokens(transcript[i])
		if cost > budget {
			b.logger.Debug("transcript trimmed to fit context window",
				"dropped", i+1, "window", window)
			break
		}
		budget -= cost
		kept = append(kept, transcript[i])
	}

	msgs := make([]domain.Message, 0, len(kept)+2)
	msgs = append(msgs, sys)
	for i := len(kept) - 1; i >= 0; i-- {
		msgs = append(msgs, kept[i])
	}
	return append(msgs, user)
}
