package domain

// Citation points at evidence that was actually supplied to generation.
// Citations are never inferred after the fact.
type Citation struct {
	// ID identifies the cited chunk or web result.
	ID string `json:"id"`

	// Title is the document or page title.
	Title string `json:"title"`

	// Excerpt is a short passage from the cited evidence.
	Excerpt string `json:"excerpt"`

	// Source is "document" or "web".
	Source string `json:"source"`

	// Score is the evidence's ranking score, when known.
	Score float64 `json:"score,omitempty"`

	// Page locates document evidence in its source file.
	Page string `json:"page,omitempty"`
}

// AnswerEventType tags a streamed answer event.
type AnswerEventType string

// Answer event types. A stream is zero or more token events, one sources
// event, and exactly one terminal done or error event.
const (
	AnswerEventToken          AnswerEventType = "token"
	AnswerEventSources        AnswerEventType = "sources"
	AnswerEventConversationID AnswerEventType = "conversation_id"
	AnswerEventDone           AnswerEventType = "done"
	AnswerEventError          AnswerEventType = "error"
)

// AnswerEvent is one event in a streamed answer.
type AnswerEvent struct {
	// Type tags the event.
	Type AnswerEventType

	// Token is the text fragment for token events.
	Token string

	// Sources are the citations for sources events, in reranked
	// evidence order.
	Sources []Citation

	// ConversationID carries a new conversation identity.
	ConversationID string

	// Message is the human-readable explanation for error events.
	Message string
}

// Terminal reports whether the event ends the stream.
func (e AnswerEvent) Terminal() bool {
	return e.Type == AnswerEventDone || e.Type == AnswerEventError
}

// ChatMessage is one turn of conversation context for synthesis.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}
