package driving

import (
	"context"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// QueryRequest is one natural-language question over the corpus.
type QueryRequest struct {
	// Query is the user's question.
	Query string

	// ConversationID continues an existing conversation when set.
	ConversationID string

	// History is prior conversation context, oldest first.
	History []domain.ChatMessage

	// Filters narrows retrieval. Privacy widening is an authorization
	// decision made by the caller before building the request.
	Filters domain.RetrievalFilters
}

// QueryService answers questions with a streamed, cited response.
type QueryService interface {
	// Answer runs retrieval, reranking, routing and synthesis for one
	// query and returns a channel of answer events. The channel carries
	// exactly one terminal event and is closed afterwards. Cancelling
	// ctx aborts generation; partial text is never persisted.
	Answer(ctx context.Context, req QueryRequest) (<-chan domain.AnswerEvent, error)
}
