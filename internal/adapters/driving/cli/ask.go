package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
)

var (
	askConversation string
	askDocType      string
	askProduct      string
	askAllPrivacy   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question against the indexed corpus",
	Long: `Answers a natural-language question using hybrid retrieval over
the indexed documents, streaming the answer as it is generated and
listing the cited sources afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "continue an existing conversation")
	askCmd.Flags().StringVar(&askDocType, "doc-type", "", "restrict retrieval to one document type")
	askCmd.Flags().StringVar(&askProduct, "product", "", "restrict retrieval to one product")
	askCmd.Flags().BoolVar(&askAllPrivacy, "all-privacy", false, "include private documents")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	filters := domain.RetrievalFilters{
		DocType: askDocType,
		Product: askProduct,
	}
	if askAllPrivacy {
		filters.Privacy = domain.PrivacyFilterAll
	}

	events, err := queryService.Answer(cmd.Context(), driving.QueryRequest{
		Query:          args[0],
		ConversationID: askConversation,
		Filters:        filters,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var sources []domain.Citation
	var conversationID string

	for event := range events {
		switch event.Type {
		case domain.AnswerEventToken:
			cmd.Print(event.Token)
		case domain.AnswerEventSources:
			sources = event.Sources
		case domain.AnswerEventConversationID:
			conversationID = event.ConversationID
		case domain.AnswerEventError:
			return fmt.Errorf("answer failed: %s", event.Message)
		case domain.AnswerEventDone:
		}
	}
	cmd.Println()

	if len(sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range sources {
			cmd.Printf("  [%d] %s (%s)\n", i+1, sources[i].Title, sources[i].Source)
			if sources[i].Page != "" {
				cmd.Printf("      %s\n", sources[i].Page)
			}
		}
	}

	if conversationID != "" {
		cmd.Println()
		cmd.Printf("Conversation: %s\n", conversationID)
	}

	return nil
}
