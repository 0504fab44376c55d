package services

import (
	"fmt"
	"strings"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

// Canned answers returned when generation cannot proceed normally.
const (
	// NoContextAnswer is returned when no relevant context was found
	// for the question.
	NoContextAnswer = "I couldn't find enough relevant information to answer your question."

	// ErrorAnswer is returned when the pipeline hit an unrecoverable
	// error while producing an answer.
	ErrorAnswer = "I apologize, but I encountered an error processing your request."
)

// contextSeparator joins retrieved passages inside the prompt.
const contextSeparator = "\n\n"

// BuildPrompt assembles the grounded prompt sent to the generator.
// Passages appear in the order given, which the retriever guarantees
// is descending similarity.
func BuildPrompt(matches []domain.RetrievalMatch, question string) string {
	contexts := make([]string, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, m.Content)
	}

	return fmt.Sprintf("%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(contexts, contextSeparator), question)
}
