package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/ragline/core"
)

// DefaultSupportContact is the phone line named in fallback replies.
const DefaultSupportContact = "1-800-AVEN-HLP"

// DefaultSystemPrompt frames the assistant as a support agent.
const DefaultSystemPrompt = `You are an AI customer support agent for Aven, a fintech company that helps people save money while paying off credit card debt.
Be helpful, professional, and empathetic. Use the provided context to answer questions accurately.
If you don't have specific information, provide general guidance and suggest contacting Aven support.`

// NoContextMarker stands in for the context when retrieval finds nothing.
const NoContextMarker = "No specific information found in knowledge base."

const contextHeader = "Relevant information from our knowledge base:\n"

// buildContext joins passage texts with a blank line.
func buildContext(passages []core.Passage) string {
	if len(passages) == 0 {
		return contextHeader + NoContextMarker
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return contextHeader + strings.Join(texts, "\n\n")
}

// buildUserPrompt renders the question followed by the last maxTurns
// history turns.
func buildUserPrompt(query string, history []core.Turn, maxTurns int) string {
	var b strings.Builder
	b.WriteString("User Question: ")
	b.WriteString(query)

	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\n\nPrevious conversation:\n")
		for i, turn := range history {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s: %s", turn.Role, turn.Content)
		}
	}
	return b.String()
}

// generationApology is returned when the model gives no usable answer.
func generationApology(contact string) string {
	return "I apologize, but I'm having trouble generating a response right now. " +
		"Please try again or contact Aven support at " + contact + " for immediate assistance."
}

// technicalApology is returned when retrieval itself fails.
func technicalApology(contact string) string {
	return "I apologize for the inconvenience. I'm experiencing technical difficulties. " +
		"Please contact Aven support at " + contact + " for assistance, or try again later."
}
