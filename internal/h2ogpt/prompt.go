package h2ogpt

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// promptTemplate wraps the configured context in a delimited block and
// appends the question verbatim. The accumulated conversation history is
// deliberately not part of it; see BuildPrompt.
const promptTemplate = `
"""
{context}
"""
{question}
`

var chatTemplate = prompt.FromMessages(
	schema.FString,
	schema.UserMessage(promptTemplate),
)

// BuildPrompt renders the instruction sent to the nochat endpoint. Only the
// current prompt context and the current question go in: submit_nochat_api is
// a single-instruction endpoint, so prior turns are kept for transcripts but
// never transmitted.
func BuildPrompt(ctx context.Context, promptContext, question string) (string, error) {
	msgs, err := chatTemplate.Format(ctx, map[string]any{
		"context":  promptContext,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("format prompt: empty template output")
	}
	return msgs[0].Content, nil
}
