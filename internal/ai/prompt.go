package ai

import (
	"fmt"
	"strings"
)

// systemPersona is the assistant's standing instruction set.
const systemPersona = `You are a personal knowledge assistant. You answer from the user's own notes and past conversations when context is provided, and you say so when the context does not cover the question. Match the user's writing style when a style guide is included. Be direct; do not pad answers with caveats.`

// SystemPrompt returns the persona instructions for the completer.
func SystemPrompt() string {
	return systemPersona
}

// BuildPrompt combines retrieval context and the user's question into one
// prompt. With no context the question is sent as-is.
func BuildPrompt(retrievalContext, question string) string {
	question = strings.TrimSpace(question)
	if strings.TrimSpace(retrievalContext) == "" {
		return question
	}
	return fmt.Sprintf("Context from the user's knowledge base:\n\n%s\n\n---\n\nQuestion: %s", retrievalContext, question)
}
