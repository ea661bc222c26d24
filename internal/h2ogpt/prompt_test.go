package h2ogpt

import (
	"context"
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt(context.Background(), "You are a helpful assistant.", "Is the heating on?")
	if err != nil {
		t.Fatalf("BuildPrompt err: %v", err)
	}

	want := "\n\"\"\"\nYou are a helpful assistant.\n\"\"\"\nIs the heating on?\n"
	if prompt != want {
		t.Fatalf("unexpected prompt:\n%q\nwant:\n%q", prompt, want)
	}
}

func TestBuildPromptKeepsQuestionVerbatim(t *testing.T) {
	question := `turn on the "living room" lights`
	prompt, err := BuildPrompt(context.Background(), "ctx", question)
	if err != nil {
		t.Fatalf("BuildPrompt err: %v", err)
	}
	if !strings.Contains(prompt, question) {
		t.Fatalf("prompt does not contain question: %q", prompt)
	}
}
