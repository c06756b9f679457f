package styles

import (
	"errors"
	"strings"
	"testing"

	"server/internal/domain"
)

func TestBuildPromptOrdering(t *testing.T) {
	description := "Two people smiling in front of a brick wall."
	prompt, err := BuildPrompt("anime-default-001", description)
	if err != nil {
		t.Fatalf("BuildPrompt returned error: %v", err)
	}

	descIdx := strings.Index(prompt, description)
	instrIdx := strings.Index(prompt, "cinematic anime style")
	styleIdx := strings.Index(prompt, "<style>")
	if descIdx < 0 || instrIdx < 0 || styleIdx < 0 {
		t.Fatalf("prompt missing sections: %q", prompt)
	}
	if !(descIdx < instrIdx && instrIdx < styleIdx) {
		t.Fatalf("prompt sections out of order: desc=%d instr=%d style=%d", descIdx, instrIdx, styleIdx)
	}
	if !strings.HasSuffix(prompt, "</style>") {
		t.Fatalf("prompt must end with closing style tag: %q", prompt[len(prompt)-20:])
	}
}

func TestBuildPromptUnknownStyle(t *testing.T) {
	_, err := BuildPrompt("vaporwave-999", "a description")
	if !errors.Is(err, domain.ErrUnknownStyle) {
		t.Fatalf("expected ErrUnknownStyle, got %v", err)
	}
}

func TestLookupAllKnownStyles(t *testing.T) {
	ids := Known()
	if len(ids) == 0 {
		t.Fatal("expected at least one registered style")
	}
	for _, id := range ids {
		style, err := Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", id, err)
		}
		if style.Name == "" || style.Instruction == "" || style.Descriptor == "" {
			t.Fatalf("style %q has empty fields: %+v", id, style)
		}
	}
}
