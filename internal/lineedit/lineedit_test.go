package lineedit

import "testing"

func TestCompleterSuggestsVerbsAndProgramNames(t *testing.T) {
	c := &completer{names: func() []string { return []string{"web", "worker"} }}

	suggestions, offset := c.Do([]rune("sta"), 3)
	if offset != 3 {
		t.Fatalf("offset = %d, want 3 (length of the partial word)", offset)
	}

	found := make(map[string]bool)
	for _, s := range suggestions {
		found["sta"+string(s)] = true
	}
	if !found["start"] || !found["status"] {
		t.Fatalf("suggestions = %v, want start and status among them", suggestions)
	}
}

func TestCompleterCompletesOnlyTheCurrentWord(t *testing.T) {
	c := &completer{names: func() []string { return []string{"web", "worker"} }}

	line := []rune("start we")
	suggestions, offset := c.Do(line, len(line))
	if offset != 2 { // "we"
		t.Fatalf("offset = %d, want 2", offset)
	}

	found := make(map[string]bool)
	for _, s := range suggestions {
		found["we"+string(s)] = true
	}
	if !found["web"] || found["worker"] {
		t.Fatalf("suggestions = %v, want web and not worker", suggestions)
	}
}
