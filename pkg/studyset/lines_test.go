package studyset

import "testing"

func TestCollectLinesSanitizesAndDeduplicates(t *testing.T) {
	raw := "- Hello there my friend\nHello there my friend (oh yeah)\n[Chorus]\nhi\nHello there my friend [x2]"
	lines, err := collectLines(raw)
	if err != nil {
		t.Fatalf("collectLines() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 deduplicated line, got %d: %+v", len(lines), lines)
	}
	if lines[0].Text != "Hello there my friend" {
		t.Fatalf("Text = %q", lines[0].Text)
	}
	if len(lines[0].AllPositions) != 3 {
		t.Fatalf("expected 3 recorded positions, got %d", len(lines[0].AllPositions))
	}
	if !lines[0].Repeated {
		t.Fatalf("expected line marked repeated")
	}
}

func TestCollectLinesRejectsShortAndHeaderLines(t *testing.T) {
	_, err := collectLines("[Verse 1]\nhi\nok go")
	if err == nil {
		t.Fatalf("expected error when no usable lines remain")
	}
}
