package segment

import (
	"strings"
	"testing"
)

func TestChunkShortTextIsIdentity(t *testing.T) {
	text := "A single short lecture paragraph."
	got := Chunk(text, DefaultMaxChars, DefaultOverlapChars)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != text {
		t.Fatalf("expected identity chunk, got %q", got[0])
	}
}

func TestChunkEmptyText(t *testing.T) {
	if got := Chunk("   \n\t ", 100, 10); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
}

func TestChunkRespectsMaxChars(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := Chunk(text, 500, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 500 {
			t.Fatalf("chunk %d exceeds max: %d chars", i, len(c))
		}
	}
}

func TestChunkNoDataLoss(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(strings.Repeat("x", 90))
		b.WriteString("\n\n")
	}
	text := strings.TrimSpace(b.String())

	chunks := Chunk(text, 500, 100)
	joined := strings.Join(chunks, "\n")

	// overlap duplicates characters but must never drop them
	stripped := strings.NewReplacer("\n", "", " ", "").Replace(joined)
	original := strings.NewReplacer("\n", "", " ", "").Replace(text)
	if len(stripped) < len(original) {
		t.Fatalf("chunking lost data: %d chars out, %d chars in", len(stripped), len(original))
	}
}

func TestChunkPrefersParagraphBoundary(t *testing.T) {
	para := strings.Repeat("a", 450)
	text := para + "\n\n" + strings.Repeat("b", 450)
	chunks := Chunk(text, 500, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %d chunks", len(chunks))
	}
	if chunks[0] != para {
		t.Fatalf("expected first chunk to end at the paragraph boundary, got %d chars", len(chunks[0]))
	}
}

func TestChunkTerminatesWhenOverlapExceedsCut(t *testing.T) {
	// overlap >= maxChars would otherwise walk backwards forever
	text := strings.Repeat("y", 5000)
	chunks := Chunk(text, 100, 200)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
}

func TestTruncateToTokenLimitUnderBudget(t *testing.T) {
	text := "short text"
	if got := TruncateToTokenLimit(text, 100); got != text {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}

func TestTruncateToTokenLimitAddsMarker(t *testing.T) {
	text := strings.Repeat("sentence one. ", 500)
	got := TruncateToTokenLimit(text, 100)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Fatalf("expected truncation marker, got tail %q", got[len(got)-40:])
	}
	if len(got) > 100*charsPerToken+len(truncationMarker) {
		t.Fatalf("truncated text exceeds budget: %d chars", len(got))
	}
}

func TestTruncateToTokenLimitPrefersParagraph(t *testing.T) {
	text := strings.Repeat("a", 300) + "\n\n" + strings.Repeat("b", 300)
	got := TruncateToTokenLimit(text, 100) // 400 char budget
	body := strings.TrimSuffix(got, truncationMarker)
	if strings.Contains(body, "b") {
		t.Fatalf("expected cut at paragraph boundary, got %q tail", body[len(body)-10:])
	}
}
