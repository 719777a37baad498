package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRecursiveChunker_Short(t *testing.T) {
	c := NewRecursiveChunker(500, 50)

	chunks := c.Split("  Hello, world.  ")
	if len(chunks) != 1 || chunks[0] != "Hello, world." {
		t.Fatalf("expected single trimmed chunk, got %q", chunks)
	}

	for _, empty := range []string{"", "   ", "\n\n\n"} {
		if got := c.Split(empty); len(got) != 0 {
			t.Errorf("expected no chunks for %q, got %q", empty, got)
		}
	}
}

func TestRecursiveChunker_PrefersParagraphs(t *testing.T) {
	c := NewRecursiveChunker(60, 0)
	p1 := strings.Repeat("a", 40)
	p2 := strings.Repeat("b", 40)

	chunks := c.Split(p1 + "\n\n" + p2)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != p1 || chunks[1] != p2 {
		t.Errorf("expected paragraph boundaries, got %q", chunks)
	}
}

func TestRecursiveChunker_SizeAndCoverage(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"defaults", 500, 50},
		{"small", 40, 10},
		{"no overlap", 40, 0},
	}

	var words []string
	for i := 0; i < 400; i++ {
		words = append(words, "word"+strings.Repeat("x", i%7))
	}
	text := strings.Join(words[:200], " ") + "\n" + strings.Join(words[200:], " ")

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chunks := NewRecursiveChunker(tc.size, tc.overlap).Split(text)
			if len(chunks) < 2 {
				t.Fatalf("expected several chunks, got %d", len(chunks))
			}
			for i, ch := range chunks {
				if n := utf8.RuneCountInString(ch); n > tc.size {
					t.Errorf("chunk %d has %d chars, limit %d", i, n, tc.size)
				}
				if strings.TrimSpace(ch) != ch || ch == "" {
					t.Errorf("chunk %d is not trimmed: %q", i, ch)
				}
			}
			joined := strings.Join(chunks, " ")
			for _, w := range words {
				if !strings.Contains(joined, w) {
					t.Fatalf("word %q lost", w)
				}
			}
		})
	}
}

func TestRecursiveChunker_Overlap(t *testing.T) {
	c := NewRecursiveChunker(30, 12)
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu"

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %q", chunks)
	}
	for i := 0; i < len(chunks)-1; i++ {
		prevWords := strings.Fields(chunks[i])
		last := prevWords[len(prevWords)-1]
		if !strings.HasPrefix(chunks[i+1], last) && !strings.Contains(chunks[i+1], last) {
			t.Errorf("chunk %d does not carry over %q from chunk %d: %q / %q", i+1, last, i, chunks[i], chunks[i+1])
		}
	}
}

func TestRecursiveChunker_HardSplit(t *testing.T) {
	c := NewRecursiveChunker(10, 2)
	chunks := c.Split(strings.Repeat("z", 25))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	for _, ch := range chunks {
		if len(ch) > 10 {
			t.Errorf("chunk too long: %q", ch)
		}
	}
}

func TestRecursiveChunker_CountsRunes(t *testing.T) {
	// 5 runes but 10 bytes per word
	c := NewRecursiveChunker(6, 0)
	chunks := c.Split("ééééé ééééé")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %q", chunks)
	}
}

func TestNewRecursiveChunker_Clamps(t *testing.T) {
	c := NewRecursiveChunker(0, 900)
	if c.chunkSize != 500 || c.overlap != 0 {
		t.Errorf("expected 500/0, got %d/%d", c.chunkSize, c.overlap)
	}
}
