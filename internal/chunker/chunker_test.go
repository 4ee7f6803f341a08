package chunker_test

import (
	"strings"
	"testing"

	"github.com/valpere/wordweaver/internal/chunker"
)

const story = "Last summer my family went camping near the lake. " +
	"We forgot the tent poles so we slept in the car! " +
	"My little brother snored all night and I could not sleep.\n\n" +
	"In the morning we cooked pancakes on a tiny stove. " +
	"They were burnt but tasted amazing."

func TestChunk_FitsInOnePiece(t *testing.T) {
	for _, max := range []int{0, -1, len(story)} {
		chunks := chunker.Chunk(story, max)
		if len(chunks) != 1 || chunks[0] != story {
			t.Errorf("Chunk(story, %d) = %d pieces, want the story back whole", max, len(chunks))
		}
	}
}

func TestChunk_PrefersParagraphBreak(t *testing.T) {
	chunks := chunker.Chunk(story, 180)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "could not sleep.") {
		t.Errorf("first chunk should end at the paragraph break: %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "In the morning") {
		t.Errorf("second chunk should start the new paragraph: %q", chunks[1])
	}
}

func TestChunk_SentenceBoundary(t *testing.T) {
	text := "We went to the lake. The water was cold! Did we swim? Yes."
	chunks := chunker.Chunk(text, 30)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c == "" || c != strings.TrimSpace(c) {
			t.Errorf("chunk %d is empty or untrimmed: %q", i, c)
		}
		if len([]rune(c)) > 30 {
			t.Errorf("chunk %d exceeds limit: %q", i, c)
		}
	}
	if chunks[0] != "We went to the lake." {
		t.Errorf("first chunk = %q, want first sentence", chunks[0])
	}
}

func TestChunk_WordBoundaryKeepsEveryWord(t *testing.T) {
	text := "uno dos tres cuatro cinco seis siete ocho nueve diez"
	chunks := chunker.Chunk(text, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if got := strings.Join(chunks, " "); got != text {
		t.Errorf("rejoined = %q, want %q", got, text)
	}
}

func TestChunk_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("ñandú ", 20)
	chunks := chunker.Chunk(text, 12)
	for i, c := range chunks {
		if n := len([]rune(c)); n > 12 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		if strings.ContainsRune(c, '�') {
			t.Errorf("chunk %d split a rune: %q", i, c)
		}
	}
}

func TestChunk_HardCut(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks := chunker.Chunk(text, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(chunks), chunks)
	}
	if strings.Join(chunks, "") != text {
		t.Errorf("hard cut lost characters: %v", chunks)
	}
}

func TestExtractContext(t *testing.T) {
	fifty := strings.TrimSpace(strings.Repeat("w ", 50))

	tests := []struct {
		name      string
		text      string
		words     int
		want      string
		wantCount int
	}{
		{name: "shorter than limit", text: "  short text ", words: 25, want: "short text"},
		{name: "last words", text: "alpha beta gamma delta epsilon", words: 3, want: "gamma delta epsilon"},
		{name: "default count", text: fifty, words: 0, wantCount: chunker.DefaultContextWords},
		{name: "explicit count", text: fifty, words: 10, wantCount: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunker.ExtractContext(tt.text, tt.words)
			if tt.want != "" && got != tt.want {
				t.Errorf("ExtractContext = %q, want %q", got, tt.want)
			}
			if tt.wantCount > 0 && len(strings.Fields(got)) != tt.wantCount {
				t.Errorf("ExtractContext returned %d words, want %d", len(strings.Fields(got)), tt.wantCount)
			}
		})
	}
}
