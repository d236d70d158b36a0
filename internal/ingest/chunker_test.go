package ingest

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func wordDoc(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestNewChunkerValidation(t *testing.T) {
	cases := []struct {
		size, overlap int
		ok            bool
	}{
		{500, 50, true},
		{1, 0, true},
		{10, 9, true},
		{10, 10, false},
		{10, 11, false},
		{10, -1, false},
		{0, 0, false},
		{-5, 0, false},
	}
	for _, c := range cases {
		_, err := NewChunker(c.size, c.overlap)
		if c.ok && err != nil {
			t.Errorf("size=%d overlap=%d: unexpected error %v", c.size, c.overlap, err)
		}
		if !c.ok && !errors.Is(err, ErrInvalidChunking) {
			t.Errorf("size=%d overlap=%d: got %v, want ErrInvalidChunking", c.size, c.overlap, err)
		}
	}
}

func TestChunkerTwelveHundredWords(t *testing.T) {
	c, err := NewChunker(500, 50)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunk("doc.txt", wordDoc(1200))
	if len(chunks) != 3 {
		t.Fatalf("chunks: got %d, want 3", len(chunks))
	}
	wantOffsets := []int{0, 450, 900}
	wantLens := []int{500, 500, 300}
	for i, ch := range chunks {
		if ch.StartOffset != wantOffsets[i] {
			t.Errorf("chunk %d offset: got %d, want %d", i, ch.StartOffset, wantOffsets[i])
		}
		if n := len(strings.Fields(ch.Text)); n != wantLens[i] {
			t.Errorf("chunk %d words: got %d, want %d", i, n, wantLens[i])
		}
		if ch.ID != i+1 {
			t.Errorf("chunk %d id: got %d", i, ch.ID)
		}
		if ch.SourceDocument != "doc.txt" {
			t.Errorf("chunk %d source: got %q", i, ch.SourceDocument)
		}
	}
}

func TestChunkerSingleChunkWhenTextFits(t *testing.T) {
	c, _ := NewChunker(500, 50)
	chunks := c.Chunk("small.txt", wordDoc(500))
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	if len(strings.Fields(chunks[0].Text)) != 500 {
		t.Error("single chunk should contain the whole text")
	}

	chunks = c.Chunk("tiny.txt", "just a few words")
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
}

func TestChunkerEmptyText(t *testing.T) {
	c, _ := NewChunker(10, 2)
	if got := c.Chunk("d", "   \n\t  "); got != nil {
		t.Errorf("whitespace-only text: got %v", got)
	}
	if got := c.Chunk("d", ""); got != nil {
		t.Errorf("empty text: got %v", got)
	}
}

func TestChunkerAdjacentChunksShareOverlap(t *testing.T) {
	c, _ := NewChunker(10, 3)
	chunks := c.Chunk("d", wordDoc(40))
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		cur := strings.Fields(chunks[i].Text)
		shared := 3
		if len(cur) < shared {
			shared = len(cur)
		}
		for j := 0; j < shared; j++ {
			if prev[len(prev)-3+j] != cur[j] {
				t.Fatalf("chunks %d/%d do not share %d-word overlap", i-1, i, shared)
			}
		}
	}
}

func TestChunkerReconstructsWordSequence(t *testing.T) {
	c, _ := NewChunker(7, 2)
	original := strings.Fields(wordDoc(33))
	chunks := c.Chunk("d", wordDoc(33))

	var rebuilt []string
	for i, ch := range chunks {
		words := strings.Fields(ch.Text)
		if i == 0 {
			rebuilt = append(rebuilt, words...)
			continue
		}
		// Skip the words already contributed by the previous window.
		start := len(rebuilt) - ch.StartOffset
		rebuilt = append(rebuilt, words[start:]...)
	}
	if len(rebuilt) != len(original) {
		t.Fatalf("rebuilt %d words, want %d", len(rebuilt), len(original))
	}
	for i := range original {
		if rebuilt[i] != original[i] {
			t.Fatalf("word %d: got %q, want %q", i, rebuilt[i], original[i])
		}
	}
}

func TestChunkerNoTrailingContainedChunk(t *testing.T) {
	// 12 words, size 10, overlap 9: the window at offset 1 reaches the last
	// word; nothing after it may be emitted.
	c, _ := NewChunker(10, 9)
	chunks := c.Chunk("d", wordDoc(12))
	last := chunks[len(chunks)-1]
	if last.StartOffset+len(strings.Fields(last.Text)) != 12 {
		t.Error("last chunk must cover the final word")
	}
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].StartOffset + len(strings.Fields(chunks[i-1].Text))
		curEnd := chunks[i].StartOffset + len(strings.Fields(chunks[i].Text))
		if curEnd <= prevEnd {
			t.Errorf("chunk %d is fully contained in chunk %d", i, i-1)
		}
	}
}

func TestChunkerDeterministic(t *testing.T) {
	c, _ := NewChunker(50, 10)
	text := wordDoc(333)
	a := c.Chunk("d", text)
	b := c.Chunk("d", text)
	if len(a) != len(b) {
		t.Fatal("chunk counts differ between runs")
	}
	for i := range a {
		if *a[i] != *b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkerZeroOverlap(t *testing.T) {
	c, _ := NewChunker(5, 0)
	chunks := c.Chunk("d", wordDoc(12))
	if len(chunks) != 3 {
		t.Fatalf("chunks: got %d, want 3", len(chunks))
	}
	if chunks[2].StartOffset != 10 || len(strings.Fields(chunks[2].Text)) != 2 {
		t.Errorf("last chunk: %+v", chunks[2])
	}
}
