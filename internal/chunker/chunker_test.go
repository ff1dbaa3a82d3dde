package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestNew_InvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 15},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.size, tc.overlap); err == nil {
				t.Errorf("New(%d, %d): expected error", tc.size, tc.overlap)
			}
		})
	}
}

func TestChunk_SlidingWindow(t *testing.T) {
	e, err := New(10, 3)
	if err != nil {
		t.Fatal(err)
	}

	got := e.Chunk("ABCDEFGHIJKLMNO")
	want := []string{"ABCDEFGHIJ", "HIJKLMNO"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk: got %v, want %v", got, want)
	}
}

func TestChunk_EmptyText(t *testing.T) {
	e, _ := New(10, 3)
	if got := e.Chunk(""); got != nil {
		t.Errorf("empty text: got %v, want nil", got)
	}
}

func TestChunk_ShortText(t *testing.T) {
	e, _ := New(100, 20)
	got := e.Chunk("short")
	if len(got) != 1 || got[0] != "short" {
		t.Errorf("short text: got %v, want [short]", got)
	}
}

func TestChunk_ExactSize(t *testing.T) {
	e, _ := New(5, 2)
	got := e.Chunk("abcde")
	if len(got) != 1 || got[0] != "abcde" {
		t.Errorf("exact size: got %v", got)
	}
}

func TestChunk_ZeroOverlap(t *testing.T) {
	e, _ := New(4, 0)
	got := e.Chunk("abcdefghij")
	want := []string{"abcd", "efgh", "ij"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("zero overlap: got %v, want %v", got, want)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	e, _ := New(10, 3)
	text := strings.Repeat("deterministic input ", 50)

	first := e.Chunk(text)
	second := e.Chunk(text)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input must produce identical chunks")
	}
}

func TestChunk_ReconstructsText(t *testing.T) {
	texts := []string{
		"ABCDEFGHIJKLMNO",
		strings.Repeat("lorem ipsum dolor sit amet ", 100),
		"héllo wörld — unicode ünput ミックス",
	}

	for _, text := range texts {
		for _, params := range []struct{ size, overlap int }{
			{10, 3}, {7, 0}, {50, 25}, {1000, 200},
		} {
			e, err := New(params.size, params.overlap)
			if err != nil {
				t.Fatal(err)
			}
			chunks := e.Chunk(text)

			var b strings.Builder
			for i, ch := range chunks {
				runes := []rune(ch)
				if i > 0 {
					runes = runes[params.overlap:]
				}
				b.WriteString(string(runes))
			}
			if b.String() != text {
				t.Errorf("size=%d overlap=%d: reconstruction mismatch", params.size, params.overlap)
			}
		}
	}
}

func TestChunk_NoChunkExceedsSize(t *testing.T) {
	e, _ := New(10, 3)
	for _, ch := range e.Chunk(strings.Repeat("x", 137)) {
		if len([]rune(ch)) > 10 {
			t.Errorf("chunk %q exceeds size 10", ch)
		}
	}
}
