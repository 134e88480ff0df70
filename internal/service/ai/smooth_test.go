package ai

import (
	"reflect"
	"testing"
)

func chunkAll(t *testing.T, inputs []string) []string {
	t.Helper()
	var got []string
	c := newWordChunker(func(s string) error {
		got = append(got, s)
		return nil
	})
	for _, in := range inputs {
		if err := c.Write(in); err != nil {
			t.Fatalf("write %q: %v", in, err)
		}
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return got
}

func TestWordChunkerRegroupsFragmentedChunks(t *testing.T) {
	got := chunkAll(t, []string{"Hel", "lo wor", "ld ag", "ain"})
	want := []string{"Hello ", "world ", "again"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %#v, want %#v", got, want)
	}
}

func TestWordChunkerPreservesContent(t *testing.T) {
	inputs := []string{"one two", " three\nfour ", "five"}
	got := chunkAll(t, inputs)

	var joined, original string
	for _, s := range got {
		joined += s
	}
	for _, s := range inputs {
		original += s
	}
	if joined != original {
		t.Fatalf("reassembled %q, want %q", joined, original)
	}
}

func TestWordChunkerSplitsLargeChunkIntoWords(t *testing.T) {
	got := chunkAll(t, []string{"alpha beta gamma "})
	want := []string{"alpha ", "beta ", "gamma "}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %#v, want %#v", got, want)
	}
}

func TestWordChunkerEmptyInput(t *testing.T) {
	if got := chunkAll(t, []string{"", ""}); len(got) != 0 {
		t.Fatalf("expected no chunks, got %#v", got)
	}
}

func TestSplitWordsLeadingWhitespace(t *testing.T) {
	got := splitWords("  lead trail ")
	want := []string{"  ", "lead ", "trail "}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitWords = %#v, want %#v", got, want)
	}
}
