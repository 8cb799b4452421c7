package retrieval

import (
	"testing"

	"github.com/momentohub/MomentoBot/internal/models"
)

func TestMergeRankOrdering(t *testing.T) {
	a := []models.VectorResult{
		{Text: "a1", Score: 0.9},
		{Text: "a2", Score: 0.5},
	}
	b := []models.VectorResult{
		{Text: "b1", Score: 0.8},
	}

	merged := MergeRank(2, a, b)
	if len(merged) != 3 {
		t.Fatalf("expected 3 results, got %d", len(merged))
	}
	want := []string{"a1", "b1", "a2"}
	for i, w := range want {
		if merged[i].Text != w {
			t.Errorf("position %d: expected %q, got %q", i, w, merged[i].Text)
		}
	}
}

func TestMergeRankRetention(t *testing.T) {
	// Three results with scores 0.9, 0.8, 0.5 and topK=2: all three survive
	// because retention keeps every rank index up to topK.
	a := []models.VectorResult{
		{Text: "first", Score: 0.9},
		{Text: "third", Score: 0.5},
	}
	b := []models.VectorResult{
		{Text: "second", Score: 0.8},
	}

	merged := MergeRank(2, a, b)
	if len(merged) != 3 {
		t.Fatalf("expected 3 retained results for topK=2, got %d", len(merged))
	}

	// With a fourth result the cut applies.
	b = append(b, models.VectorResult{Text: "fourth", Score: 0.4})
	merged = MergeRank(2, a, b)
	if len(merged) != 3 {
		t.Fatalf("expected 3 retained results out of 4, got %d", len(merged))
	}
	if merged[len(merged)-1].Text != "third" {
		t.Errorf("expected lowest retained to be 'third', got %q", merged[len(merged)-1].Text)
	}
}

func TestMergeRankEmptyInputs(t *testing.T) {
	if got := MergeRank(5); len(got) != 0 {
		t.Errorf("expected empty merge, got %d results", len(got))
	}
	if got := MergeRank(5, nil, nil); len(got) != 0 {
		t.Errorf("expected empty merge from nil lists, got %d results", len(got))
	}
}

func TestMergeRankStableTies(t *testing.T) {
	a := []models.VectorResult{{Text: "a", Score: 0.7}}
	b := []models.VectorResult{{Text: "b", Score: 0.7}}
	merged := MergeRank(3, a, b)
	if merged[0].Text != "a" || merged[1].Text != "b" {
		t.Errorf("expected stable tie order a,b; got %q,%q", merged[0].Text, merged[1].Text)
	}
}

func TestEncodeEmbedding(t *testing.T) {
	blob := encodeEmbedding([]float64{1.0, 0.5})
	if len(blob) != 8 {
		t.Fatalf("expected 8 bytes for 2 float32 values, got %d", len(blob))
	}
	// 1.0 as little-endian float32 is 00 00 80 3f.
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	for i, b := range want {
		if blob[i] != b {
			t.Errorf("byte %d: expected %#x, got %#x", i, b, blob[i])
		}
	}
}
