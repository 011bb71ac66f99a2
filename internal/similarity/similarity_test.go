package similarity_test

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/similarity"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := similarity.Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBest(t *testing.T) {
	near, far := uuid.New(), uuid.New()
	entries := []similarity.Entry{
		{PostID: far, Vector: []float32{0, 1, 0}},
		{PostID: near, Vector: []float32{0.9, 0.1, 0}},
		{PostID: uuid.New(), Vector: []float32{1, 0}},
	}

	m := similarity.Best([]float32{1, 0, 0}, entries)
	if m.PostID != near {
		t.Errorf("PostID = %s, want %s", m.PostID, near)
	}
	if m.Similarity < 0.99 || m.Similarity > 1 {
		t.Errorf("Similarity = %v, want just under 1", m.Similarity)
	}

	if got := similarity.Best([]float32{1, 0, 0}, nil); got != (similarity.Match{}) {
		t.Errorf("Best over nothing = %+v, want zero", got)
	}
}
