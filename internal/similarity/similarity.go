// Package similarity keeps one embedding per post and finds the stored post
// closest to a new vector, so near-duplicate content can be turned away at
// ingest.
package similarity

import (
	"math"

	"github.com/google/uuid"
)

// DefaultWindow is how many of the most recent embeddings Nearest compares.
const DefaultWindow = 500

// Entry is one stored post vector.
type Entry struct {
	PostID uuid.UUID
	Vector []float32
}

// Match is the closest stored post. A zero Match means nothing was stored.
type Match struct {
	PostID     uuid.UUID `json:"post_id"`
	Similarity float64   `json:"similarity"`
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or zero magnitude are unrelated and score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Best returns the entry most similar to target. Ties keep the earlier entry.
func Best(target []float32, entries []Entry) Match {
	var best Match
	for _, e := range entries {
		if s := Cosine(target, e.Vector); s > best.Similarity {
			best = Match{PostID: e.PostID, Similarity: s}
		}
	}
	return best
}
