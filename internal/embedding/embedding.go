// Package embedding provides the local deterministic text embedder and the
// cosine similarity primitive used throughout retrieval.
//
// The embedder is a fixed-dimension hashed bag-of-features vectorizer, not a
// learned model: the same text always produces the same vector and no
// external state is consulted. Semantic recall is therefore coarse by
// construction; the hybrid ranker supplements it with lexical and
// structural signals.
package embedding

import (
	"hash/fnv"
	"math"

	"github.com/mossline/notewise/internal/textutil"
)

// Dimension is the fixed length of every embedding vector.
const Dimension = 256

// Token and character-trigram features are hashed into the same buckets;
// trigrams carry less weight but keep near-miss spellings close.
const trigramWeight = 0.4

// Embed maps text to a Dimension-length vector. It is pure: same text,
// same vector. Empty or stopword-only text yields the zero vector.
func Embed(text string) []float64 {
	vec := make([]float64, Dimension)
	tokens := textutil.Tokenize(text)
	for _, token := range tokens {
		if textutil.IsStopword(token) {
			continue
		}
		vec[bucket(token)] += 1.0
		for i := 0; i+3 <= len(token); i++ {
			vec[bucket(token[i:i+3])] += trigramWeight
		}
	}
	normalize(vec)
	return vec
}

func bucket(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % Dimension)
}

func normalize(vec []float64) {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. It never
// panics: mismatched lengths, empty vectors, or zero vectors return -1 so
// callers in scoring loops can treat failures as "maximally dissimilar".
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
