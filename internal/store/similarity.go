package store

import (
	"math"
	"sort"

	"github.com/piskoqo/backend/internal/model/memory"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the vectors differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankFragments scores candidates against the query vector, keeps those above
// the threshold and returns at most limit of them, most similar first. It is
// shared by drivers that cannot rank inside the database.
func RankFragments(candidates []memory.Fragment, query SearchQuery) []memory.Fragment {
	matched := make([]memory.Fragment, 0, len(candidates))
	for _, f := range candidates {
		sim := CosineSimilarity(query.Vector, f.Embedding)
		if sim <= query.Threshold {
			continue
		}
		f.Similarity = sim
		matched = append(matched, f)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Similarity > matched[j].Similarity
	})

	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched
}
