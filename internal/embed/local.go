package embed

import (
	"math"
	"strings"
)

// LocalEmbedder produces deterministic on-device embeddings via feature
// hashing of word n-grams and character trigrams. Quality is far below a
// real model, but it is free, offline, and stable across runs, which is what
// tests and keyless setups need.
type LocalEmbedder struct {
	dimensions int
	ngramSizes []int
}

// NewLocalEmbedder creates a local hashing embedder.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{
		dimensions: 256,
		ngramSizes: []int{1, 2},
	}
}

func (e *LocalEmbedder) Embed(text string) ([]float32, error) {
	return e.generate(text), nil
}

func (e *LocalEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.generate(text)
	}
	return embeddings, nil
}

func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *LocalEmbedder) generate(text string) []float32 {
	embedding := make([]float32, e.dimensions)

	text = strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return embedding
	}

	for _, n := range e.ngramSizes {
		weight := 1.0 / float32(n)
		for i := 0; i <= len(words)-n; i++ {
			ngram := strings.Join(words[i:i+n], " ")
			h1 := hashString(ngram)
			h2 := hashString(ngram + "_2")
			embedding[h1%e.dimensions] += weight
			embedding[h2%e.dimensions] -= weight * 0.5
		}
	}

	// Character trigrams smooth over typos and inflection
	for i := 0; i+3 <= len(text); i++ {
		h := hashString("char_" + text[i:i+3])
		embedding[h%e.dimensions] += 0.1
	}

	normalize(embedding)
	return embedding
}

func tokenize(text string) []string {
	for _, p := range []string{".", ",", "!", "?", ";", ":", "'", "\"", "(", ")", "\n", "\t"} {
		text = strings.ReplaceAll(text, p, " ")
	}
	words := strings.Fields(text)
	result := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) > 1 {
			result = append(result, word)
		}
	}
	return result
}

func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

func normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
