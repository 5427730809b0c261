package tfidf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bczsl/internal/domain"
	"bczsl/internal/randsrc"
)

// Embedder learns a fixed-size vector per class token from a corpus of token
// sequences. Each token is described by its TF-IDF weighted co-occurrence row
// (windowed, distance-decayed, self-inclusive) which is reduced to the target
// size with a seeded Gaussian random projection and L2-normalised.
type Embedder struct {
	dimension  int
	window     int
	src        *randsrc.Source
	vocabulary map[string]int
	idf        []float64
	vectors    *mat.Dense
	prepared   bool
	stopwords  map[string]struct{}
}

// NewEmbedder creates an unprepared embedder producing vectors of the given
// size. The random source drives the projection matrix.
func NewEmbedder(dimension, window int, src *randsrc.Source) *Embedder {
	if window <= 0 {
		window = 2
	}
	return &Embedder{
		dimension:  dimension,
		window:     window,
		src:        src,
		vocabulary: make(map[string]int),
		stopwords:  defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary, IDF values and token vectors from the corpus.
func (e *Embedder) Prepare(corpus [][]string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	if e.dimension <= 0 {
		return fmt.Errorf("tfidf: invalid vector size %d", e.dimension)
	}
	sentences := make([][]string, 0, len(corpus))
	df := make(map[string]int)
	for _, sent := range corpus {
		toks := e.filter(sent)
		if len(toks) == 0 {
			continue
		}
		sentences = append(sentences, toks)
		seen := make(map[string]struct{})
		for _, tok := range toks {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(sentences))
	for i, term := range terms {
		e.vocabulary[term] = i
		// Smoothed IDF
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	v := len(terms)
	cooc := mat.NewDense(v, v, nil)
	for _, toks := range sentences {
		for i, tok := range toks {
			row := e.vocabulary[tok]
			cooc.Set(row, row, cooc.At(row, row)+1)
			for d := 1; d <= e.window; d++ {
				for _, j := range []int{i - d, i + d} {
					if j < 0 || j >= len(toks) {
						continue
					}
					col := e.vocabulary[toks[j]]
					cooc.Set(row, col, cooc.At(row, col)+1/float64(d))
				}
			}
		}
	}
	// Row-normalised term frequency times context IDF.
	for r := 0; r < v; r++ {
		row := cooc.RawRowView(r)
		var total float64
		for _, c := range row {
			total += c
		}
		for c := range row {
			row[c] = row[c] / total * e.idf[c]
		}
	}

	proj := mat.NewDense(v, e.dimension, nil)
	scale := 1 / math.Sqrt(float64(e.dimension))
	for r := 0; r < v; r++ {
		for c := 0; c < e.dimension; c++ {
			proj.Set(r, c, e.src.NormFloat64()*scale)
		}
	}
	vectors := mat.NewDense(v, e.dimension, nil)
	vectors.Mul(cooc, proj)
	for r := 0; r < v; r++ {
		row := vectors.RawRowView(r)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	e.vectors = vectors
	e.prepared = true
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Vocabulary returns the known tokens in sorted order.
func (e *Embedder) Vocabulary() []string {
	out := make([]string, 0, len(e.vocabulary))
	for term := range e.vocabulary {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// Embed returns the learned vector for token. Tokens absent from the corpus
// have no embedding.
func (e *Embedder) Embed(_ context.Context, token string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	idx, ok := e.vocabulary[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return nil, fmt.Errorf("tfidf: token %q not in corpus: %w", token, domain.ErrUnknownLabel)
	}
	return mat.Row(nil, idx, e.vectors), nil
}

// Vectorize implements domain.Vectorizer.
func (e *Embedder) Vectorize(ctx context.Context, input string) ([]float64, error) {
	return e.Embed(ctx, input)
}

func (e *Embedder) filter(toks []string) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
