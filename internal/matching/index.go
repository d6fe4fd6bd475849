// Package matching ranks stored postings against free text with TF-IDF cosine similarity.
package matching

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spigell/intern-radar/internal/posting"
)

const (
	DefaultMaxFeatures = 1000
	// DefaultMinScore is the search threshold.
	DefaultMinScore = 0.1
)

var reToken = regexp.MustCompile(`\w\w+`)

type Options struct {
	MaxFeatures     int           `mapstructure:"max-features"`
	RefreshInterval time.Duration `mapstructure:"refresh-interval"`
}

func DefaultOptions() Options {
	return Options{
		MaxFeatures:     DefaultMaxFeatures,
		RefreshInterval: time.Hour,
	}
}

type entry struct {
	term   int
	weight float64
}

// vector is sparse and sorted by term so dot products sum in a fixed order.
type vector []entry

func (v vector) dot(o vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].term == o[j].term:
			sum += v[i].weight * o[j].weight
			i++
			j++
		case v[i].term < o[j].term:
			i++
		default:
			j++
		}
	}
	return sum
}

// Index is an immutable snapshot of vectorized postings.
type Index struct {
	postings []*posting.Posting
	vocab    map[string]int
	idf      []float64
	vectors  []vector
	builtAt  time.Time
}

// Terms extracts lowercase unigrams and bigrams with stop words removed.
func Terms(text string) []string {
	words := reToken.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			kept = append(kept, w)
		}
	}

	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)
	for i := 1; i < len(kept); i++ {
		terms = append(terms, kept[i-1]+" "+kept[i])
	}
	return terms
}

// BuildIndex vectorizes postings in collection order.
func BuildIndex(postings []*posting.Posting, opts Options) *Index {
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = DefaultMaxFeatures
	}

	docs := make([][]string, len(postings))
	freq := make(map[string]int)
	for i, p := range postings {
		docs[i] = Terms(p.SearchableText())
		for _, term := range docs[i] {
			freq[term]++
		}
	}

	vocabTerms := make([]string, 0, len(freq))
	for term := range freq {
		vocabTerms = append(vocabTerms, term)
	}
	sort.Slice(vocabTerms, func(i, j int) bool {
		if freq[vocabTerms[i]] == freq[vocabTerms[j]] {
			return vocabTerms[i] < vocabTerms[j]
		}
		return freq[vocabTerms[i]] > freq[vocabTerms[j]]
	})
	if len(vocabTerms) > opts.MaxFeatures {
		vocabTerms = vocabTerms[:opts.MaxFeatures]
	}
	sort.Strings(vocabTerms)

	vocab := make(map[string]int, len(vocabTerms))
	for i, term := range vocabTerms {
		vocab[term] = i
	}

	df := make([]int, len(vocabTerms))
	for _, doc := range docs {
		seen := make(map[int]struct{})
		for _, term := range doc {
			if id, ok := vocab[term]; ok {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					df[id]++
				}
			}
		}
	}

	n := float64(len(postings))
	idf := make([]float64, len(vocabTerms))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	idx := &Index{
		postings: postings,
		vocab:    vocab,
		idf:      idf,
		vectors:  make([]vector, len(postings)),
		builtAt:  time.Now(),
	}
	for i, doc := range docs {
		idx.vectors[i] = idx.vectorize(doc)
	}
	return idx
}

func (idx *Index) vectorize(terms []string) vector {
	counts := make(map[int]float64)
	for _, term := range terms {
		if id, ok := idx.vocab[term]; ok {
			counts[id]++
		}
	}

	v := make(vector, 0, len(counts))
	for id, tf := range counts {
		v = append(v, entry{term: id, weight: tf * idx.idf[id]})
	}
	sort.Slice(v, func(i, j int) bool { return v[i].term < v[j].term })

	var norm float64
	for _, e := range v {
		norm += e.weight * e.weight
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i].weight /= norm
	}
	return v
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.postings)
}

func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// Match scores every posting against text and returns the best topK.
// Equal scores keep collection order.
func (idx *Index) Match(text string, topK int) []posting.MatchResult {
	return idx.rank(text, topK, math.Inf(-1))
}

// Search is Match restricted to scores of at least minScore. Zero scores never match.
func (idx *Index) Search(text string, limit int, minScore float64) []posting.MatchResult {
	return idx.rank(text, limit, math.Max(minScore, math.SmallestNonzeroFloat64))
}

func (idx *Index) rank(text string, limit int, minScore float64) []posting.MatchResult {
	if idx.Len() == 0 {
		return []posting.MatchResult{}
	}

	query := idx.vectorize(Terms(text))

	type scored struct {
		pos   int
		score float64
	}
	all := make([]scored, 0, len(idx.postings))
	for i, v := range idx.vectors {
		score := query.dot(v)
		if score < minScore {
			continue
		}
		all = append(all, scored{pos: i, score: score})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]posting.MatchResult, 0, len(all))
	for _, s := range all {
		out = append(out, posting.MatchResult{Posting: *idx.postings[s.pos], Score: s.score})
	}
	return out
}
