// Package concepts turns free text into normalized concept tokens and
// provides the set arithmetic the rest of the memory is built on.
// Token overlap is the entire similarity metric — no embeddings — so
// merge and link decisions stay reproducible from inputs alone.
package concepts

import (
	"sort"
	"strings"
	"unicode"

	"github.com/tsawler/prose/v3"
)

// stopWords are never concept tokens.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true,
	"i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "he": true, "she": true, "it": true,
	"they": true, "them": true, "their": true, "this": true, "that": true,
	"these": true, "those": true,
	"what": true, "which": true, "who": true, "whom": true, "whose": true,
	"where": true, "when": true, "why": true, "how": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"than": true, "so": true, "as": true, "of": true, "at": true,
	"by": true, "for": true, "with": true, "about": true, "into": true,
	"to": true, "from": true, "in": true, "on": true, "up": true,
	"out": true, "off": true, "over": true, "under": true,
	"not": true, "no": true, "its": true, "also": true, "can": true,
}

// Extract returns the concept tokens for a piece of text: lowercased,
// stopword- and short-word-filtered, deduplicated, sorted.
func Extract(text string) []string {
	words := tokenize(text)

	seen := make(map[string]bool, len(words))
	var tokens []string
	for _, w := range words {
		w = normalize(w)
		if len(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}

	sort.Strings(tokens)
	return tokens
}

// tokenize splits text into raw word candidates using the prose
// tokenizer, falling back to whitespace splitting when prose cannot
// build a document.
func tokenize(text string) []string {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return strings.Fields(text)
	}

	toks := doc.Tokens()
	words := make([]string, 0, len(toks))
	for _, tok := range toks {
		words = append(words, tok.Text)
	}
	return words
}

// normalize lowercases a token and strips everything that is not a
// letter or digit. Tokens that were pure punctuation come back empty.
func normalize(w string) string {
	w = strings.ToLower(w)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, w)
}

// Overlap returns the Jaccard ratio |a ∩ b| / |a ∪ b| of two token
// sets. Two empty sets have overlap 0.
func Overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inA := make(map[string]bool, len(a))
	for _, t := range a {
		inA[t] = true
	}

	shared := 0
	union := len(inA)
	for _, t := range b {
		if inA[t] {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

// Union merges two token sets into a sorted, deduplicated slice.
func Union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, set := range [][]string{a, b} {
		for _, t := range set {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}
