package search

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pders01/ranobe/internal/catalog"
	"github.com/pders01/ranobe/internal/storage"
)

// Result is a novel matched by a query.
type Result struct {
	Novel   catalog.NovelBrief
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "title", "other_titles", "authors", "tags", "description"
	Text   string
	Weight float64
}

// Engine scores cached novels in process. It needs no index and is the
// fallback when bleve is unavailable.
type Engine struct {
	store *storage.Store
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	novels, err := e.store.GetAllNovels()
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, cached := range novels {
		if r := e.searchNovel(&cached.Novel, terms); r != nil {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) searchNovel(n *catalog.NovelDetail, terms []string) *Result {
	fields := []struct {
		name   string
		text   string
		weight float64
	}{
		{"title", n.Title, 4.0},
		{"other_titles", strings.Join(n.OtherTitles, " / "), 3.0},
		{"authors", strings.Join(n.Authors, ", "), 2.0},
		{"tags", strings.Join(n.Tags, ", "), 1.5},
		{"description", n.DescriptionOrEmpty(), 1.0},
	}

	var matches []Match
	var total float64
	for _, f := range fields {
		score := scoreField(f.text, terms, f.weight)
		if score <= 0 {
			continue
		}
		text := f.text
		if f.name == "description" {
			text = findBestSnippet(f.text, terms, 150)
		}
		matches = append(matches, Match{Field: f.name, Text: text, Weight: score})
		total += score
	}

	if total == 0 {
		return nil
	}
	return &Result{Novel: n.Brief(), Score: total, Matches: matches}
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	folded := Fold(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0
	for _, term := range terms {
		if strings.Contains(folded, term) {
			score += 2.0
			matchedTerms++
		}
		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet returns a snippet of at most maxLength runes around the
// densest run of search terms in text.
func findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	windowSize := max(maxLength/8, 1)
	if windowSize > len(words) {
		windowSize = len(words)
	}

	bestScore, bestStart := 0.0, 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := Fold(strings.Join(words[i:i+windowSize], " "))
		score := 0.0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore, bestStart = score, i
		}
	}

	anchor := bestStart
	for i := bestStart; i < bestStart+windowSize; i++ {
		if containsAny(Fold(words[i]), terms) {
			anchor = i
			break
		}
	}
	return snippetAround(words, anchor, maxLength)
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// snippetAround grows a snippet outwards from words[anchor], one word to
// each side in turn, leaving room for the ellipses on both ends.
func snippetAround(words []string, anchor, maxLength int) string {
	budget := maxLength - 2
	start, end := anchor, anchor+1
	length := utf8.RuneCountInString(words[anchor])
	for {
		grew := false
		if end < len(words) {
			if n := length + 1 + utf8.RuneCountInString(words[end]); n <= budget {
				length, end, grew = n, end+1, true
			}
		}
		if start > 0 {
			if n := length + 1 + utf8.RuneCountInString(words[start-1]); n <= budget {
				length, start, grew = n, start-1, true
			}
		}
		if !grew {
			break
		}
	}

	snippet := strings.Join(words[start:end], " ")
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(words) {
		snippet += "…"
	}
	return truncate(snippet, maxLength)
}

// tokenize folds text and splits it into terms of two or more characters.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if term := current.String(); len([]rune(term)) > 1 {
			terms = append(terms, term)
		}
		current.Reset()
	}
	for _, r := range Fold(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			flush()
		}
	}
	flush()
	return terms
}

// truncate limits text length with ellipsis
func truncate(text string, maxLen int) string {
	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	return string(r[:maxLen-1]) + "…"
}
