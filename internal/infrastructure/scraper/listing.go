package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/worthit/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	nonDigitRegex    = regexp.MustCompile(`[^\d]`)
	paiseSuffixRegex = regexp.MustCompile(`(\d)\.\d{1,2}$`)
	punctuationRegex = regexp.MustCompile(`[^\w\s]`)
)

// fuzzyThreshold is the edit distance tolerated between a query word and a
// title word
const fuzzyThreshold = 1

// Listing is one product card scraped from a search results page
type Listing struct {
	Title  string
	Price  *float64
	Rating string
	URL    string
}

// CleanPrice turns a price label like "₹75,999.00" into whole rupees
// (75999). A trailing paise part is dropped, then every non-digit.
func CleanPrice(label string) *float64 {
	label = strings.TrimSpace(label)
	label = paiseSuffixRegex.ReplaceAllString(label, "$1")
	digits := nonDigitRegex.ReplaceAllString(label, "")
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	return &v
}

// MatchTitle reports whether every query word appears in title. Words of
// four or more letters may differ from a title word by one edit.
func MatchTitle(title, query string) bool {
	titleLower := strings.ToLower(title)
	titleTokens := tokenize(titleLower)

	for _, word := range tokenize(strings.ToLower(query)) {
		if strings.Contains(titleLower, word) {
			continue
		}
		if !anyFuzzyMatch(word, titleTokens) {
			return false
		}
	}
	return true
}

// Cheapest returns the lowest-priced listing. When nothing is priced the
// first listing is returned; nil only for an empty slice.
func Cheapest(listings []Listing) *Listing {
	if len(listings) == 0 {
		return nil
	}

	var best *Listing
	for i := range listings {
		l := &listings[i]
		if l.Price == nil {
			continue
		}
		if best == nil || *l.Price < *best.Price {
			best = l
		}
	}
	if best == nil {
		return &listings[0]
	}
	return best
}

// ToResult picks the cheapest listing matching query. No match yields an
// empty result, which is not a failure.
func ToResult(listings []Listing, query string) *domain.ProductResult {
	matched := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.Title != "" && MatchTitle(l.Title, query) {
			matched = append(matched, l)
		}
	}

	best := Cheapest(matched)
	if best == nil {
		return &domain.ProductResult{}
	}
	return &domain.ProductResult{
		Title:  best.Title,
		Price:  best.Price,
		Rating: best.Rating,
		URL:    best.URL,
	}
}

// tokenize splits a lowercase string into words, dropping punctuation
func tokenize(s string) []string {
	return strings.Fields(punctuationRegex.ReplaceAllString(s, " "))
}

func anyFuzzyMatch(word string, tokens []string) bool {
	for _, t := range tokens {
		if fuzzyTokenMatch(word, t, fuzzyThreshold) {
			return true
		}
	}
	return false
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens >= 4 chars to avoid false positives
	// like "15" vs "16"
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
