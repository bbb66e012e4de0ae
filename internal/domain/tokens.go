package domain

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "all": {}, "an": {}, "and": {}, "any": {}, "are": {}, "be": {}, "been": {},
	"can": {}, "could": {}, "did": {}, "display": {}, "doe": {}, "find": {}, "for": {},
	"from": {}, "get": {}, "give": {}, "has": {}, "have": {}, "how": {}, "in": {}, "is": {},
	"list": {}, "me": {}, "much": {}, "my": {}, "of": {}, "on": {}, "our": {}, "please": {},
	"show": {}, "tell": {}, "that": {}, "the": {}, "their": {}, "there": {}, "these": {},
	"this": {}, "those": {}, "to": {}, "was": {}, "were": {}, "what": {},
	"which": {}, "who": {}, "with": {}, "would": {},
}

var groupingWords = map[string]struct{}{
	"by": {}, "per": {}, "each": {}, "across": {}, "over": {},
}

// Tokenize lower-cases text, splits it on non-alphanumeric boundaries and
// camelCase humps, and reduces simple plurals to their singular form.
func Tokenize(text string) []string {
	var tokens []string
	var current []rune
	flush := func() {
		if len(current) == 0 {
			return
		}
		tokens = append(tokens, singular(strings.ToLower(string(current))))
		current = current[:0]
	}

	runes := []rune(text)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
			flush()
		}
		current = append(current, r)
	}
	flush()
	return tokens
}

// ContentTokens returns the tokens of text that carry meaning: stop words and
// tokens shorter than three characters are removed, order is preserved and
// duplicates are dropped.
func ContentTokens(text string) []string {
	return contentOf(Tokenize(text), nil)
}

// MetricTokens is ContentTokens without the grouping targets, i.e. the words
// that describe the measured quantity rather than the breakdown.
func MetricTokens(text string) []string {
	tokens := Tokenize(text)
	return contentOf(tokens, groupingPositions(tokens))
}

// GroupingTargets returns the words that follow a grouping preposition
// ("by year", "per state and month").
func GroupingTargets(text string) []string {
	tokens := Tokenize(text)
	positions := groupingPositions(tokens)
	targets := make([]string, 0, len(positions))
	seen := map[string]struct{}{}
	for i, t := range tokens {
		if _, ok := positions[i]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		targets = append(targets, t)
	}
	return targets
}

// IsStopWord reports whether token is ignored for matching purposes.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

func groupingPositions(tokens []string) map[int]struct{} {
	positions := map[int]struct{}{}
	for i := 0; i < len(tokens); i++ {
		if _, ok := groupingWords[tokens[i]]; !ok {
			continue
		}
		j := i + 1
		for j < len(tokens) {
			if tokens[j] == "the" || tokens[j] == "each" {
				j++
				continue
			}
			positions[j] = struct{}{}
			if j+2 < len(tokens) && tokens[j+1] == "and" {
				j += 2
				continue
			}
			break
		}
		i = j
	}
	return positions
}

func contentOf(tokens []string, skip map[int]struct{}) []string {
	out := make([]string, 0, len(tokens))
	seen := map[string]struct{}{}
	for i, t := range tokens {
		if _, ok := skip[i]; ok {
			continue
		}
		if len(t) < 3 || IsStopWord(t) {
			continue
		}
		if _, ok := groupingWords[t]; ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func singular(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case len(word) > 3 && strings.HasSuffix(word, "s") &&
		!strings.HasSuffix(word, "ss") && !strings.HasSuffix(word, "us") && !strings.HasSuffix(word, "is"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}
