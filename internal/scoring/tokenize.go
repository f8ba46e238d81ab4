package scoring

import "strings"

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "his": {}, "how": {},
	"that": {}, "this": {}, "with": {}, "from": {}, "they": {}, "will": {},
	"have": {}, "what": {}, "when": {}, "your": {}, "which": {}, "their": {},
	"about": {}, "would": {}, "there": {}, "other": {}, "into": {},
	"more": {}, "some": {}, "them": {}, "then": {}, "than": {}, "were": {},
	"been": {}, "also": {}, "each": {}, "these": {}, "those": {}, "such": {},
	"most": {}, "make": {}, "like": {}, "over": {}, "very": {}, "just": {},
	"should": {}, "could": {}, "because": {}, "through": {}, "where": {},
	"while": {}, "before": {}, "after": {}, "between": {}, "both": {},
	"during": {}, "only": {}, "same": {}, "being": {}, "does": {},
}

const minTokenLength = 3

// Tokenize normalizes free text into a keyword set: lowercased, split on
// non-alphanumeric runs, stop-words and tokens shorter than three
// characters dropped.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})

	var builder strings.Builder
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		token := builder.String()
		builder.Reset()
		if len(token) < minTokenLength {
			return
		}
		if _, stop := stopWords[token]; stop {
			return
		}
		tokens[token] = struct{}{}
	}

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// NormalizeKeywords tokenizes each raw keyword and merges the results, so
// callers can pass either single tokens or short phrases.
func NormalizeKeywords(keywords []string) map[string]struct{} {
	merged := make(map[string]struct{})
	for _, keyword := range keywords {
		for token := range Tokenize(keyword) {
			merged[token] = struct{}{}
		}
	}
	return merged
}
