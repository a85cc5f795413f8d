package guardrails

import (
	"regexp"
	"strings"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"of": true, "at": true, "by": true, "for": true, "with": true,
	"about": true, "against": true, "between": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"to": true, "from": true, "in": true, "on": true, "and": true,
	"or": true, "but": true, "it": true, "its": true, "this": true,
	"that": true, "these": true, "those": true, "what": true, "which": true,
	"who": true, "whom": true, "how": true, "when": true, "where": true,
	"can": true, "me": true, "my": true, "you": true, "your": true,
	"he": true, "she": true, "they": true, "his": true, "her": true,
	"their": true, "there": true, "also": true, "as": true, "any": true,
}

// tokenize lowercases s, strips punctuation and drops stop words and
// single character tokens.
func tokenize(s string) []string {
	s = strings.ToLower(s)
	s = removePunctuation(s)

	tokens := []string{}
	for word := range strings.FieldsSeq(s) {
		if !stopWords[word] && len(word) > 1 {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func uniqueTokens(tokens []string) map[string]bool {
	unique := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		unique[t] = true
	}
	return unique
}

// coverage is the share of needle tokens that occur in haystack.
// An empty needle is fully covered.
func coverage(needle, haystack map[string]bool) float64 {
	if len(needle) == 0 {
		return 1.0
	}

	count := 0
	for token := range needle {
		if haystack[token] {
			count++
		}
	}
	return float64(count) / float64(len(needle))
}

func removePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(".,!?;:()[]{}\"'", r) {
			return -1
		}
		return r
	}, s)
}

var (
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	percentPattern  = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s?%`)
	quantityPattern = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s?(ects|credits?|hours?|semesters?|years?|lectures?)\b`)
	numberPattern   = regexp.MustCompile(`\b\d{2,}\b`)
	entityPattern   = regexp.MustCompile(`[A-ZÄÖÜ][a-zäöüß]+(?:[ -][A-ZÄÖÜ][a-zäöüß]+)*`)
)

// Capitalised words that start sentences or name generic concepts rather
// than dataset entities.
var entityStopWords = map[string]bool{
	"the": true, "this": true, "that": true, "these": true, "those": true,
	"he": true, "she": true, "they": true, "it": true, "we": true,
	"yes": true, "no": true, "according": true, "based": true, "however": true,
	"unfortunately": true, "in": true, "on": true, "for": true, "there": true,
	"here": true, "additionally": true, "also": true, "currently": true, "as": true,
	"student": true, "students": true, "professor": true, "prof": true, "dr": true,
	"course": true, "courses": true, "faculty": true, "department": true, "email": true,
	"name": true, "svnr": true, "i": true, "if": true, "please": true,
	"sorry": true, "note": true, "both": true, "all": true, "some": true,
	"none": true, "each": true, "their": true, "his": true, "her": true,
}

// extractClaims returns the checkable facts and named entities of an answer,
// lowercased and de-duplicated, in order of first appearance.
func extractClaims(text string) []string {
	seen := make(map[string]bool)
	var claims []string

	add := func(claim string) {
		claim = strings.ToLower(strings.TrimSpace(claim))
		if claim == "" || seen[claim] {
			return
		}
		seen[claim] = true
		claims = append(claims, claim)
	}

	for _, re := range []*regexp.Regexp{yearPattern, percentPattern, quantityPattern} {
		for _, m := range re.FindAllString(text, -1) {
			add(m)
		}
	}

	for _, m := range numberPattern.FindAllString(text, -1) {
		add(m)
	}

	for _, m := range entityPattern.FindAllString(text, -1) {
		words := strings.Fields(strings.ReplaceAll(m, "-", " "))
		// Drop a leading sentence starter ("The Databases course" -> "Databases").
		for len(words) > 0 && entityStopWords[strings.ToLower(words[0])] {
			words = words[1:]
		}
		if len(words) == 0 {
			continue
		}
		add(strings.Join(words, " "))
	}

	return claims
}

// supported reports whether claim occurs as a whole term in the lowercased
// context. Numbers with units also count as supported when the bare number
// occurs.
func supported(claim, context string) bool {
	if termPresent(claim, context) {
		return true
	}

	if m := quantityPattern.FindStringSubmatch(claim); m != nil {
		number := strings.TrimSpace(strings.TrimSuffix(claim, m[1]))
		return termPresent(number, context)
	}

	if strings.HasSuffix(claim, "%") {
		return termPresent(strings.TrimSpace(strings.TrimSuffix(claim, "%")), context)
	}

	return false
}

// termPresent matches term only where it is not glued to another letter or
// digit, so "anna" is not found in "joanna" nor "104" in "#1045".
func termPresent(term, context string) bool {
	if term == "" {
		return false
	}
	re, err := regexp.Compile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(term) + `(?:$|[^\p{L}\p{N}])`)
	if err != nil {
		return false
	}
	return re.MatchString(context)
}
