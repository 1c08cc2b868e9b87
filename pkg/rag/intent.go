package rag

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent classifies an incoming chat message before any retrieval happens.
// Smalltalk and Format turns never touch the vector store.
type Intent int

const (
	// IntentRetrieval is the default: embed the question and search.
	IntentRetrieval Intent = iota

	// IntentSmalltalk covers greetings and thanks.
	IntentSmalltalk

	// IntentFormat covers standalone answer-length instructions such as
	// "réponds en 3 lignes".
	IntentFormat
)

func (i Intent) String() string {
	switch i {
	case IntentSmalltalk:
		return "smalltalk"
	case IntentFormat:
		return "format"
	default:
		return "retrieval"
	}
}

// DefaultLineLimit applies when a format instruction names no count or the
// count cannot be parsed.
const DefaultLineLimit = 2

// smalltalkWords are matched against the trimmed, lowercased message exactly.
// A greeting embedded in a longer question is not smalltalk.
var smalltalkWords = map[string]struct{}{
	"hi":      {},
	"hello":   {},
	"hey":     {},
	"bonjour": {},
	"salut":   {},
	"coucou":  {},
	"merci":   {},
	"thanks":  {},
}

// formatPatterns match messages that are pure formatting instructions.
// Anchored so a real question containing "en 3 lignes" still retrieves.
var formatPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ré?ponds?\s+en\s+\d+\s+lignes?$`),
	regexp.MustCompile(`^reponds?\s+en\s+\d+\s+lignes?$`),
	regexp.MustCompile(`^en\s+\d+\s+lignes?$`),
	regexp.MustCompile(`^résume\s*(moi)?\s*(ça|ca|cela)?\s*en\s+\d+\s+lignes?$`),
	regexp.MustCompile(`^resume\s*(moi)?\s*(ça|ca|cela)?\s*en\s+\d+\s+lignes?$`),
	regexp.MustCompile(`^(answer|reply|respond)\s+in\s+\d+\s+lines?$`),
	regexp.MustCompile(`^summari[sz]e\s*(this|it|that)?\s*in\s+\d+\s+lines?$`),
	regexp.MustCompile(`^in\s+\d+\s+lines?$`),
}

var lineCountPattern = regexp.MustCompile(`(\d+)\s*(?:lignes?|lines?)`)

// sourceKeywords flag questions that ask where an answer comes from.
var sourceKeywords = []string{
	"source",
	"référence",
	"reference",
	"fichier",
	"document",
	"d'ou",
	"d'où",
	"prouve",
	"trace",
	"origine",
	"lien",
}

// Classify determines the intent of a raw chat message.
func Classify(message string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(message))

	if _, ok := smalltalkWords[normalized]; ok {
		return IntentSmalltalk
	}

	for _, p := range formatPatterns {
		if p.MatchString(normalized) {
			return IntentFormat
		}
	}

	return IntentRetrieval
}

// LineLimit extracts the requested line count from a format instruction.
// Returns DefaultLineLimit when no usable count is present.
func LineLimit(message string) int {
	normalized := strings.ToLower(strings.TrimSpace(message))

	m := lineCountPattern.FindStringSubmatch(normalized)
	if m == nil {
		return DefaultLineLimit
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return DefaultLineLimit
	}
	return n
}

// WantsSources reports whether the message asks for provenance. It switches
// the answer into the attributed mode, which cites source documents.
func WantsSources(message string) bool {
	normalized := strings.ToLower(message)
	for _, kw := range sourceKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
