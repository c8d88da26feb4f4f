package stoplist

import "strings"

// defaultTerms are the common English words dropped before vectorizing support text.
var defaultTerms = []string{
	"the", "a", "an", "is", "are", "was", "were", "in", "on", "at", "to", "for", "of", "and", "or",
	"not", "with", "this", "that", "from", "by", "it", "as", "be", "has", "had", "have", "will",
	"can", "may", "i", "my", "we", "our", "you", "your", "been", "being", "more", "than", "about",
	"which", "would", "could", "should", "their", "there", "them", "these", "those", "each",
	"all", "both", "other", "such", "only", "then", "just", "because", "but", "so", "if", "while",
	"where", "how", "what", "who", "its", "also", "into", "when", "after", "before", "during",
}

// DefaultTerms returns a copy of the built-in stop-word list.
func DefaultTerms() []string {
	out := make([]string, len(defaultTerms))
	copy(out, defaultTerms)
	return out
}

// Manager holds a stop-word set.
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a manager seeded with the given terms
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]struct{}, len(initialStops))
	for _, s := range initialStops {
		stops[strings.ToLower(s)] = struct{}{}
	}
	return &Manager{stops: stops}
}

// Default returns a manager seeded with DefaultTerms.
func Default() *Manager {
	return NewManager(defaultTerms)
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	m.stops[strings.ToLower(token)] = struct{}{}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// All returns all stopwords
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	return result
}

// Len reports how many terms are in the set.
func (m *Manager) Len() int {
	return len(m.stops)
}
