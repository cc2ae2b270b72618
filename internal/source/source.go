package source

import (
	"fmt"

	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/ports"
)

// Entry binds a fetcher to its human-readable label and origin so the
// orchestrator can attribute and prioritize its documents.
type Entry struct {
	Label   string
	Origin  domain.Origin
	Fetcher ports.DocumentSource
}

// Registry keeps intake channels in priority order: the order entries are
// registered decides which duplicate wins during deduplication.
type Registry struct {
	entries []Entry
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a channel; earlier registrations take priority.
func (r *Registry) Register(label string, origin domain.Origin, fetcher ports.DocumentSource) {
	r.entries = append(r.entries, Entry{Label: label, Origin: origin, Fetcher: fetcher})
}

// Entries returns channels in registration (priority) order.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Resolve returns a channel by label or an error if it is absent.
func (r *Registry) Resolve(label string) (Entry, error) {
	for _, entry := range r.entries {
		if entry.Label == label {
			return entry, nil
		}
	}
	return Entry{}, fmt.Errorf("source %s is not registered", label)
}

// Stamp fills in the label and origin on documents a fetcher produced
// without attribution.
func Stamp(docs []domain.IntakeDocument, entry Entry) []domain.IntakeDocument {
	for i := range docs {
		if docs[i].SourceLabel == "" {
			docs[i].SourceLabel = entry.Label
		}
		if docs[i].Origin == "" {
			docs[i].Origin = entry.Origin
		}
	}
	return docs
}
