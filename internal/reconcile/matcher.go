package reconcile

import "github.com/marginalia-app/marginalia-server/internal/domain"

// Decision classifies a candidate highlight against a chapter's existing rows.
type Decision int

const (
	// DecisionNew means no existing row carries the candidate's dedup key.
	DecisionNew Decision = iota
	// DecisionDuplicate means an active row already carries the key.
	DecisionDuplicate
	// DecisionTombstoned means a soft-deleted row carries the key. The
	// candidate must not be recreated while the tombstone stands.
	DecisionTombstoned
)

// String returns the decision name for logs.
func (d Decision) String() string {
	switch d {
	case DecisionNew:
		return "new"
	case DecisionDuplicate:
		return "duplicate"
	case DecisionTombstoned:
		return "tombstoned"
	default:
		return "unknown"
	}
}

// Index holds one chapter's existing highlights keyed by dedup key.
// Built once per chapter per upload so classifying a batch of N candidates
// against M existing rows is O(N+M) rather than O(N*M).
type Index struct {
	active     map[string]string // dedup key -> highlight ID
	tombstoned map[string]string
}

// BuildIndex indexes a chapter's existing rows, tombstoned rows included.
func BuildIndex(existing []*domain.Highlight) *Index {
	idx := &Index{
		active:     make(map[string]string, len(existing)),
		tombstoned: make(map[string]string),
	}
	for _, h := range existing {
		if h.Deleted() {
			idx.tombstoned[h.DedupKey] = h.ID
		} else {
			idx.active[h.DedupKey] = h.ID
		}
	}
	return idx
}

// Classify decides whether a dedup key names an existing highlight.
// Pure lookup, no side effects. Returns the matched row's ID for
// DecisionDuplicate and DecisionTombstoned, empty for DecisionNew.
func (idx *Index) Classify(dedupKey string) (Decision, string) {
	if id, ok := idx.active[dedupKey]; ok {
		return DecisionDuplicate, id
	}
	if id, ok := idx.tombstoned[dedupKey]; ok {
		return DecisionTombstoned, id
	}
	return DecisionNew, ""
}

// Add records a newly inserted highlight so later candidates in the same
// batch classify as duplicates instead of racing the unique index.
func (idx *Index) Add(dedupKey, highlightID string) {
	idx.active[dedupKey] = highlightID
}
