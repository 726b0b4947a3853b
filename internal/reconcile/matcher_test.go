package reconcile

import (
	"testing"
	"time"

	"github.com/marginalia-app/marginalia-server/internal/domain"
)

func TestClassify(t *testing.T) {
	deleted := time.Now().UTC()
	existing := []*domain.Highlight{
		{ID: "hl-active", DedupKey: "key-active"},
		{ID: "hl-dead", DedupKey: "key-dead", DeletedAt: &deleted},
	}
	idx := BuildIndex(existing)

	tests := []struct {
		name   string
		key    string
		want   Decision
		wantID string
	}{
		{"active row", "key-active", DecisionDuplicate, "hl-active"},
		{"tombstoned row", "key-dead", DecisionTombstoned, "hl-dead"},
		{"unseen key", "key-fresh", DecisionNew, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotID := idx.Classify(tt.key)
			if got != tt.want || gotID != tt.wantID {
				t.Errorf("Classify(%s) = (%v, %q), want (%v, %q)", tt.key, got, gotID, tt.want, tt.wantID)
			}
		})
	}
}

func TestIndexAdd(t *testing.T) {
	idx := BuildIndex(nil)

	if d, _ := idx.Classify("key-1"); d != DecisionNew {
		t.Fatalf("expected new, got %v", d)
	}

	// Inserted rows become duplicates for the rest of the batch.
	idx.Add("key-1", "hl-1")
	d, id := idx.Classify("key-1")
	if d != DecisionDuplicate || id != "hl-1" {
		t.Errorf("expected duplicate of hl-1, got (%v, %q)", d, id)
	}
}

func TestBuildIndexEmpty(t *testing.T) {
	idx := BuildIndex([]*domain.Highlight{})
	if d, _ := idx.Classify("anything"); d != DecisionNew {
		t.Errorf("empty index must classify everything as new, got %v", d)
	}
}

func TestDecisionString(t *testing.T) {
	if DecisionNew.String() != "new" || DecisionDuplicate.String() != "duplicate" || DecisionTombstoned.String() != "tombstoned" {
		t.Error("unexpected decision names")
	}
}
