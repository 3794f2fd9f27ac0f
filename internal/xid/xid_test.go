package xid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	seen := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		id := New("sale")
		if !strings.HasPrefix(id, "sale-") {
			t.Fatalf("expected sale- prefix, got %q", id)
		}
		if _, err := uuid.Parse(strings.TrimPrefix(id, "sale-")); err != nil {
			t.Fatalf("expected uuid suffix in %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
