package ids

import "testing"

func TestNewProducesUniqueSortedIDs(t *testing.T) {
	const n = 1000
	seen := make(map[string]bool, n)
	var prev string
	for i := 0; i < n; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("unexpected id length: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id: %q", id)
		}
		seen[id] = true
		if prev != "" && id < prev {
			t.Fatalf("ids not monotonic: %q after %q", id, prev)
		}
		prev = id
	}
}
