package catalog

import "testing"

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Size() != 3 {
		t.Fatalf("size=%d, want 3", c.Size())
	}

	if _, ok := c.Lookup("no-assistance"); !ok {
		t.Fatal("no-assistance missing")
	}
	if !c.ChatDisabled("no-assistance") {
		t.Fatal("no-assistance should have chat disabled")
	}
	if c.ChatDisabled("meta-llama/Llama-3.2-3B-Instruct") {
		t.Fatal("llama model should allow chat")
	}
	if _, ok := c.Lookup("nonexistent"); ok {
		t.Fatal("unknown id resolved")
	}
}

func TestShuffledIDs_Permutation(t *testing.T) {
	c := Default()
	ids := c.ShuffledIDs()
	if len(ids) != c.Size() {
		t.Fatalf("got %d ids, want %d", len(ids), c.Size())
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.Lookup(id); !ok {
			t.Fatalf("shuffled id %q not in catalog", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
