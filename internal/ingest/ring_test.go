package ingest

import "testing"

func TestRing_AddAndContains(t *testing.T) {
	r := NewRing(3)
	r.Add("a")
	r.Add("b")

	if !r.Contains("a") || !r.Contains("b") {
		t.Error("added entries should be present")
	}
	if r.Contains("c") {
		t.Error("absent entry reported present")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		r.Add(id)
	}

	if r.Contains("a") {
		t.Error("oldest entry should be evicted at capacity")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !r.Contains(id) {
			t.Errorf("entry %q should survive", id)
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want capacity", r.Len())
	}
}

func TestRing_DuplicateAddIsNoop(t *testing.T) {
	r := NewRing(3)
	r.Add("a")
	r.Add("b")
	r.Add("a")

	if r.Len() != 2 {
		t.Errorf("Len = %d after duplicate add, want 2", r.Len())
	}
}

func TestRing_RecentNewestFirst(t *testing.T) {
	r := NewRing(4)
	for _, id := range []string{"a", "b", "c"} {
		r.Add(id)
	}

	got := r.Recent(2)
	if len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Errorf("Recent(2) = %v, want [c b]", got)
	}

	all := r.Recent(10)
	if len(all) != 3 {
		t.Errorf("Recent(10) = %v, want all 3 entries", all)
	}
}

func TestRing_RecentAfterWrap(t *testing.T) {
	r := NewRing(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		r.Add(id)
	}

	got := r.Recent(3)
	if len(got) != 3 || got[0] != "e" || got[1] != "d" || got[2] != "c" {
		t.Errorf("Recent(3) = %v, want [e d c]", got)
	}
}
