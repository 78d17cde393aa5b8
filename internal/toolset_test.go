package internal

import (
	"reflect"
	"testing"
)

func TestActiveToolSet_Toggle(t *testing.T) {
	set := NewActiveToolSet()

	set.Toggle("read_file")
	if !set.Contains("read_file") {
		t.Error("Toggle() should enable a missing tool")
	}

	set.Toggle("read_file")
	if set.Contains("read_file") {
		t.Error("Toggle() should disable an enabled tool")
	}
}

func TestActiveToolSet_ReplaceAllThenToggle(t *testing.T) {
	set := NewActiveToolSet()

	set.ReplaceAll([]string{"A", "B"})
	set.Toggle("A")

	got := set.Snapshot()
	want := []string{"B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestActiveToolSet_ReplaceAllOverwrites(t *testing.T) {
	set := NewActiveToolSet()

	set.Toggle("user_choice")
	set.ReplaceAll([]string{"discovered_1", "discovered_2"})

	if set.Contains("user_choice") {
		t.Error("ReplaceAll() should discard prior content, not merge")
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
}

func TestActiveToolSet_SnapshotSorted(t *testing.T) {
	set := NewActiveToolSet()
	set.ReplaceAll([]string{"zeta", "alpha", "mid"})

	got := set.Snapshot()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestActiveToolSet_SnapshotIsCopy(t *testing.T) {
	set := NewActiveToolSet()
	set.ReplaceAll([]string{"A"})

	snap := set.Snapshot()
	snap[0] = "mutated"

	if !set.Contains("A") {
		t.Error("mutating a snapshot must not affect the set")
	}
}

func TestActiveToolSet_EmptySnapshot(t *testing.T) {
	set := NewActiveToolSet()
	if got := set.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() of empty set = %v, want empty", got)
	}
}
