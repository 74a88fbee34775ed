package history

import (
	"reflect"
	"testing"
	"time"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Push(Entry{Text: s})
	}

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	if got, want := r.Texts(), []string{"c", "d", "e"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Texts() = %v, want %v", got, want)
	}
	last, ok := r.Last()
	if !ok || last.Text != "e" {
		t.Errorf("Last() = %q, %v", last.Text, ok)
	}
}

func TestRingNeverExceedsCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushes   int
	}{
		{"cadence", CadenceCapacity, 37},
		{"spoken", SpokenCapacity, 12},
		{"zero capacity", 0, 4},
		{"under capacity", 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing(tt.capacity)
			for i := 0; i < tt.pushes; i++ {
				r.Push(Entry{Text: "x", At: time.Unix(int64(i), 0)})
				if r.Len() > r.Cap() {
					t.Fatalf("Len() = %d exceeds Cap() = %d", r.Len(), r.Cap())
				}
			}
			entries := r.Entries()
			for i := 1; i < len(entries); i++ {
				if entries[i].At.Before(entries[i-1].At) {
					t.Errorf("entries out of order at %d", i)
				}
			}
		})
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(2)
	r.Push(Entry{Text: "a"})
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Len() after Clear = %d", r.Len())
	}
	if _, ok := r.Last(); ok {
		t.Error("Last() reported an entry after Clear")
	}
	r.Push(Entry{Text: "b"})
	if got := r.Texts(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Texts() = %v, want [b]", got)
	}
}
