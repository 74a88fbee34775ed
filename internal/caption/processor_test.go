package caption

import (
	"reflect"
	"testing"
	"time"
)

func TestProcessor_HelloThereScenario(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inputs := []string{"Hello", "Hello there", "Hello there", "Completely different"}
	wantDecisions := []Decision{Speak, Speak, Unchanged, Speak}

	var spoken []string
	for i, text := range inputs {
		at := start.Add(time.Duration(i) * time.Second)
		u, d := p.Process(Snapshot{Text: text, ObservedAt: at})
		if d != wantDecisions[i] {
			t.Fatalf("snapshot %d (%q): decision = %v, want %v", i, text, d, wantDecisions[i])
		}
		if d == Speak {
			if u.ID == "" {
				t.Errorf("snapshot %d: utterance has no ID", i)
			}
			if !u.EnqueuedAt.Equal(at) {
				t.Errorf("snapshot %d: EnqueuedAt = %v, want %v", i, u.EnqueuedAt, at)
			}
			spoken = append(spoken, u.Text)
			p.MarkSpoken(u.Text, at)
		}
	}

	want := []string{"Hello", " there", "Completely different"}
	if !reflect.DeepEqual(spoken, want) {
		t.Errorf("spoken = %q, want %q", spoken, want)
	}
	if n := len(p.Cadence()); n != 3 {
		t.Errorf("cadence entries = %d, want 3", n)
	}
}

func TestProcessor_Decisions(t *testing.T) {
	tests := []struct {
		name   string
		prior  []string
		spoken []string
		text   string
		want   Decision
	}{
		{name: "noise", text: "<div>", want: Rejected},
		{name: "repeat of last", prior: []string{"Hello there"}, text: "  Hello there ", want: Unchanged},
		{name: "shrunk caption", prior: []string{"Hello there"}, text: "Hello", want: NoDelta},
		{name: "already spoken", prior: []string{"First line"}, spoken: []string{"Second line"}, text: "Second line", want: Duplicate},
		{name: "new line", prior: []string{"First line"}, text: "Another one", want: Speak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(DefaultOptions())
			now := time.Now()
			for _, s := range tt.prior {
				p.Process(Snapshot{Text: s, ObservedAt: now})
			}
			for _, s := range tt.spoken {
				p.MarkSpoken(s, now)
			}
			if _, got := p.Process(Snapshot{Text: tt.text, ObservedAt: now}); got != tt.want {
				t.Errorf("Process(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestProcessor_HistoriesStayBounded(t *testing.T) {
	opts := DefaultOptions()
	p := NewProcessor(opts)
	now := time.Now()

	for i := 0; i < 40; i++ {
		text := string(rune('A'+i%26)) + " caption number " + string(rune('a'+i%26))
		p.Process(Snapshot{Text: text, ObservedAt: now.Add(time.Duration(i) * time.Second)})
		p.MarkSpoken(text, now)
	}

	if n := len(p.Cadence()); n != opts.CadenceCapacity {
		t.Errorf("cadence = %d entries, want %d", n, opts.CadenceCapacity)
	}
	if n := len(p.Spoken()); n != opts.SpokenCapacity {
		t.Errorf("spoken = %d entries, want %d", n, opts.SpokenCapacity)
	}
}

func TestProcessor_ResetAndTranslated(t *testing.T) {
	p := NewProcessor(DefaultOptions())
	now := time.Now()

	p.Process(Snapshot{Text: "Hello", ObservedAt: now})
	p.MarkSpoken("Hello", now)
	p.Reset()

	if len(p.Cadence()) != 0 || len(p.Spoken()) != 0 {
		t.Fatal("Reset left history behind")
	}

	p.SetTranslated(true)
	u, d := p.Process(Snapshot{Text: "Hello", ObservedAt: now})
	if d != Speak {
		t.Fatalf("decision after Reset = %v, want %v", d, Speak)
	}
	if u.Text != "Hello" || !u.IsTranslated {
		t.Errorf("utterance = %+v, want translated full text", u)
	}
}
