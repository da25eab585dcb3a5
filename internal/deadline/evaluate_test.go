package deadline

import (
	"testing"
	"time"
)

func TestFiresTodayNormal(t *testing.T) {
	t.Parallel()
	ref := date(2026, time.January, 14)
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"first deadline matches", Record{Deadline1: ref}, true},
		{"second deadline matches", Record{Deadline2: ref}, true},
		{"post date matches", Record{PostDate: ref}, true},
		{"deadline tomorrow", Record{Deadline1: ref.AddDate(0, 0, 1)}, false},
		{"deadline yesterday", Record{Deadline1: ref.AddDate(0, 0, -1)}, false},
		{"all absent", Record{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FiresToday(tt.rec, ref, false); got != tt.want {
				t.Fatalf("FiresToday = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFiresTodayCatchUp(t *testing.T) {
	t.Parallel()
	ref := date(2026, time.January, 14)
	rec := Record{Deadline1: ref.AddDate(0, 0, -3)}

	if FiresToday(rec, ref, false) {
		t.Fatal("passed deadline must not fire in normal mode")
	}
	if !FiresToday(rec, ref, true) {
		t.Fatal("passed deadline must fire in catch-up mode")
	}
	if FiresToday(Record{Deadline1: ref.AddDate(0, 0, 1)}, ref, true) {
		t.Fatal("future deadline must not fire in catch-up mode")
	}
}

// Once catch-up fires for some reference date, it fires for every later one.
func TestFiresTodayCatchUpMonotone(t *testing.T) {
	t.Parallel()
	d := date(2026, time.January, 14)
	rec := Record{Deadline2: d}

	fired := false
	for ref := d.AddDate(0, 0, -2); ref.Before(d.AddDate(0, 0, 30)); ref = ref.AddDate(0, 0, 1) {
		got := FiresToday(rec, ref, true)
		if fired && !got {
			t.Fatalf("catch-up regressed to false at %v", ref)
		}
		if got {
			fired = true
		}
	}
	if !fired {
		t.Fatal("catch-up never fired")
	}
}

func TestAheadDeadlines(t *testing.T) {
	t.Parallel()
	ref := date(2026, time.January, 14)
	d1 := date(2026, time.February, 1)
	d2 := date(2026, time.January, 20)

	tests := []struct {
		name string
		rec  Record
		want []time.Time
	}{
		{"sorted ascending", Record{Deadline1: d1, Deadline2: d2}, []time.Time{d2, d1}},
		{"past excluded", Record{Deadline1: ref.AddDate(0, 0, -1), Deadline2: d2}, []time.Time{d2}},
		{"ref itself included", Record{Deadline1: ref}, []time.Time{ref}},
		{"duplicates collapse", Record{Deadline1: d1, Deadline2: d1}, []time.Time{d1}},
		{"post date not included", Record{PostDate: d1}, nil},
		{"all absent", Record{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AheadDeadlines(tt.rec, ref)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
