package mdstream

import (
	"reflect"
	"testing"
)

func TestExtractRefLabels(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"shortcut [one] ref\n", []string{"one"}},
		{"full [text][label] ref\n", []string{"label"}},
		{"collapsed [Label][] ref\n", []string{"label"}},
		{"inline [text](url) is not a ref\n", nil},
		{"escaped \\[not] a ref\n", nil},
		{"footnote [^f] skipped\n", nil},
		{"[a] and [b] and [a]\n", []string{"a", "b", "a"}},
		{"case [MiXeD]\n", []string{"mixed"}},
		{"spaces [two  words]\n", []string{"two words"}},
		{"```\n[fenced] ignored\n```\n", nil},
	}
	for _, tc := range cases {
		got := extractRefLabels(tc.raw)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("extractRefLabels(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestRefTrackerOrderAndDedup(t *testing.T) {
	tr := newRefTracker()
	tr.record(1, []string{"a", "b"})
	tr.record(2, []string{"a"})
	tr.record(3, []string{"b", "a", "a"})

	got := tr.define("A", 9)
	want := []BlockID{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("define(a) = %v, want %v", got, want)
	}

	// Redefinition does not re-invalidate.
	if again := tr.define("a", 10); again != nil {
		t.Errorf("second define = %v, want nil", again)
	}

	if got := tr.define("b", 11); !reflect.DeepEqual(got, []BlockID{1, 3}) {
		t.Errorf("define(b) = %v", got)
	}
}

func TestDefinitionBeforeAnyUsage(t *testing.T) {
	s := mustStream(t, WithReferenceDefinitions(RefDefInvalidate))
	u := s.Append([]byte("[early]: https://example.com\n\nUses [early] later.\n\n"))
	if len(u.Invalidated) != 0 {
		t.Errorf("definition must not invalidate later blocks, got %v", u.Invalidated)
	}
}

func TestMultipleUsersInvalidatedOnce(t *testing.T) {
	s := mustStream(t, WithReferenceDefinitions(RefDefInvalidate))

	u := s.Append([]byte("First uses [x].\n\nSecond uses [x] and [x].\n\n"))
	if len(u.Committed) != 2 {
		t.Fatalf("got %d commits", len(u.Committed))
	}
	a, b := u.Committed[0].ID, u.Committed[1].ID

	u = s.Append([]byte("[x]: https://example.com\n"))
	want := []BlockID{a, b}
	if !reflect.DeepEqual(u.Invalidated, want) {
		t.Errorf("invalidated = %v, want %v", u.Invalidated, want)
	}
}

func TestCaseInsensitiveLabelMatch(t *testing.T) {
	s := mustStream(t, WithReferenceDefinitions(RefDefInvalidate))
	u := s.Append([]byte("See [Spec Docs].\n\n"))
	used := u.Committed[0].ID
	u = s.Append([]byte("[spec  docs]: https://example.com\n"))
	if len(u.Invalidated) != 1 || u.Invalidated[0] != used {
		t.Errorf("invalidated = %v, want [%d]", u.Invalidated, used)
	}
}

func TestFencedUsageNotInvalidated(t *testing.T) {
	s := mustStream(t, WithReferenceDefinitions(RefDefInvalidate))
	s.Append([]byte("```\nliteral [x] here\n```\n\n"))
	u := s.Append([]byte("[x]: https://example.com\n"))
	if len(u.Invalidated) != 0 {
		t.Errorf("fenced usage invalidated: %v", u.Invalidated)
	}
}

func TestRefDefOffByDefault(t *testing.T) {
	s := mustStream(t)
	s.Append([]byte("See [ref].\n\n"))
	u := s.Append([]byte("[ref]: https://example.com\n"))
	if len(u.Invalidated) != 0 {
		t.Errorf("tracker disabled but invalidated = %v", u.Invalidated)
	}
	// The definition still splits into its own block.
	if len(u.Committed) != 1 || u.Committed[0].Raw != "[ref]: https://example.com\n" {
		t.Errorf("committed = %+v", u.Committed)
	}
}
