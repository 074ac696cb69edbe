package domain

import (
	"reflect"
	"testing"
)

func TestReorder(t *testing.T) {
	cases := map[string]struct {
		from, to int
		want     []string
	}{
		"down":      {0, 2, []string{"b", "c", "a", "d"}},
		"up":        {3, 1, []string{"a", "d", "b", "c"}},
		"to_end":    {0, 3, []string{"b", "c", "d", "a"}},
		"to_start":  {2, 0, []string{"c", "a", "b", "d"}},
		"same_spot": {1, 1, []string{"a", "b", "c", "d"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := []string{"a", "b", "c", "d"}
			got := Reorder(in, tc.from, tc.to)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Reorder(%d, %d) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
			if !reflect.DeepEqual(in, []string{"a", "b", "c", "d"}) {
				t.Fatalf("input mutated: %v", in)
			}
		})
	}
}

func TestReorderRoundTrip(t *testing.T) {
	in := []int{10, 20, 30, 40, 50}
	for i := range in {
		for j := range in {
			if i == j {
				continue
			}
			moved := Reorder(in, i, j)
			if len(moved) != len(in) {
				t.Fatalf("length changed for (%d,%d): %v", i, j, moved)
			}
			if moved[j] != in[i] {
				t.Fatalf("element %d not at %d: %v", in[i], j, moved)
			}
			back := Reorder(moved, j, i)
			if !reflect.DeepEqual(back, in) {
				t.Fatalf("round trip (%d,%d) = %v, want %v", i, j, back, in)
			}
		}
	}
}

func TestReorderKeepsRelativeOrder(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}
	got := Reorder(in, 4, 1)
	rest := make([]int, 0, len(got)-1)
	for _, v := range got {
		if v != 5 {
			rest = append(rest, v)
		}
	}
	if !reflect.DeepEqual(rest, []int{1, 2, 3, 4, 6}) {
		t.Fatalf("relative order broken: %v", got)
	}
}
