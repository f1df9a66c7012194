package roster

import (
	"sort"
	"testing"
)

func defaultOrderer() *Orderer {
	return NewOrderer([]string{"2BA20AI", "2BA22AI"})
}

func usns(students []Student) []string {
	out := make([]string, len(students))
	for i, s := range students {
		out[i] = s.USN
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortStructured(t *testing.T) {
	o := defaultOrderer()

	students := []Student{
		{USN: "2BA22AI003"},
		{USN: "1BA21CS045"},
		{USN: "1BA21CS009"},
	}
	o.SortStructured(students)

	want := []string{"1BA21CS009", "1BA21CS045", "2BA22AI003"}
	if got := usns(students); !equalStrings(got, want) {
		t.Errorf("SortStructured = %v, want %v", got, want)
	}
}

func TestSortStructuredNumericSuffix(t *testing.T) {
	o := defaultOrderer()

	students := []Student{
		{USN: "1BA21CS10"},
		{USN: "1BA21CS9"},
		{USN: "1BA21CS100"},
	}
	o.SortStructured(students)

	want := []string{"1BA21CS9", "1BA21CS10", "1BA21CS100"}
	if got := usns(students); !equalStrings(got, want) {
		t.Errorf("SortStructured = %v, want %v", got, want)
	}
}

func TestSortStructuredMalformedLast(t *testing.T) {
	o := defaultOrderer()

	students := []Student{
		{USN: "TEMP-02"},
		{USN: "1BA21CS045"},
		{USN: "TEMP-01"},
		{USN: "1BA21IS001"},
	}
	o.SortStructured(students)

	want := []string{"1BA21CS045", "1BA21IS001", "TEMP-01", "TEMP-02"}
	if got := usns(students); !equalStrings(got, want) {
		t.Errorf("SortStructured = %v, want %v", got, want)
	}
}

func TestSortFlatDeprioritizedLast(t *testing.T) {
	o := defaultOrderer()

	students := []Student{
		{USN: "2BA20AI011"},
		{USN: "1BA21CS045"},
		{USN: "2ba22ai003"}, // prefix match is case-insensitive
		{USN: "1BA21EC002"},
	}
	o.SortFlat(students)

	want := []string{"1BA21CS045", "1BA21EC002", "2BA20AI011", "2ba22ai003"}
	if got := usns(students); !equalStrings(got, want) {
		t.Errorf("SortFlat = %v, want %v", got, want)
	}
}

func TestOrderIsTotal(t *testing.T) {
	o := defaultOrderer()

	all := []string{
		"1BA21CS045", "1BA21CS009", "2BA22AI003", "2BA20AI011",
		"TEMP-01", "1BA21IS001", "1BA21CS9", "1BA21CS10",
	}

	for _, less := range []func(a, b string) bool{o.LessFlat, o.LessStructured} {
		// Antisymmetry over all pairs.
		for _, a := range all {
			for _, b := range all {
				if a == b {
					continue
				}
				if less(a, b) == less(b, a) {
					t.Errorf("order not antisymmetric for %q vs %q", a, b)
				}
			}
		}
		// Sorting any permutation yields the same sequence.
		first := append([]string(nil), all...)
		sort.SliceStable(first, func(i, j int) bool { return less(first[i], first[j]) })
		shuffled := []string{
			"1BA21CS10", "TEMP-01", "2BA20AI011", "1BA21CS045",
			"1BA21CS9", "2BA22AI003", "1BA21IS001", "1BA21CS009",
		}
		sort.SliceStable(shuffled, func(i, j int) bool { return less(shuffled[i], shuffled[j]) })
		if !equalStrings(first, shuffled) {
			t.Errorf("order not deterministic: %v vs %v", first, shuffled)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"José  García", "jose garcia"},
		{"ANANYA RAO", "ananya rao"},
		{"  Priya   Shetty ", "priya shetty"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
