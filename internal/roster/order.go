package roster

import (
	"sort"
	"strings"
)

// Orderer sorts students deterministically by USN. Students whose USN starts
// with one of the deprioritized prefixes always sort after everyone else;
// within each partition the order is either raw-string lexicographic (flat,
// for roster and manual-entry listings) or structured component-wise
// (for dated attendance reports).
type Orderer struct {
	deprioritized []string // upper-cased prefixes
}

// NewOrderer creates an Orderer with the given deprioritized USN prefixes.
// Prefix matching is case-insensitive.
func NewOrderer(deprioritizedPrefixes []string) *Orderer {
	prefixes := make([]string, 0, len(deprioritizedPrefixes))
	for _, p := range deprioritizedPrefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Orderer{deprioritized: prefixes}
}

// Deprioritized reports whether the USN belongs to a deprioritized cohort.
func (o *Orderer) Deprioritized(usn string) bool {
	u := strings.ToUpper(usn)
	for _, p := range o.deprioritized {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// LessFlat is the listing order: deprioritized cohorts last, raw USN
// lexicographic within each partition.
func (o *Orderer) LessFlat(a, b string) bool {
	da, db := o.Deprioritized(a), o.Deprioritized(b)
	if da != db {
		return !da
	}
	return strings.ToUpper(a) < strings.ToUpper(b)
}

// LessStructured is the report order: deprioritized cohorts last, then
// well-formed USNs component-wise with the roll number compared as an
// integer. Non-conforming USNs sort after all well-formed ones, by raw
// string.
func (o *Orderer) LessStructured(a, b string) bool {
	da, db := o.Deprioritized(a), o.Deprioritized(b)
	if da != db {
		return !da
	}

	pa, okA := ParseUSN(a)
	pb, okB := ParseUSN(b)
	if okA != okB {
		return okA // well-formed before malformed
	}
	if !okA {
		return strings.ToUpper(a) < strings.ToUpper(b)
	}
	if c := pa.compare(pb); c != 0 {
		return c < 0
	}
	// Identical structured keys (duplicate USNs should not happen, but the
	// order must stay total).
	return strings.ToUpper(a) < strings.ToUpper(b)
}

// SortFlat sorts students in place using the flat listing order.
func (o *Orderer) SortFlat(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		return o.LessFlat(students[i].USN, students[j].USN)
	})
}

// SortStructured sorts students in place using the structured report order.
func (o *Orderer) SortStructured(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		return o.LessStructured(students[i].USN, students[j].USN)
	})
}

// SortUSNsStructured sorts raw USN strings using the structured report order.
func (o *Orderer) SortUSNsStructured(usns []string) {
	sort.SliceStable(usns, func(i, j int) bool {
		return o.LessStructured(usns[i], usns[j])
	})
}
