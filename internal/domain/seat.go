package domain

import (
	"slices"
	"strconv"
	"strings"
)

// SeatSet is a set of seat labels. The zero value is an empty set. Labels are
// kept sorted, which makes conflict reports and test assertions deterministic.
type SeatSet []string

func NewSeatSet(labels ...string) SeatSet {
	set := make(SeatSet, 0, len(labels))

	for _, label := range labels {
		label = strings.ToUpper(strings.TrimSpace(label))
		if label == "" || slices.Contains(set, label) {
			continue
		}
		set = append(set, label)
	}

	slices.Sort(set)

	return set
}

func (s SeatSet) Contains(label string) bool {
	return slices.Contains(s, label)
}

// Intersection returns the labels present in both sets.
func (s SeatSet) Intersection(other SeatSet) SeatSet {
	common := make(SeatSet, 0)

	for _, label := range s {
		if other.Contains(label) {
			common = append(common, label)
		}
	}

	return common
}

// Union returns a new set with the labels of both sets.
func (s SeatSet) Union(other SeatSet) SeatSet {
	return NewSeatSet(append(slices.Clone(s), other...)...)
}

func (s SeatSet) String() string {
	return strings.Join(s, ", ")
}

// HasDuplicates reports whether the raw label list collapses when deduplicated.
// Reservation requests with repeated labels are rejected rather than silently
// merged.
func HasDuplicateSeats(labels []string) bool {
	return len(NewSeatSet(labels...)) != len(labels)
}

// ParseSeatLabel splits a label like "B7" into a zero-based row index and a
// one-based seat number.
func ParseSeatLabel(label string) (row, num int, ok bool) {
	if len(label) < 2 {
		return 0, 0, false
	}

	r := label[0]
	if r < 'A' || r > 'Z' {
		return 0, 0, false
	}

	n, err := strconv.Atoi(label[1:])
	if err != nil || n < 1 {
		return 0, 0, false
	}

	return int(r - 'A'), n, true
}
