package dns

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// CompareZones orders forward zones before reverse zones. Reverse zones with
// more labels (narrower networks) come first; equal lengths are compared
// label by label from the right. Forward zones compare case-insensitively.
func (c *Config) CompareZones(a, b string) int {
	ra, rb := c.IsReverseZone(a), c.IsReverseZone(b)
	switch {
	case !ra && rb:
		return -1
	case ra && !rb:
		return 1
	case !ra && !rb:
		return compareFold(a, b)
	}

	la := strings.Split(trimDot(a), ".")
	lb := strings.Split(trimDot(b), ".")
	if n := cmp.Compare(len(lb), len(la)); n != 0 {
		return n
	}
	for i := len(la) - 1; i >= 0; i-- {
		if n := compareLabel(la[i], lb[i]); n != 0 {
			return n
		}
	}
	return 0
}

// CompareRecordNames orders numeric names numerically and everything else
// case-insensitively, so reverse zone octets sort as numbers.
func CompareRecordNames(a, b string) int {
	return compareLabel(a, b)
}

// SortZones sorts zones in place with CompareZones.
func (c *Config) SortZones(zones []Zone) {
	slices.SortStableFunc(zones, func(a, b Zone) int {
		return c.CompareZones(a.Name, b.Name)
	})
}

// SortEntries sorts entries in place with CompareRecordNames.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return CompareRecordNames(a.Name, b.Name)
	})
}

func compareLabel(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return compareFold(a, b)
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
