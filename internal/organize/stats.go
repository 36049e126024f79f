package organize

import (
	"slices"

	"github.com/handiism/gphotos-backup/internal/model"
)

// Stats counts descriptors per year and per month.
type Stats struct {
	Years   map[int]int
	Months  map[model.BucketKey]int
	Unknown int
	Total   int
}

// Statistics aggregates bucket sizes. The unknown bucket counts towards
// Unknown and Total only.
func Statistics(b Buckets) Stats {
	s := Stats{
		Years:  make(map[int]int),
		Months: make(map[model.BucketKey]int),
	}

	for key, ds := range b {
		n := len(ds)
		if n == 0 {
			continue
		}
		s.Total += n
		if key.IsUnknown() {
			s.Unknown += n
			continue
		}
		s.Years[key.Year] += n
		s.Months[key] += n
	}

	return s
}

// SortedYears returns the years with items in ascending order.
func (s Stats) SortedYears() []int {
	years := make([]int, 0, len(s.Years))
	for y := range s.Years {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// MonthsOf returns the months of year with items in ascending order.
func (s Stats) MonthsOf(year int) []int {
	var months []int
	for k := range s.Months {
		if k.Year == year {
			months = append(months, k.Month)
		}
	}
	slices.Sort(months)
	return months
}
