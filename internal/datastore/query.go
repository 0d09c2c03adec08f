// query.go: composable predicate builders for emission record queries
package datastore

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Predicate narrows an emission query. Predicates never mutate their input
// query, they return a derived one, so they can be combined freely.
type Predicate func(*gorm.DB) *gorm.DB

// ForYear matches records for a specific year.
func ForYear(year int) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("year = ?", year)
	}
}

// ForCountry matches records for a specific country code.
func ForCountry(code string) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("country = ?", strings.ToUpper(code))
	}
}

// ForYearRange matches records with start <= year <= end.
func ForYearRange(start, end int) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("year >= ? AND year <= ?", start, end)
	}
}

// ByType matches records of one emission type.
func ByType(emissionType EmissionType) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("emission_type = ?", emissionType)
	}
}

// ByActivity matches records of one activity sector.
func ByActivity(activity ActivitySector) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("activity = ?", activity)
	}
}

// Recent matches records from the last N years, current year inclusive.
func Recent(years int) Predicate {
	currentYear := time.Now().UTC().Year()
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("year >= ?", currentYear-years)
	}
}

// YearAtLeast matches records with year >= bound.
func YearAtLeast(year int) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("year >= ?", year)
	}
}

// YearAtMost matches records with year <= bound.
func YearAtMost(year int) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("year <= ?", year)
	}
}

// CountryIn matches records whose country code is in the given set.
func CountryIn(codes []string) Predicate {
	upper := make([]string, 0, len(codes))
	for _, code := range codes {
		upper = append(upper, strings.ToUpper(code))
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("country IN ?", upper)
	}
}

// TypeIn matches records whose emission type is in the given set.
func TypeIn(types []EmissionType) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("emission_type IN ?", types)
	}
}

// ActivityIn matches records whose activity sector is in the given set.
func ActivityIn(activities []ActivitySector) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("activity IN ?", activities)
	}
}

// EmissionsAtLeast matches records with emissions >= bound.
func EmissionsAtLeast(value decimal.Decimal) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("emissions >= ?", value)
	}
}

// EmissionsAtMost matches records with emissions <= bound.
func EmissionsAtMost(value decimal.Decimal) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("emissions <= ?", value)
	}
}

// MatchingSearch matches records whose country or activity contains the
// search term, case insensitively.
func MatchingSearch(term string) Predicate {
	pattern := "%" + strings.ToLower(term) + "%"
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("LOWER(country) LIKE ? OR LOWER(activity) LIKE ?", pattern, pattern)
	}
}

// applyPredicates chains all predicates onto the query.
func applyPredicates(q *gorm.DB, predicates []Predicate) *gorm.DB {
	for _, predicate := range predicates {
		q = predicate(q)
	}
	return q
}
