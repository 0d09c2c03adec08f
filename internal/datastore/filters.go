// filters.go: translates HTTP query parameters into query predicates
package datastore

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ecotrack/emissions-api/internal/errors"
)

// EmissionFilter holds the parsed filter dimensions for a list query. Nil or
// empty fields apply no filtering for that dimension; all supplied dimensions
// combine with logical AND.
type EmissionFilter struct {
	Year         *int
	YearGte      *int
	YearLte      *int
	RecentYears  *int
	Country      *string
	Countries    []string
	Types        []EmissionType
	Activities   []ActivitySector
	EmissionsGte *decimal.Decimal
	EmissionsLte *decimal.Decimal
	Search       string
}

// Predicates translates the filter into query predicates.
func (f *EmissionFilter) Predicates() []Predicate {
	if f == nil {
		return nil
	}

	var predicates []Predicate
	if f.Year != nil {
		predicates = append(predicates, ForYear(*f.Year))
	}
	switch {
	case f.YearGte != nil && f.YearLte != nil:
		predicates = append(predicates, ForYearRange(*f.YearGte, *f.YearLte))
	case f.YearGte != nil:
		predicates = append(predicates, YearAtLeast(*f.YearGte))
	case f.YearLte != nil:
		predicates = append(predicates, YearAtMost(*f.YearLte))
	}
	if f.RecentYears != nil {
		predicates = append(predicates, Recent(*f.RecentYears))
	}
	if f.Country != nil {
		predicates = append(predicates, ForCountry(*f.Country))
	}
	switch len(f.Countries) {
	case 0:
	case 1:
		predicates = append(predicates, ForCountry(f.Countries[0]))
	default:
		predicates = append(predicates, CountryIn(f.Countries))
	}
	switch len(f.Types) {
	case 0:
	case 1:
		predicates = append(predicates, ByType(f.Types[0]))
	default:
		predicates = append(predicates, TypeIn(f.Types))
	}
	switch len(f.Activities) {
	case 0:
	case 1:
		predicates = append(predicates, ByActivity(f.Activities[0]))
	default:
		predicates = append(predicates, ActivityIn(f.Activities))
	}
	if f.EmissionsGte != nil {
		predicates = append(predicates, EmissionsAtLeast(*f.EmissionsGte))
	}
	if f.EmissionsLte != nil {
		predicates = append(predicates, EmissionsAtMost(*f.EmissionsLte))
	}
	if f.Search != "" {
		predicates = append(predicates, MatchingSearch(f.Search))
	}
	return predicates
}

// ParseEmissionFilter builds an EmissionFilter from HTTP query parameters.
// Unknown parameters are ignored. Malformed values return a validation error
// keyed by the offending parameter name.
func ParseEmissionFilter(params url.Values) (*EmissionFilter, error) {
	filter := &EmissionFilter{}
	ve := errors.NewValidationError()

	if raw := params.Get("year"); raw != "" {
		if year, ok := parseIntParam(ve, "year", raw); ok {
			filter.Year = &year
		}
	}
	if raw := params.Get("year__gte"); raw != "" {
		if year, ok := parseIntParam(ve, "year__gte", raw); ok {
			filter.YearGte = &year
		}
	}
	if raw := params.Get("year__lte"); raw != "" {
		if year, ok := parseIntParam(ve, "year__lte", raw); ok {
			filter.YearLte = &year
		}
	}
	if raw := params.Get("year__range"); raw != "" {
		if start, end, ok := parseIntRangeParam(ve, "year__range", raw); ok {
			filter.YearGte = &start
			filter.YearLte = &end
		}
	}

	if raw := params.Get("recent"); raw != "" {
		if years, ok := parseIntParam(ve, "recent", raw); ok {
			if years < 0 {
				ve.Add("recent", "Ensure this value is greater than or equal to 0.")
			} else {
				filter.RecentYears = &years
			}
		}
	}

	// country and country__in are separate dimensions and combine with AND,
	// like every other filter.
	if raw := params.Get("country"); raw != "" {
		code := strings.ToUpper(strings.TrimSpace(raw))
		filter.Country = &code
	}
	if raw := params.Get("country__in"); raw != "" {
		filter.Countries = splitMultiValue(raw)
	}

	if raw := params.Get("emission_type"); raw != "" {
		if t, ok := parseEmissionTypeParam(ve, "emission_type", raw); ok {
			filter.Types = []EmissionType{t}
		}
	}
	if raw := params.Get("emission_type__in"); raw != "" {
		for _, value := range splitMultiValue(raw) {
			if t, ok := parseEmissionTypeParam(ve, "emission_type__in", value); ok {
				filter.Types = append(filter.Types, t)
			}
		}
	}

	if raw := params.Get("activity"); raw != "" {
		if a, ok := parseActivityParam(ve, "activity", raw); ok {
			filter.Activities = []ActivitySector{a}
		}
	}
	if raw := params.Get("activity__in"); raw != "" {
		for _, value := range splitMultiValue(raw) {
			if a, ok := parseActivityParam(ve, "activity__in", value); ok {
				filter.Activities = append(filter.Activities, a)
			}
		}
	}

	if raw := params.Get("emissions__gte"); raw != "" {
		if value, ok := parseDecimalParam(ve, "emissions__gte", raw); ok {
			filter.EmissionsGte = &value
		}
	}
	if raw := params.Get("emissions__lte"); raw != "" {
		if value, ok := parseDecimalParam(ve, "emissions__lte", raw); ok {
			filter.EmissionsLte = &value
		}
	}
	if raw := params.Get("emissions__range"); raw != "" {
		if low, high, ok := parseDecimalRangeParam(ve, "emissions__range", raw); ok {
			filter.EmissionsGte = &low
			filter.EmissionsLte = &high
		}
	}

	filter.Search = strings.TrimSpace(params.Get("search"))

	if ve.HasErrors() {
		return nil, ve
	}
	return filter, nil
}

// orderingColumns whitelists the fields accepted by the ordering parameter.
var orderingColumns = map[string]string{
	"year":          "year",
	"emissions":     "emissions",
	"country":       "country",
	"emission_type": "emission_type",
	"activity":      "activity",
	"created_at":    "created_at",
}

// DefaultOrdering is applied when no ordering parameter is supplied:
// most recent year first, then country ascending.
func DefaultOrdering() []string {
	return []string{"year DESC", "country ASC"}
}

// ParseOrdering translates the ordering query parameter into SQL ORDER BY
// terms. Fields may be prefixed with '-' for descending order and combined
// with commas. Unknown fields return a validation error.
func ParseOrdering(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultOrdering(), nil
	}

	var terms []string
	ve := errors.NewValidationError()
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		direction := "ASC"
		if strings.HasPrefix(field, "-") {
			direction = "DESC"
			field = field[1:]
		}

		column, ok := orderingColumns[field]
		if !ok {
			ve.Add("ordering", fmt.Sprintf("%q is not a valid ordering field.", field))
			continue
		}
		terms = append(terms, column+" "+direction)
	}

	if ve.HasErrors() {
		return nil, ve
	}
	if len(terms) == 0 {
		return DefaultOrdering(), nil
	}
	return terms, nil
}

// splitMultiValue splits a comma separated parameter value, trimming
// surrounding whitespace and dropping empty entries.
func splitMultiValue(raw string) []string {
	var values []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			values = append(values, strings.ToUpper(value))
		}
	}
	return values
}

func parseIntParam(ve *errors.ValidationError, param, raw string) (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		ve.Add(param, "A valid integer is required.")
		return 0, false
	}
	return value, true
}

func parseIntRangeParam(ve *errors.ValidationError, param, raw string) (start, end int, ok bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		ve.Add(param, "A range requires exactly two comma separated values.")
		return 0, 0, false
	}
	start, startOK := parseIntParam(ve, param, parts[0])
	end, endOK := parseIntParam(ve, param, parts[1])
	return start, end, startOK && endOK
}

func parseDecimalParam(ve *errors.ValidationError, param, raw string) (decimal.Decimal, bool) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		ve.Add(param, "A valid number is required.")
		return decimal.Zero, false
	}
	return value, true
}

func parseDecimalRangeParam(ve *errors.ValidationError, param, raw string) (low, high decimal.Decimal, ok bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		ve.Add(param, "A range requires exactly two comma separated values.")
		return decimal.Zero, decimal.Zero, false
	}
	low, lowOK := parseDecimalParam(ve, param, parts[0])
	high, highOK := parseDecimalParam(ve, param, parts[1])
	return low, high, lowOK && highOK
}

func parseEmissionTypeParam(ve *errors.ValidationError, param, raw string) (EmissionType, bool) {
	value := EmissionType(strings.ToUpper(strings.TrimSpace(raw)))
	if !value.Valid() {
		ve.Add(param, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw))
		return "", false
	}
	return value, true
}

func parseActivityParam(ve *errors.ValidationError, param, raw string) (ActivitySector, bool) {
	value := ActivitySector(strings.ToUpper(strings.TrimSpace(raw)))
	if !value.Valid() {
		ve.Add(param, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw))
		return "", false
	}
	return value, true
}
