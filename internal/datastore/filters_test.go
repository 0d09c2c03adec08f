package datastore

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/emissions-api/internal/errors"
)

func TestParseEmissionFilter(t *testing.T) {
	t.Parallel()

	params := url.Values{}
	params.Set("year", "2023")
	params.Set("country", "fi")
	params.Set("emission_type", "CO2")
	params.Set("activity", "ENERGY")
	params.Set("search", " transport ")

	filter, err := ParseEmissionFilter(params)
	require.NoError(t, err)
	require.NotNil(t, filter.Year)
	assert.Equal(t, 2023, *filter.Year)
	require.NotNil(t, filter.Country)
	assert.Equal(t, "FI", *filter.Country, "Country codes should be uppercased")
	assert.Equal(t, []EmissionType{EmissionTypeCO2}, filter.Types)
	assert.Equal(t, []ActivitySector{ActivityEnergy}, filter.Activities)
	assert.Equal(t, "transport", filter.Search, "Search term should be trimmed")
}

func TestParseEmissionFilterRanges(t *testing.T) {
	t.Parallel()

	params := url.Values{}
	params.Set("year__range", "2020,2023")
	params.Set("emissions__range", "10.5,200")

	filter, err := ParseEmissionFilter(params)
	require.NoError(t, err)
	require.NotNil(t, filter.YearGte)
	require.NotNil(t, filter.YearLte)
	assert.Equal(t, 2020, *filter.YearGte)
	assert.Equal(t, 2023, *filter.YearLte)
	require.NotNil(t, filter.EmissionsGte)
	require.NotNil(t, filter.EmissionsLte)
	assert.True(t, filter.EmissionsGte.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, filter.EmissionsLte.Equal(decimal.RequireFromString("200")))
}

func TestParseEmissionFilterMultiValue(t *testing.T) {
	t.Parallel()

	params := url.Values{}
	params.Set("country__in", "fi, se ,DE")
	params.Set("emission_type__in", "CO2,CH4")
	params.Set("activity__in", "ENERGY,WASTE")

	filter, err := ParseEmissionFilter(params)
	require.NoError(t, err)
	assert.Equal(t, []string{"FI", "SE", "DE"}, filter.Countries)
	assert.Equal(t, []EmissionType{EmissionTypeCO2, EmissionTypeCH4}, filter.Types)
	assert.Equal(t, []ActivitySector{ActivityEnergy, ActivityWaste}, filter.Activities)
}

func TestParseEmissionFilterCountryAndCountryIn(t *testing.T) {
	t.Parallel()

	// Both dimensions survive parsing and combine with AND.
	params := url.Values{}
	params.Set("country", "fi")
	params.Set("country__in", "se,de")

	filter, err := ParseEmissionFilter(params)
	require.NoError(t, err)
	require.NotNil(t, filter.Country)
	assert.Equal(t, "FI", *filter.Country)
	assert.Equal(t, []string{"SE", "DE"}, filter.Countries)
	assert.Len(t, filter.Predicates(), 2)
}

func TestParseEmissionFilterRecent(t *testing.T) {
	t.Parallel()

	params := url.Values{}
	params.Set("recent", "10")

	filter, err := ParseEmissionFilter(params)
	require.NoError(t, err)
	require.NotNil(t, filter.RecentYears)
	assert.Equal(t, 10, *filter.RecentYears)

	params.Set("recent", "-3")
	_, err = ParseEmissionFilter(params)
	require.Error(t, err)

	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "recent")
}

func TestParseEmissionFilterInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		param string
		value string
		field string
	}{
		{"non-numeric year", "year", "abc", "year"},
		{"non-numeric year gte", "year__gte", "20x0", "year__gte"},
		{"malformed year range", "year__range", "2020", "year__range"},
		{"invalid emission type", "emission_type", "WATER", "emission_type"},
		{"invalid activity", "activity", "MINING", "activity"},
		{"non-numeric emissions", "emissions__gte", "lots", "emissions__gte"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			params := url.Values{}
			params.Set(tt.param, tt.value)

			_, err := ParseEmissionFilter(params)
			require.Error(t, err)

			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestParseEmissionFilterIgnoresUnknownParams(t *testing.T) {
	t.Parallel()

	params := url.Values{}
	params.Set("format", "json")
	params.Set("page", "2")

	filter, err := ParseEmissionFilter(params)
	require.NoError(t, err)
	assert.Empty(t, filter.Predicates())
}

func TestParseOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty uses default", "", []string{"year DESC", "country ASC"}},
		{"single ascending", "year", []string{"year ASC"}},
		{"single descending", "-emissions", []string{"emissions DESC"}},
		{"combined", "-year,country", []string{"year DESC", "country ASC"}},
		{"whitespace tolerated", " -year , country ", []string{"year DESC", "country ASC"}},
		{"empty segments skipped", ",,-created_at", []string{"created_at DESC"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOrdering(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrderingUnknownField(t *testing.T) {
	t.Parallel()

	_, err := ParseOrdering("password")
	require.Error(t, err)

	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "ordering")
}
