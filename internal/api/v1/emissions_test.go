package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/emissions-api/internal/conf"
	"github.com/ecotrack/emissions-api/internal/datastore"
	"github.com/ecotrack/emissions-api/internal/errors"
)

// mockStore is a testify mock implementing datastore.Interface.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Open() error  { return m.Called().Error(0) }
func (m *mockStore) Close() error { return m.Called().Error(0) }

func (m *mockStore) Save(emission *datastore.Emission) error {
	return m.Called(emission).Error(0)
}

func (m *mockStore) Get(id string) (datastore.Emission, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Emission), args.Error(1)
}

func (m *mockStore) Update(emission *datastore.Emission) error {
	return m.Called(emission).Error(0)
}

func (m *mockStore) Delete(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockStore) List(filter *datastore.EmissionFilter, ordering []string, limit, offset int) ([]datastore.Emission, error) {
	args := m.Called(filter, ordering, limit, offset)
	return args.Get(0).([]datastore.Emission), args.Error(1)
}

func (m *mockStore) Count(filter *datastore.EmissionFilter) (int64, error) {
	args := m.Called(filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) TotalEmissions(filter *datastore.EmissionFilter) (decimal.Decimal, error) {
	args := m.Called(filter)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// notFoundErr builds an error that datastore.IsNotFound recognizes.
func notFoundErr() error {
	return errors.Newf("emission not found").
		Component("datastore").
		Category(errors.CategoryNotFound).
		Build()
}

// newTestController wires a controller around the mock store without
// touching the filesystem.
func newTestController(t *testing.T, ds datastore.Interface) *Controller {
	t.Helper()

	e := echo.New()
	settings := &conf.Settings{}
	settings.API.PageSize = 50
	settings.API.MaxPageSize = 100
	settings.API.SummaryCacheTTL = 60
	settings.Version = "test"

	c := &Controller{
		Echo:         e,
		DS:           ds,
		Settings:     settings,
		logger:       log.New(io.Discard, "", 0),
		summaryCache: cache.New(time.Minute, time.Minute),
	}
	c.Group = e.Group("/api/v1")
	c.initRoutes()

	return c
}

func doRequest(c *Controller, method, target string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func testRecord() datastore.Emission {
	return datastore.Emission{
		ID:           1,
		Year:         2023,
		Country:      "FI",
		EmissionType: datastore.EmissionTypeCO2,
		Activity:     datastore.ActivityEnergy,
		Emissions:    decimal.RequireFromString("1234.567"),
		CreatedAt:    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestGetEmission(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Get", "1").Return(testRecord(), nil)

	rec := doRequest(newTestController(t, ds), http.MethodGet, "/api/v1/emissions/1", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["id"])
	assert.EqualValues(t, 2023, body["year"])
	assert.Equal(t, "FI", body["country"])
	assert.Equal(t, "CO2", body["emission_type"])
	assert.Equal(t, "Carbon Dioxide", body["emission_type_display"])
	assert.Equal(t, "ENERGY", body["activity"])
	assert.Equal(t, "Energy Production", body["activity_display"])
	// Decimal fields serialize as strings with exact values.
	assert.Equal(t, "1234.567", body["emissions"])
	assert.Equal(t, "1.234567", body["emissions_in_kilotons"])
	assert.Equal(t, "0.001234567", body["emissions_in_megatons"])

	ds.AssertExpectations(t)
}

func TestGetEmissionNotFound(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Get", "9999").Return(datastore.Emission{}, notFoundErr())

	rec := doRequest(newTestController(t, ds), http.MethodGet, "/api/v1/emissions/9999", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail": "Not found."}`, rec.Body.String())
}

func TestCreateEmission(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Save", mock.AnythingOfType("*datastore.Emission")).Run(func(args mock.Arguments) {
		record := args.Get(0).(*datastore.Emission)
		assert.Equal(t, 2023, record.Year)
		assert.Equal(t, "FI", record.Country, "Country should be uppercased before storage")
		record.ID = 42
	}).Return(nil)

	body := `{"year": 2023, "emissions": "1500.5", "emission_type": "CO2", "country": "fi", "activity": "ENERGY"}`
	rec := doRequest(newTestController(t, ds), http.MethodPost, "/api/v1/emissions", body)

	require.Equal(t, http.StatusCreated, rec.Code, "Body: %s", rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 42, resp["id"])
	assert.Equal(t, "1500.5", resp["emissions"])

	ds.AssertExpectations(t)
}

func TestCreateEmissionMissingFields(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)

	rec := doRequest(newTestController(t, ds), http.MethodPost, "/api/v1/emissions", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, field := range []string{"year", "emissions", "emission_type", "country", "activity"} {
		require.Contains(t, body, field)
		assert.Equal(t, []string{"This field is required."}, body[field])
	}

	ds.AssertNotCalled(t, "Save", mock.Anything)
}

func TestCreateEmissionValidation(t *testing.T) {
	t.Parallel()

	futureYear := time.Now().UTC().Year() + 1

	tests := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{
			name:    "year as string",
			body:    `{"year": "2023", "emissions": "10", "emission_type": "CO2", "country": "FI", "activity": "ENERGY"}`,
			field:   "year",
			message: "A valid integer is required.",
		},
		{
			name:    "year below minimum",
			body:    `{"year": 1850, "emissions": "10", "emission_type": "CO2", "country": "FI", "activity": "ENERGY"}`,
			field:   "year",
			message: "Ensure this value is greater than or equal to 1900.",
		},
		{
			name:    "year in the future",
			body:    fmt.Sprintf(`{"year": %d, "emissions": "10", "emission_type": "CO2", "country": "FI", "activity": "ENERGY"}`, futureYear),
			field:   "year",
			message: "Year cannot be in the future.",
		},
		{
			name:    "negative emissions",
			body:    `{"year": 2023, "emissions": "-5", "emission_type": "CO2", "country": "FI", "activity": "ENERGY"}`,
			field:   "emissions",
			message: "Ensure this value is greater than or equal to 0.",
		},
		{
			name:    "too many decimal places",
			body:    `{"year": 2023, "emissions": "5.1234", "emission_type": "CO2", "country": "FI", "activity": "ENERGY"}`,
			field:   "emissions",
			message: "Ensure that there are no more than 3 decimal places.",
		},
		{
			name:    "invalid emission type",
			body:    `{"year": 2023, "emissions": "10", "emission_type": "WATER", "country": "FI", "activity": "ENERGY"}`,
			field:   "emission_type",
			message: "Select a valid choice. WATER is not one of the available choices.",
		},
		{
			name:    "invalid country code",
			body:    `{"year": 2023, "emissions": "10", "emission_type": "CO2", "country": "XX", "activity": "ENERGY"}`,
			field:   "country",
			message: "Enter a valid ISO 3166-1 alpha-2 country code.",
		},
		{
			name:    "invalid activity",
			body:    `{"year": 2023, "emissions": "10", "emission_type": "CO2", "country": "FI", "activity": "MINING"}`,
			field:   "activity",
			message: "Select a valid choice. MINING is not one of the available choices.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds := new(mockStore)

			rec := doRequest(newTestController(t, ds), http.MethodPost, "/api/v1/emissions", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code, "Body: %s", rec.Body.String())

			var body map[string][]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Contains(t, body, tt.field)
			assert.Contains(t, body[tt.field], tt.message)

			ds.AssertNotCalled(t, "Save", mock.Anything)
		})
	}
}

func TestCreateEmissionDuplicate(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ve := errors.NewValidationError()
	ve.Add(errors.NonFieldErrors, "An emission record for this year, country, type, and activity combination already exists.")
	ds.On("Save", mock.Anything).Return(ve)

	body := `{"year": 2023, "emissions": "10", "emission_type": "CO2", "country": "FI", "activity": "ENERGY"}`
	rec := doRequest(newTestController(t, ds), http.MethodPost, "/api/v1/emissions", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var respBody map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respBody))
	require.Contains(t, respBody, "non_field_errors")
	assert.Contains(t, respBody["non_field_errors"][0], "already exists")
}

func TestListEmissions(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Count", mock.Anything).Return(int64(2), nil)
	ds.On("List", mock.Anything, datastore.DefaultOrdering(), 50, 0).
		Return([]datastore.Emission{testRecord(), testRecord()}, nil)

	rec := doRequest(newTestController(t, ds), http.MethodGet, "/api/v1/emissions", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count    int64            `json:"count"`
		Next     *string          `json:"next"`
		Previous *string          `json:"previous"`
		Results  []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Count)
	assert.Nil(t, body.Next)
	assert.Nil(t, body.Previous)
	assert.Len(t, body.Results, 2)

	ds.AssertExpectations(t)
}

func TestListEmissionsPagination(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Count", mock.Anything).Return(int64(75), nil)
	ds.On("List", mock.Anything, datastore.DefaultOrdering(), 50, 0).
		Return(make([]datastore.Emission, 50), nil)
	// Page 2 with the default page size requests records 50..74.
	ds.On("List", mock.Anything, datastore.DefaultOrdering(), 50, 50).
		Return(make([]datastore.Emission, 25), nil)

	c := newTestController(t, ds)

	type envelope struct {
		Count    int64            `json:"count"`
		Next     *string          `json:"next"`
		Previous *string          `json:"previous"`
		Results  []map[string]any `json:"results"`
	}

	// Page 1: full page with a link to page 2 and no previous.
	rec := doRequest(c, http.MethodGet, "/api/v1/emissions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var first envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, int64(75), first.Count)
	assert.Len(t, first.Results, 50)
	assert.Nil(t, first.Previous)
	require.NotNil(t, first.Next)
	assert.Contains(t, *first.Next, "/api/v1/emissions")
	assert.Contains(t, *first.Next, "page=2")

	// Page 2: remainder with a previous link and no next.
	rec = doRequest(c, http.MethodGet, "/api/v1/emissions?page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var second envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, int64(75), second.Count)
	assert.Len(t, second.Results, 25)
	assert.Nil(t, second.Next, "Page 2 of 75 records is the last page")
	require.NotNil(t, second.Previous)
	assert.Contains(t, *second.Previous, "/api/v1/emissions")
	assert.NotContains(t, *second.Previous, "page=", "Link to page 1 should omit the page parameter")

	ds.AssertExpectations(t)
}

func TestListEmissionsPageSizeCapped(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Count", mock.Anything).Return(int64(10), nil)
	// Requested page_size 500 is capped at the configured maximum of 100.
	ds.On("List", mock.Anything, datastore.DefaultOrdering(), 100, 0).
		Return([]datastore.Emission{}, nil)

	rec := doRequest(newTestController(t, ds), http.MethodGet, "/api/v1/emissions?page_size=500", "")

	require.Equal(t, http.StatusOK, rec.Code)
	ds.AssertExpectations(t)
}

func TestListEmissionsInvalidPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
	}{
		{"non-numeric page", "/api/v1/emissions?page=abc"},
		{"zero page", "/api/v1/emissions?page=0"},
		{"page past the end", "/api/v1/emissions?page=99"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds := new(mockStore)
			ds.On("Count", mock.Anything).Return(int64(10), nil)

			rec := doRequest(newTestController(t, ds), http.MethodGet, tt.target, "")

			require.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"detail": "Invalid page."}`, rec.Body.String())
		})
	}
}

func TestListEmissionsInvalidFilter(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)

	rec := doRequest(newTestController(t, ds), http.MethodGet, "/api/v1/emissions?year=abc", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "year")

	ds.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListEmissionsInvalidOrdering(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)

	rec := doRequest(newTestController(t, ds), http.MethodGet, "/api/v1/emissions?ordering=password", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "ordering")
}

func TestPatchEmission(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Get", "1").Return(testRecord(), nil)
	ds.On("Update", mock.AnythingOfType("*datastore.Emission")).Run(func(args mock.Arguments) {
		record := args.Get(0).(*datastore.Emission)
		// Only the field present in the body changes.
		assert.True(t, record.Emissions.Equal(decimal.RequireFromString("999.5")))
		assert.Equal(t, 2023, record.Year)
		assert.Equal(t, "FI", record.Country)
	}).Return(nil)

	rec := doRequest(newTestController(t, ds), http.MethodPatch, "/api/v1/emissions/1", `{"emissions": "999.5"}`)

	require.Equal(t, http.StatusOK, rec.Code, "Body: %s", rec.Body.String())
	ds.AssertExpectations(t)
}

func TestPutEmissionRequiresAllFields(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Get", "1").Return(testRecord(), nil)

	rec := doRequest(newTestController(t, ds), http.MethodPut, "/api/v1/emissions/1", `{"emissions": "999.5"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "year")
	assert.Contains(t, body, "country")

	ds.AssertNotCalled(t, "Update", mock.Anything)
}

func TestPutEmission(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Get", "1").Return(testRecord(), nil)
	ds.On("Update", mock.AnythingOfType("*datastore.Emission")).Run(func(args mock.Arguments) {
		record := args.Get(0).(*datastore.Emission)
		assert.Equal(t, 2022, record.Year)
		assert.Equal(t, "SE", record.Country)
		assert.Equal(t, datastore.EmissionTypeCH4, record.EmissionType)
	}).Return(nil)

	body := `{"year": 2022, "emissions": "50", "emission_type": "CH4", "country": "SE", "activity": "AGRICULTURE"}`
	rec := doRequest(newTestController(t, ds), http.MethodPut, "/api/v1/emissions/1", body)

	require.Equal(t, http.StatusOK, rec.Code, "Body: %s", rec.Body.String())
	ds.AssertExpectations(t)
}

func TestUpdateEmissionNotFound(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Get", "9999").Return(datastore.Emission{}, notFoundErr())

	body := `{"year": 2022, "emissions": "50", "emission_type": "CH4", "country": "SE", "activity": "AGRICULTURE"}`
	rec := doRequest(newTestController(t, ds), http.MethodPut, "/api/v1/emissions/9999", body)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail": "Not found."}`, rec.Body.String())
}

func TestDeleteEmission(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Delete", "1").Return(nil)

	rec := doRequest(newTestController(t, ds), http.MethodDelete, "/api/v1/emissions/1", "")

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	ds.AssertExpectations(t)
}

func TestDeleteEmissionNotFound(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Delete", "9999").Return(notFoundErr())

	rec := doRequest(newTestController(t, ds), http.MethodDelete, "/api/v1/emissions/9999", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail": "Not found."}`, rec.Body.String())
}

func TestGetEmissionsSummary(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Count", mock.Anything).Return(int64(3), nil).Once()
	ds.On("TotalEmissions", mock.Anything).Return(decimal.RequireFromString("1500000"), nil).Once()

	c := newTestController(t, ds)
	rec := doRequest(c, http.MethodGet, "/api/v1/emissions/summary", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["count"])
	assert.Equal(t, "1500000", body["total_emissions"])
	assert.Equal(t, "1500.000", body["total_emissions_in_kilotons"])
	assert.Equal(t, "1.500000", body["total_emissions_in_megatons"])

	// Second identical request is served from the cache.
	rec = doRequest(c, http.MethodGet, "/api/v1/emissions/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ds.AssertExpectations(t)
}

func TestSummaryCacheInvalidatedOnWrite(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Count", mock.Anything).Return(int64(1), nil)
	ds.On("TotalEmissions", mock.Anything).Return(decimal.RequireFromString("100"), nil).Twice()
	ds.On("Save", mock.Anything).Return(nil)

	c := newTestController(t, ds)
	doRequest(c, http.MethodGet, "/api/v1/emissions/summary", "")

	body := `{"year": 2023, "emissions": "10", "emission_type": "CO2", "country": "FI", "activity": "ENERGY"}`
	rec := doRequest(c, http.MethodPost, "/api/v1/emissions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The write flushed the cache, so the aggregate is recomputed.
	doRequest(c, http.MethodGet, "/api/v1/emissions/summary", "")
	ds.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)
	ds.On("Count", mock.Anything).Return(int64(0), nil)

	rec := doRequest(newTestController(t, ds), http.MethodGet, "/api/v1/health", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database_status"])
}

func TestMalformedJSONBody(t *testing.T) {
	t.Parallel()
	ds := new(mockStore)

	rec := doRequest(newTestController(t, ds), http.MethodPost, "/api/v1/emissions", `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	ds.AssertNotCalled(t, "Save", mock.Anything)
}
