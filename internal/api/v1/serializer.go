// internal/api/v1/serializer.go
package api

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ecotrack/emissions-api/internal/datastore"
	"github.com/ecotrack/emissions-api/internal/errors"
)

// validate is shared across requests; validator instances cache struct metadata.
var validate = validator.New()

// EmissionRequest is the write-side representation of an emission record.
// Pointer fields distinguish "absent" from zero values so partial updates
// only touch the fields the client sent.
type EmissionRequest struct {
	Year         *int             `json:"year"`
	Emissions    *decimal.Decimal `json:"emissions"`
	EmissionType *string          `json:"emission_type"`
	Country      *string          `json:"country"`
	Activity     *string          `json:"activity"`
}

// EmissionResponse is the read-side representation, including the
// derived unit conversions and display labels.
type EmissionResponse struct {
	ID                  uint            `json:"id"`
	Year                int             `json:"year"`
	Emissions           decimal.Decimal `json:"emissions"`
	EmissionsInKilotons decimal.Decimal `json:"emissions_in_kilotons"`
	EmissionsInMegatons decimal.Decimal `json:"emissions_in_megatons"`
	EmissionType        string          `json:"emission_type"`
	EmissionTypeDisplay string          `json:"emission_type_display"`
	Country             string          `json:"country"`
	Activity            string          `json:"activity"`
	ActivityDisplay     string          `json:"activity_display"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Validate checks the request payload. With partial set, absent fields are
// allowed; otherwise every field is required. Messages follow the API's
// public error contract, keyed by field name.
func (r *EmissionRequest) Validate(partial bool) *errors.ValidationError {
	ve := errors.NewValidationError()

	r.validateYear(ve, partial)
	r.validateEmissions(ve, partial)
	r.validateEmissionType(ve, partial)
	r.validateCountry(ve, partial)
	r.validateActivity(ve, partial)

	if !ve.HasErrors() {
		return nil
	}
	return ve
}

func (r *EmissionRequest) validateYear(ve *errors.ValidationError, partial bool) {
	if r.Year == nil {
		if !partial {
			ve.Add("year", "This field is required.")
		}
		return
	}
	currentYear := time.Now().UTC().Year()
	if *r.Year < datastore.MinYear {
		ve.Add("year", "Ensure this value is greater than or equal to 1900.")
	} else if *r.Year > currentYear {
		ve.Add("year", "Year cannot be in the future.")
	}
}

func (r *EmissionRequest) validateEmissions(ve *errors.ValidationError, partial bool) {
	if r.Emissions == nil {
		if !partial {
			ve.Add("emissions", "This field is required.")
		}
		return
	}
	if r.Emissions.IsNegative() {
		ve.Add("emissions", "Ensure this value is greater than or equal to 0.")
	}
	// decimal(15,3): at most 3 fractional digits and 12 integral digits.
	if r.Emissions.Exponent() < -3 {
		ve.Add("emissions", "Ensure that there are no more than 3 decimal places.")
	} else if len(r.Emissions.Truncate(0).Abs().String()) > 12 {
		ve.Add("emissions", "Ensure that there are no more than 12 digits before the decimal point.")
	}
}

func (r *EmissionRequest) validateEmissionType(ve *errors.ValidationError, partial bool) {
	if r.EmissionType == nil {
		if !partial {
			ve.Add("emission_type", "This field is required.")
		}
		return
	}
	if !datastore.EmissionType(*r.EmissionType).Valid() {
		ve.Add("emission_type", choiceMessage(*r.EmissionType))
	}
}

func (r *EmissionRequest) validateCountry(ve *errors.ValidationError, partial bool) {
	if r.Country == nil {
		if !partial {
			ve.Add("country", "This field is required.")
		}
		return
	}
	code := strings.ToUpper(strings.TrimSpace(*r.Country))
	if err := validate.Var(code, "iso3166_1_alpha2"); err != nil {
		ve.Add("country", "Enter a valid ISO 3166-1 alpha-2 country code.")
	}
}

func (r *EmissionRequest) validateActivity(ve *errors.ValidationError, partial bool) {
	if r.Activity == nil {
		if !partial {
			ve.Add("activity", "This field is required.")
		}
		return
	}
	if !datastore.ActivitySector(*r.Activity).Valid() {
		ve.Add("activity", choiceMessage(*r.Activity))
	}
}

func choiceMessage(value string) string {
	return "Select a valid choice. " + value + " is not one of the available choices."
}

// Apply copies the request's present fields onto the record. Country codes
// are normalized to upper case before storage.
func (r *EmissionRequest) Apply(e *datastore.Emission) {
	if r.Year != nil {
		e.Year = *r.Year
	}
	if r.Emissions != nil {
		e.Emissions = *r.Emissions
	}
	if r.EmissionType != nil {
		e.EmissionType = datastore.EmissionType(*r.EmissionType)
	}
	if r.Country != nil {
		e.Country = strings.ToUpper(strings.TrimSpace(*r.Country))
	}
	if r.Activity != nil {
		e.Activity = datastore.ActivitySector(*r.Activity)
	}
}

// toResponse builds the API representation of a stored record.
func toResponse(e *datastore.Emission) EmissionResponse {
	return EmissionResponse{
		ID:                  e.ID,
		Year:                e.Year,
		Emissions:           e.Emissions,
		EmissionsInKilotons: e.EmissionsInKilotons(),
		EmissionsInMegatons: e.EmissionsInMegatons(),
		EmissionType:        string(e.EmissionType),
		EmissionTypeDisplay: e.EmissionType.Label(),
		Country:             e.Country,
		Activity:            string(e.Activity),
		ActivityDisplay:     e.Activity.Label(),
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func toResponses(records []datastore.Emission) []EmissionResponse {
	out := make([]EmissionResponse, 0, len(records))
	for i := range records {
		out = append(out, toResponse(&records[i]))
	}
	return out
}
