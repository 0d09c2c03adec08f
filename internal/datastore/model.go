// model.go this code defines the data model for the application
package datastore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EmissionType classifies a greenhouse gas following the IPCC gas groups.
type EmissionType string

const (
	EmissionTypeCO2    EmissionType = "CO2"
	EmissionTypeCH4    EmissionType = "CH4"
	EmissionTypeN2O    EmissionType = "N2O"
	EmissionTypeFGases EmissionType = "F_GASES"
)

var emissionTypeLabels = map[EmissionType]string{
	EmissionTypeCO2:    "Carbon Dioxide",
	EmissionTypeCH4:    "Methane",
	EmissionTypeN2O:    "Nitrous Oxide",
	EmissionTypeFGases: "Fluorinated Gases",
}

// EmissionTypes returns all permitted emission type values.
func EmissionTypes() []EmissionType {
	return []EmissionType{EmissionTypeCO2, EmissionTypeCH4, EmissionTypeN2O, EmissionTypeFGases}
}

// Valid reports whether the value is one of the permitted emission types.
func (t EmissionType) Valid() bool {
	_, ok := emissionTypeLabels[t]
	return ok
}

// Label returns the human readable display label for the emission type.
func (t EmissionType) Label() string {
	if label, ok := emissionTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ActivitySector classifies the activity responsible for the emissions.
type ActivitySector string

const (
	ActivityEnergy      ActivitySector = "ENERGY"
	ActivityTransport   ActivitySector = "TRANSPORT"
	ActivityIndustry    ActivitySector = "INDUSTRY"
	ActivityAgriculture ActivitySector = "AGRICULTURE"
	ActivityWaste       ActivitySector = "WASTE"
	ActivityResidential ActivitySector = "RESIDENTIAL"
	ActivityCommercial  ActivitySector = "COMMERCIAL"
	ActivityAirTravel   ActivitySector = "AIR_TRAVEL"
	ActivityMaritime    ActivitySector = "MARITIME"
	ActivityOther       ActivitySector = "OTHER"
)

var activitySectorLabels = map[ActivitySector]string{
	ActivityEnergy:      "Energy Production",
	ActivityTransport:   "Transportation",
	ActivityIndustry:    "Industrial Processes",
	ActivityAgriculture: "Agriculture",
	ActivityWaste:       "Waste Management",
	ActivityResidential: "Residential",
	ActivityCommercial:  "Commercial",
	ActivityAirTravel:   "Air Travel",
	ActivityMaritime:    "Maritime Transport",
	ActivityOther:       "Other",
}

// ActivitySectors returns all permitted activity sector values.
func ActivitySectors() []ActivitySector {
	return []ActivitySector{
		ActivityEnergy, ActivityTransport, ActivityIndustry, ActivityAgriculture,
		ActivityWaste, ActivityResidential, ActivityCommercial, ActivityAirTravel,
		ActivityMaritime, ActivityOther,
	}
}

// Valid reports whether the value is one of the permitted activity sectors.
func (a ActivitySector) Valid() bool {
	_, ok := activitySectorLabels[a]
	return ok
}

// Label returns the human readable display label for the activity sector.
func (a ActivitySector) Label() string {
	if label, ok := activitySectorLabels[a]; ok {
		return label
	}
	return string(a)
}

// MinYear is the earliest year an emission record may carry.
const MinYear = 1900

// Emission represents annual greenhouse gas emissions for one country,
// gas type and activity sector. Quantities are metric tons with three
// fractional digits.
//
// The composite unique index prevents duplicate entries for the same
// (year, country, emission_type, activity) combination, and the check
// constraint rejects negative quantities even when application level
// validation is bypassed.
type Emission struct {
	ID   uint `gorm:"primaryKey"`
	Year int  `gorm:"index:idx_emission_year;index:idx_year_country,priority:1;index:idx_year_country_type,priority:1;index:idx_activity_year,priority:2;index:idx_year_desc_country,priority:1,sort:desc;uniqueIndex:idx_unique_emission_record,priority:1"`

	Emissions decimal.Decimal `gorm:"type:decimal(15,3);index:idx_emission_value;check:chk_emissions_non_negative,emissions >= 0"`

	EmissionType EmissionType `gorm:"type:varchar(10);index:idx_emission_type;index:idx_country_type,priority:2;index:idx_year_country_type,priority:3;uniqueIndex:idx_unique_emission_record,priority:3"`

	// ISO 3166-1 alpha-2 country code, uppercased on write
	Country string `gorm:"type:varchar(2);index:idx_emission_country;index:idx_year_country,priority:2;index:idx_country_type,priority:1;index:idx_year_country_type,priority:2;index:idx_year_desc_country,priority:2;uniqueIndex:idx_unique_emission_record,priority:2"`

	Activity ActivitySector `gorm:"type:varchar(50);index:idx_activity_year,priority:1;uniqueIndex:idx_unique_emission_record,priority:4"`

	// Audit fields, managed by GORM and never client writable
	CreatedAt time.Time `gorm:"index:idx_created_desc,sort:desc"`
	UpdatedAt time.Time
}

// EmissionsInKilotons converts the stored quantity to kilotons.
func (e *Emission) EmissionsInKilotons() decimal.Decimal {
	return e.Emissions.Shift(-3)
}

// EmissionsInMegatons converts the stored quantity to megatons.
func (e *Emission) EmissionsInMegatons() decimal.Decimal {
	return e.Emissions.Shift(-6)
}

// String returns a compact representation for logs and debugging.
func (e *Emission) String() string {
	return fmt.Sprintf("%s - %s (%d): %s MT", e.Country, e.EmissionType.Label(), e.Year, e.Emissions.StringFixed(2))
}
