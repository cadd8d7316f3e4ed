package domain

import (
	"time"

	"github.com/ctessum/geom"
	"github.com/shopspring/decimal"
)

// Fertilizer types as recorded on a catalogue entry. Anything else is
// treated as "other".
const (
	FertilizerMineral = "mineral"
	FertilizerManure  = "manure"
	FertilizerCompost = "compost"
	FertilizerOther   = "other"
)

// Centroid is a WGS-84 longitude/latitude pair.
type Centroid struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Point returns the centroid as a geometry point (X = lon, Y = lat).
func (c Centroid) Point() geom.Point {
	return geom.Point{X: c.Lon, Y: c.Lat}
}

// Field is a parcel of land within a farm.
type Field struct {
	ID       string          `json:"id"`
	FarmID   string          `json:"farm_id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Centroid Centroid        `json:"centroid"`
	Area     decimal.Decimal `json:"area"` // ha
	Start    *time.Time      `json:"start,omitempty"`
	End      *time.Time      `json:"end,omitempty"`
}

// Cultivation is a crop grown on a field between Start and End.
type Cultivation struct {
	ID          string     `json:"id"`
	FieldID     string     `json:"field_id"`
	CatalogueID string     `json:"catalogue_id"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`

	// CropResidue reports whether crop residue stays on the field after
	// harvest. Nil means unknown and is treated like false.
	CropResidue *bool `json:"crop_residue,omitempty"`
}

// ActiveOn reports whether the cultivation covers the given calendar day.
func (c Cultivation) ActiveOn(day time.Time) bool {
	d := CivilDay(day)
	if CivilDay(c.Start).After(d) {
		return false
	}
	return c.End == nil || !CivilDay(*c.End).Before(d)
}

// Overlaps reports whether the cultivation is active on any day of tf.
func (c Cultivation) Overlaps(tf TimeFrame) bool {
	if CivilDay(c.Start).After(CivilDay(tf.End)) {
		return false
	}
	return c.End == nil || !CivilDay(*c.End).Before(CivilDay(tf.Start))
}

// HarvestAnalysis holds the observed values of one analysis of harvested
// produce. Missing values fall back to cultivation catalogue defaults.
type HarvestAnalysis struct {
	Yield        decimal.NullDecimal `json:"yield"`         // kg DM / ha
	NHarvestable decimal.NullDecimal `json:"n_harvestable"` // g N / kg DM
}

// Harvest belongs to exactly one cultivation.
type Harvest struct {
	ID            string            `json:"id"`
	CultivationID string            `json:"cultivation_id"`
	Date          time.Time         `json:"date"`
	Analyses      []HarvestAnalysis `json:"analyses,omitempty"`
}

// FertilizerApplication records one application of a catalogue fertilizer.
type FertilizerApplication struct {
	ID          string          `json:"id"`
	FieldID     string          `json:"field_id"`
	CatalogueID string          `json:"catalogue_id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"` // kg / ha
	Date        time.Time       `json:"date"`
	Method      string          `json:"method"`
}

// FertilizerDetail is a fertilizer catalogue entry.
type FertilizerDetail struct {
	ID         string              `json:"id"`
	Name       string              `json:"name,omitempty"`
	NContent   decimal.NullDecimal `json:"n_content"`   // g N / kg
	NO3Content decimal.NullDecimal `json:"no3_content"` // g NO3-N / kg
	NH4Content decimal.NullDecimal `json:"nh4_content"` // g NH4-N / kg
	SContent   decimal.NullDecimal `json:"s_content"`   // g S / kg
	Type       string              `json:"type"`

	// EmissionFactorNH3 overrides the formula-based ammonia emission factor
	// of mineral fertilizers when set.
	EmissionFactorNH3 decimal.NullDecimal `json:"emission_factor_nh3"`
}

// Class returns the fertilizer type, mapping unknown values to "other".
func (d FertilizerDetail) Class() string {
	switch d.Type {
	case FertilizerMineral, FertilizerManure, FertilizerCompost:
		return d.Type
	default:
		return FertilizerOther
	}
}

// CultivationDetail is a cultivation catalogue entry.
type CultivationDetail struct {
	ID           string              `json:"id"`
	Name         string              `json:"name,omitempty"`
	CropRotation string              `json:"crop_rotation"`
	Yield        decimal.NullDecimal `json:"yield"`         // kg DM / ha
	HarvestIndex decimal.NullDecimal `json:"harvest_index"` // fraction
	NHarvestable decimal.NullDecimal `json:"n_harvestable"` // g N / kg DM
	NResidue     decimal.NullDecimal `json:"n_residue"`     // g N / kg DM
	NFixation    decimal.NullDecimal `json:"n_fixation"`    // kg N / ha
}

// SoilAnalysis is one sampled soil analysis of a field. Every parameter is
// optional; CombineSoilAnalyses merges several analyses into one set.
type SoilAnalysis struct {
	ID               string              `json:"id"`
	FieldID          string              `json:"field_id"`
	SamplingDate     time.Time           `json:"sampling_date"`
	OrganicCarbon    decimal.NullDecimal `json:"organic_carbon"`     // g C / kg
	CNRatio          decimal.NullDecimal `json:"cn_ratio"`           // -
	BulkDensity      decimal.NullDecimal `json:"bulk_density"`       // g / cm3
	TotalNitrogen    decimal.NullDecimal `json:"total_nitrogen"`     // mg N / kg
	OrganicMatterLOI decimal.NullDecimal `json:"organic_matter_loi"` // %
	SoilType         string              `json:"soil_type,omitempty"`
	GroundwaterClass string              `json:"groundwater_class,omitempty"`
}
