package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// Organic matter is taken to be half carbon.
	carbonPerOrganicMatter = Dec("0.5")
	percentToPerMille      = decimal.NewFromInt(10)
)

// SoilParameters is the merged view of a field's soil analyses.
type SoilParameters struct {
	OrganicCarbon    decimal.NullDecimal `json:"organic_carbon"`
	CNRatio          decimal.NullDecimal `json:"cn_ratio"`
	BulkDensity      decimal.NullDecimal `json:"bulk_density"`
	TotalNitrogen    decimal.NullDecimal `json:"total_nitrogen"`
	OrganicMatterLOI decimal.NullDecimal `json:"organic_matter_loi"`
	SoilType         string              `json:"soil_type,omitempty"`
	GroundwaterClass string              `json:"groundwater_class,omitempty"`
}

// CombineSoilAnalyses merges analyses into one parameter set, taking for each
// parameter the value of the most recent analysis that reports it. Organic
// carbon and the C:N ratio are derived from loss-on-ignition and total
// nitrogen when no analysis reports them directly.
func CombineSoilAnalyses(analyses []SoilAnalysis) SoilParameters {
	sorted := make([]SoilAnalysis, len(analyses))
	copy(sorted, analyses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SamplingDate.After(sorted[j].SamplingDate)
	})

	var p SoilParameters
	for _, a := range sorted {
		p.OrganicCarbon = firstValid(p.OrganicCarbon, a.OrganicCarbon)
		p.CNRatio = firstValid(p.CNRatio, a.CNRatio)
		p.BulkDensity = firstValid(p.BulkDensity, a.BulkDensity)
		p.TotalNitrogen = firstValid(p.TotalNitrogen, a.TotalNitrogen)
		p.OrganicMatterLOI = firstValid(p.OrganicMatterLOI, a.OrganicMatterLOI)
		if p.SoilType == "" {
			p.SoilType = a.SoilType
		}
		if p.GroundwaterClass == "" {
			p.GroundwaterClass = a.GroundwaterClass
		}
	}

	// LOI in % to g C / kg.
	if !p.OrganicCarbon.Valid && p.OrganicMatterLOI.Valid {
		p.OrganicCarbon = decimal.NewNullDecimal(
			p.OrganicMatterLOI.Decimal.Mul(percentToPerMille).Mul(carbonPerOrganicMatter))
	}
	// g C / kg against mg N / kg.
	if !p.CNRatio.Valid && p.OrganicCarbon.Valid && p.TotalNitrogen.Valid && p.TotalNitrogen.Decimal.IsPositive() {
		p.CNRatio = decimal.NewNullDecimal(
			p.OrganicCarbon.Decimal.Mul(thousand).Div(p.TotalNitrogen.Decimal))
	}
	return p
}

func firstValid(current, candidate decimal.NullDecimal) decimal.NullDecimal {
	if current.Valid {
		return current
	}
	return candidate
}
