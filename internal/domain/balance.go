package domain

import "github.com/shopspring/decimal"

// FieldInput gathers everything the calculators need for one field.
type FieldInput struct {
	Field                  Field                   `json:"field"`
	Cultivations           []Cultivation           `json:"cultivations"`
	Harvests               []Harvest               `json:"harvests"`
	SoilAnalyses           []SoilAnalysis          `json:"soil_analyses"`
	FertilizerApplications []FertilizerApplication `json:"fertilizer_applications"`
}

// NitrogenBalanceInput is the complete input of a farm balance.
type NitrogenBalanceInput struct {
	Fields             []FieldInput        `json:"fields"`
	FertilizerDetails  []FertilizerDetail  `json:"fertilizer_details"`
	CultivationDetails []CultivationDetail `json:"cultivation_details"`
	TimeFrame          TimeFrame           `json:"time_frame"`
	PublicDataURL      string              `json:"public_data_url"`
}

// ItemValue is the contribution of a single record to a total.
type ItemValue struct {
	ID    string          `json:"id"`
	Value decimal.Decimal `json:"value"`
}

// ItemizedTotal is a total with its per-record breakdown.
type ItemizedTotal struct {
	Total decimal.Decimal `json:"total"`
	Items []ItemValue     `json:"items"`
}

// Append adds an item and keeps Total equal to the sum of Items.
func (t *ItemizedTotal) Append(id string, value decimal.Decimal) {
	t.Items = append(t.Items, ItemValue{ID: id, Value: value})
	t.Total = t.Total.Add(value)
}

// FertilizerBreakdown splits a fertilizer quantity by fertilizer type.
type FertilizerBreakdown struct {
	Total   decimal.Decimal `json:"total"`
	Mineral ItemizedTotal   `json:"mineral"`
	Manure  ItemizedTotal   `json:"manure"`
	Compost ItemizedTotal   `json:"compost"`
	Other   ItemizedTotal   `json:"other"`
}

// Append books an application value under its fertilizer class.
func (b *FertilizerBreakdown) Append(class, id string, value decimal.Decimal) {
	switch class {
	case FertilizerMineral:
		b.Mineral.Append(id, value)
	case FertilizerManure:
		b.Manure.Append(id, value)
	case FertilizerCompost:
		b.Compost.Append(id, value)
	default:
		b.Other.Append(id, value)
	}
	b.Total = Sum(b.Mineral.Total, b.Manure.Total, b.Compost.Total, b.Other.Total)
}

// NewFertilizerBreakdown returns an empty breakdown with zero totals.
func NewFertilizerBreakdown() FertilizerBreakdown {
	return FertilizerBreakdown{
		Mineral: ItemizedTotal{Items: []ItemValue{}},
		Manure:  ItemizedTotal{Items: []ItemValue{}},
		Compost: ItemizedTotal{Items: []ItemValue{}},
		Other:   ItemizedTotal{Items: []ItemValue{}},
	}
}

// NitrogenSupply is the nitrogen entering a field.
type NitrogenSupply struct {
	Total          decimal.Decimal     `json:"total"`
	Fertilizers    FertilizerBreakdown `json:"fertilizers"`
	Fixation       ItemizedTotal       `json:"fixation"`
	Deposition     decimal.Decimal     `json:"deposition"`
	Mineralization decimal.Decimal     `json:"mineralization"`
}

// NitrogenRemoval is the nitrogen leaving a field with harvested produce.
// Values are negative.
type NitrogenRemoval struct {
	Total    decimal.Decimal `json:"total"`
	Harvests ItemizedTotal   `json:"harvests"`
}

// AmmoniaEmission is the nitrogen volatilized as ammonia. Values are negative.
type AmmoniaEmission struct {
	Total       decimal.Decimal     `json:"total"`
	Fertilizers FertilizerBreakdown `json:"fertilizers"`
	Residues    ItemizedTotal       `json:"residues"`
	Grazing     decimal.Decimal     `json:"grazing"`
}

// NitrateEmission is the nitrogen leached as nitrate. Values are negative.
// LeachingFactor is informative and null when the field's land cover or soil
// cannot be classified.
type NitrateEmission struct {
	Total          decimal.Decimal     `json:"total"`
	LeachingFactor decimal.NullDecimal `json:"leaching_factor"`
}

// NitrogenEmission combines the gaseous and leaching losses of a field.
type NitrogenEmission struct {
	Total   decimal.Decimal `json:"total"`
	Ammonia AmmoniaEmission `json:"ammonia"`
	Nitrate NitrateEmission `json:"nitrate"`
}

// FieldBalance is the nitrogen balance of one field in kg N / ha.
type FieldBalance struct {
	FieldID  string           `json:"field_id"`
	Balance  decimal.Decimal  `json:"balance"`
	Supply   NitrogenSupply   `json:"supply"`
	Removal  NitrogenRemoval  `json:"removal"`
	Emission NitrogenEmission `json:"emission"`
}

// FieldResult is the outcome for one field: a balance or an error message.
type FieldResult struct {
	FieldID      string          `json:"field_id"`
	Area         decimal.Decimal `json:"area"`
	Balance      *FieldBalance   `json:"balance,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorCode    ErrorCode       `json:"error_code,omitempty"`
}

// NitrogenBalance is the farm result. Farm-level values are area-weighted
// means over the fields that could be calculated, in kg N / ha.
type NitrogenBalance struct {
	Balance            decimal.Decimal `json:"balance"`
	Supply             decimal.Decimal `json:"supply"`
	Removal            decimal.Decimal `json:"removal"`
	Volatilization     decimal.Decimal `json:"volatilization"`
	Fields             []FieldResult   `json:"fields"`
	HasErrors          bool            `json:"has_errors"`
	FieldErrorMessages []string        `json:"field_error_messages"`
}
