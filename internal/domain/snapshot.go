package domain

import (
	"context"
	"fmt"
)

// Snapshot is a farm's records as delivered with a balance request. It serves
// as the in-memory data source of the input collector and scopes records to
// the requested time frame the way a database query would.
type Snapshot struct {
	FarmID                 string                  `json:"farm_id"`
	Fields                 []Field                 `json:"fields"`
	Cultivations           []Cultivation           `json:"cultivations"`
	Harvests               []Harvest               `json:"harvests"`
	SoilAnalyses           []SoilAnalysis          `json:"soil_analyses"`
	FertilizerApplications []FertilizerApplication `json:"fertilizer_applications"`
	FertilizerDetails      []FertilizerDetail      `json:"fertilizer_details"`
	CultivationDetails     []CultivationDetail     `json:"cultivation_details"`
}

func (s *Snapshot) checkFarm(farmID string) error {
	if farmID != s.FarmID {
		return fmt.Errorf("farm %q not in snapshot of farm %q", farmID, s.FarmID)
	}
	return nil
}

// ListFields returns the farm's fields that are in use during tf.
func (s *Snapshot) ListFields(_ context.Context, farmID string, tf TimeFrame) ([]Field, error) {
	if err := s.checkFarm(farmID); err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Start != nil && CivilDay(*f.Start).After(CivilDay(tf.End)) {
			continue
		}
		if f.End != nil && CivilDay(*f.End).Before(CivilDay(tf.Start)) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// ListCultivations returns the field's cultivations overlapping tf.
func (s *Snapshot) ListCultivations(_ context.Context, fieldID string, tf TimeFrame) ([]Cultivation, error) {
	var out []Cultivation
	for _, c := range s.Cultivations {
		if c.FieldID == fieldID && c.Overlaps(tf) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListHarvests returns the harvests within tf of the given cultivations.
func (s *Snapshot) ListHarvests(_ context.Context, cultivationIDs []string, tf TimeFrame) ([]Harvest, error) {
	wanted := make(map[string]struct{}, len(cultivationIDs))
	for _, id := range cultivationIDs {
		wanted[id] = struct{}{}
	}
	var out []Harvest
	for _, h := range s.Harvests {
		if _, ok := wanted[h.CultivationID]; ok && tf.Contains(h.Date) {
			out = append(out, h)
		}
	}
	return out, nil
}

// ListSoilAnalyses returns the field's analyses sampled up to the end of tf.
func (s *Snapshot) ListSoilAnalyses(_ context.Context, fieldID string, tf TimeFrame) ([]SoilAnalysis, error) {
	var out []SoilAnalysis
	for _, a := range s.SoilAnalyses {
		if a.FieldID == fieldID && !CivilDay(a.SamplingDate).After(CivilDay(tf.End)) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListFertilizerApplications returns the field's applications within tf.
func (s *Snapshot) ListFertilizerApplications(_ context.Context, fieldID string, tf TimeFrame) ([]FertilizerApplication, error) {
	var out []FertilizerApplication
	for _, a := range s.FertilizerApplications {
		if a.FieldID == fieldID && tf.Contains(a.Date) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListFertilizerDetails returns the fertilizer catalogue available to the farm.
func (s *Snapshot) ListFertilizerDetails(_ context.Context, farmID string) ([]FertilizerDetail, error) {
	if err := s.checkFarm(farmID); err != nil {
		return nil, err
	}
	return s.FertilizerDetails, nil
}

// ListCultivationDetails returns the cultivation catalogue.
func (s *Snapshot) ListCultivationDetails(_ context.Context) ([]CultivationDetail, error) {
	return s.CultivationDetails, nil
}
