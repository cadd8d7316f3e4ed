package domain

import "fmt"

// FertilizerCatalogue indexes fertilizer details by catalogue ID.
type FertilizerCatalogue map[string]FertilizerDetail

// NewFertilizerCatalogue indexes details. Later duplicates win.
func NewFertilizerCatalogue(details []FertilizerDetail) FertilizerCatalogue {
	c := make(FertilizerCatalogue, len(details))
	for _, d := range details {
		c[d.ID] = d
	}
	return c
}

// ForApplication resolves the catalogue entry of an application.
func (c FertilizerCatalogue) ForApplication(app FertilizerApplication) (FertilizerDetail, error) {
	d, ok := c[app.CatalogueID]
	if !ok {
		return FertilizerDetail{}, NewError(CodeMissingReference,
			fmt.Sprintf("fertilizer application %s (%s): catalogue entry %q not found", app.ID, app.Name, app.CatalogueID),
			"application_id", app.ID, "catalogue_id", app.CatalogueID)
	}
	return d, nil
}

// CultivationCatalogue indexes cultivation details by catalogue ID.
type CultivationCatalogue map[string]CultivationDetail

// NewCultivationCatalogue indexes details. Later duplicates win.
func NewCultivationCatalogue(details []CultivationDetail) CultivationCatalogue {
	c := make(CultivationCatalogue, len(details))
	for _, d := range details {
		c[d.ID] = d
	}
	return c
}

// ForCultivation resolves the catalogue entry of a cultivation.
func (c CultivationCatalogue) ForCultivation(cult Cultivation) (CultivationDetail, error) {
	d, ok := c[cult.CatalogueID]
	if !ok {
		return CultivationDetail{}, NewError(CodeMissingReference,
			fmt.Sprintf("cultivation %s: catalogue entry %q not found", cult.ID, cult.CatalogueID),
			"cultivation_id", cult.ID, "catalogue_id", cult.CatalogueID)
	}
	return d, nil
}

// CultivationIndex indexes a field's cultivations by ID.
type CultivationIndex map[string]Cultivation

// NewCultivationIndex indexes cultivations.
func NewCultivationIndex(cultivations []Cultivation) CultivationIndex {
	idx := make(CultivationIndex, len(cultivations))
	for _, c := range cultivations {
		idx[c.ID] = c
	}
	return idx
}

// ForHarvest resolves the cultivation a harvest belongs to.
func (idx CultivationIndex) ForHarvest(h Harvest) (Cultivation, error) {
	c, ok := idx[h.CultivationID]
	if !ok {
		return Cultivation{}, NewError(CodeMissingReference,
			fmt.Sprintf("harvest %s: cultivation %q not found", h.ID, h.CultivationID),
			"harvest_id", h.ID, "cultivation_id", h.CultivationID)
	}
	return c, nil
}
