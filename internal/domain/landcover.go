package domain

import "time"

// LandCover is the surface class a field presents on a given day.
type LandCover string

const (
	Grassland LandCover = "grassland"
	Cropland  LandCover = "cropland"
	BareSoil  LandCover = "bare_soil"
)

var (
	grasslandRotations = map[string]struct{}{
		"grass":  {},
		"clover": {},
	}

	croplandRotations = map[string]struct{}{
		"potato":    {},
		"rapeseed":  {},
		"starch":    {},
		"maize":     {},
		"cereal":    {},
		"sugarbeet": {},
		"catchcrop": {},
		"alfalfa":   {},
		"nature":    {},
		"other":     {},
	}

	// bareSoilCatalogue lists catalogue entries that leave the soil bare
	// whatever their crop rotation category says.
	bareSoilCatalogue = map[string]struct{}{
		"nl_6794": {}, // black fallow
	}
)

// ClassifyLandCover determines the land cover of a field on the given day from
// its cultivations. Grassland wins over cropland when both are active, e.g.
// when a crop is undersown in grass. Without an active cultivation the field
// is bare soil.
func ClassifyLandCover(date time.Time, cultivations []Cultivation, catalogue CultivationCatalogue) (LandCover, error) {
	var grass, crop bool
	for _, c := range cultivations {
		if !c.ActiveOn(date) {
			continue
		}
		detail, err := catalogue.ForCultivation(c)
		if err != nil {
			return "", err
		}
		if _, bare := bareSoilCatalogue[detail.ID]; bare {
			continue
		}
		if _, ok := grasslandRotations[detail.CropRotation]; ok {
			grass = true
		}
		if _, ok := croplandRotations[detail.CropRotation]; ok {
			crop = true
		}
	}

	switch {
	case grass:
		return Grassland, nil
	case crop:
		return Cropland, nil
	default:
		return BareSoil, nil
	}
}
