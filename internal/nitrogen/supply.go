package nitrogen

import (
	"context"
	"math"
	"strings"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/shopspring/decimal"
)

// DepositionPath locates the annual total nitrogen deposition raster below the
// public data URL. Only the 2022 reference year is published; every time
// frame is scaled from it.
const DepositionPath = "deposition/nl/ntot_2022.tiff"

// DepositionURL joins the public data base URL with DepositionPath.
func DepositionURL(publicDataURL string) string {
	return strings.TrimSuffix(publicDataURL, "/") + "/" + DepositionPath
}

// CalculateFertilizerSupply returns the nitrogen applied with fertilizers,
// split by fertilizer type. Every type converts the same way: amount (kg/ha)
// times total N content (g/kg) divided by 1000.
func CalculateFertilizerSupply(apps []domain.FertilizerApplication, catalogue domain.FertilizerCatalogue) (domain.FertilizerBreakdown, error) {
	supply := domain.NewFertilizerBreakdown()
	for _, app := range apps {
		detail, err := catalogue.ForApplication(app)
		if err != nil {
			return domain.FertilizerBreakdown{}, err
		}
		value := domain.PerThousand(app.Amount, domain.OrZero(detail.NContent))
		supply.Append(detail.Class(), app.ID, value)
	}
	return supply, nil
}

// CalculateFixationSupply returns the biological nitrogen fixation of the
// cultivations. A cultivation whose catalogue entry has no or a zero fixation
// rate contributes zero.
func CalculateFixationSupply(cultivations []domain.Cultivation, catalogue domain.CultivationCatalogue) (domain.ItemizedTotal, error) {
	fixation := domain.ItemizedTotal{Items: []domain.ItemValue{}}
	for _, c := range cultivations {
		detail, err := catalogue.ForCultivation(c)
		if err != nil {
			return domain.ItemizedTotal{}, err
		}
		fixation.Append(c.ID, domain.OrZero(detail.NFixation))
	}
	return fixation, nil
}

// SampleAnnualDeposition reads the annual deposition at the centroid. No-data
// pixels and points outside the raster yield zero.
func SampleAnnualDeposition(ctx context.Context, raster domain.DepositionRaster, centroid domain.Centroid) (decimal.Decimal, error) {
	v, ok, err := raster.Sample(ctx, centroid.Point())
	if err != nil {
		return decimal.Zero, err
	}
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(v), nil
}

// CalculateDepositionSupply scales an annual deposition to the time frame.
func CalculateDepositionSupply(annual decimal.Decimal, tf domain.TimeFrame) decimal.Decimal {
	return annual.Mul(tf.YearFraction())
}

// CalculateSupply combines all supply terms of a field.
func CalculateSupply(in domain.FieldInput, soil domain.SoilParameters, annualDeposition decimal.Decimal,
	fertilizers domain.FertilizerCatalogue, cultivations domain.CultivationCatalogue, tf domain.TimeFrame,
) (domain.NitrogenSupply, error) {
	fert, err := CalculateFertilizerSupply(in.FertilizerApplications, fertilizers)
	if err != nil {
		return domain.NitrogenSupply{}, err
	}
	fixation, err := CalculateFixationSupply(in.Cultivations, cultivations)
	if err != nil {
		return domain.NitrogenSupply{}, err
	}
	mineralization, err := CalculateMineralizationSupply(soil, tf)
	if err != nil {
		return domain.NitrogenSupply{}, err
	}
	deposition := CalculateDepositionSupply(annualDeposition, tf)

	return domain.NitrogenSupply{
		Total:          domain.Sum(fert.Total, fixation.Total, deposition, mineralization),
		Fertilizers:    fert,
		Fixation:       fixation,
		Deposition:     deposition,
		Mineralization: mineralization,
	}, nil
}
