package nitrogen

import (
	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/shopspring/decimal"
)

// CalculateRemoval returns the nitrogen removed with harvested produce. Each
// harvest analysis removes yield × N content / 1000; several analyses of one
// harvest are averaged and harvests are summed. Values are negative.
func CalculateRemoval(harvests []domain.Harvest, cultivations domain.CultivationIndex, catalogue domain.CultivationCatalogue) (domain.NitrogenRemoval, error) {
	removal := domain.NitrogenRemoval{Harvests: domain.ItemizedTotal{Items: []domain.ItemValue{}}}
	for _, h := range harvests {
		cult, err := cultivations.ForHarvest(h)
		if err != nil {
			return domain.NitrogenRemoval{}, err
		}
		detail, err := catalogue.ForCultivation(cult)
		if err != nil {
			return domain.NitrogenRemoval{}, err
		}
		removal.Harvests.Append(h.ID, harvestRemoval(h, detail))
	}
	removal.Total = removal.Harvests.Total
	return removal, nil
}

func harvestRemoval(h domain.Harvest, detail domain.CultivationDetail) decimal.Decimal {
	analyses := h.Analyses
	if len(analyses) == 0 {
		// Catalogue defaults only.
		analyses = []domain.HarvestAnalysis{{}}
	}

	values := make([]decimal.Decimal, 0, len(analyses))
	for _, a := range analyses {
		yield := domain.ValueOr(a.Yield, domain.OrZero(detail.Yield))
		content := domain.ValueOr(a.NHarvestable, domain.OrZero(detail.NHarvestable))
		values = append(values, domain.PerThousand(yield, content).Neg())
	}
	return domain.Mean(values)
}

// harvestYield is the mean observed yield of a harvest, falling back to the
// catalogue default for analyses without one.
func harvestYield(h domain.Harvest, detail domain.CultivationDetail) decimal.Decimal {
	fallback := domain.OrZero(detail.Yield)
	if len(h.Analyses) == 0 {
		return fallback
	}
	yields := make([]decimal.Decimal, 0, len(h.Analyses))
	for _, a := range h.Analyses {
		yields = append(yields, domain.ValueOr(a.Yield, fallback))
	}
	return domain.Mean(yields)
}
