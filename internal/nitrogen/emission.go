package nitrogen

import (
	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/shopspring/decimal"
)

// Coefficients of the mineral fertilizer ammonia emission formula. The
// formula yields a percentage of total N.
var (
	coefOrganicN       = domain.Dec("7.021e-5")
	coefNitrateSulfur  = domain.Dec("-4.308e-5")
	coefAmmoniumSquare = domain.Dec("2.498e-4")
	hundred            = decimal.NewFromInt(100)
)

// Residue volatilization: max(0, 0.41 × N_residue − 5.42).
var (
	residueFactorSlope     = domain.Dec("0.41")
	residueFactorIntercept = domain.Dec("5.42")
)

// CalculateEmission combines ammonia and nitrate emission of a field.
func CalculateEmission(in domain.FieldInput, soil domain.SoilParameters,
	fertilizers domain.FertilizerCatalogue, cultivations domain.CultivationCatalogue, tf domain.TimeFrame,
) (domain.NitrogenEmission, error) {
	ammonia, err := CalculateAmmoniaEmission(in, fertilizers, cultivations)
	if err != nil {
		return domain.NitrogenEmission{}, err
	}
	nitrate := CalculateNitrateEmission(in, soil, cultivations, tf)

	return domain.NitrogenEmission{
		Total:   ammonia.Total.Add(nitrate.Total),
		Ammonia: ammonia,
		Nitrate: nitrate,
	}, nil
}

// CalculateAmmoniaEmission returns the ammonia volatilized from fertilizers and
// crop residues. Grazing emission is not modeled and stays zero.
func CalculateAmmoniaEmission(in domain.FieldInput, fertilizers domain.FertilizerCatalogue, cultivations domain.CultivationCatalogue) (domain.AmmoniaEmission, error) {
	fert, err := CalculateFertilizerAmmonia(in.FertilizerApplications, fertilizers, in.Cultivations, cultivations)
	if err != nil {
		return domain.AmmoniaEmission{}, err
	}
	residues, err := CalculateResidueAmmonia(in.Cultivations, in.Harvests, cultivations)
	if err != nil {
		return domain.AmmoniaEmission{}, err
	}
	grazing := decimal.Zero

	return domain.AmmoniaEmission{
		Total:       domain.Sum(fert.Total, residues.Total, grazing),
		Fertilizers: fert,
		Residues:    residues,
		Grazing:     grazing,
	}, nil
}

// CalculateFertilizerAmmonia returns the ammonia emission of each fertilizer
// application. Mineral fertilizers use their own emission factor; manure,
// compost and other organic products use the method × land cover table with
// the land cover on the application date.
func CalculateFertilizerAmmonia(apps []domain.FertilizerApplication, fertilizers domain.FertilizerCatalogue,
	fieldCultivations []domain.Cultivation, cultivations domain.CultivationCatalogue,
) (domain.FertilizerBreakdown, error) {
	emission := domain.NewFertilizerBreakdown()
	for _, app := range apps {
		detail, err := fertilizers.ForApplication(app)
		if err != nil {
			return domain.FertilizerBreakdown{}, err
		}

		var value decimal.Decimal
		if detail.Class() == domain.FertilizerMineral {
			factor := MineralAmmoniaFactor(detail)
			value = domain.PerThousand(app.Amount.Mul(domain.OrZero(detail.NContent)), factor).Neg()
		} else {
			cover, err := domain.ClassifyLandCover(app.Date, fieldCultivations, cultivations)
			if err != nil {
				return domain.FertilizerBreakdown{}, err
			}
			factor, err := domain.ManureAmmoniaFactor(app, cover)
			if err != nil {
				return domain.FertilizerBreakdown{}, err
			}
			value = domain.PerThousand(app.Amount.Mul(domain.OrZero(detail.NH4Content)), factor).Neg()
		}
		emission.Append(detail.Class(), app.ID, value)
	}
	return emission, nil
}

// MineralAmmoniaFactor returns the ammonia emission factor of a mineral
// fertilizer as a fraction of total N. A predefined factor on the catalogue
// entry wins and is clamped to [0, 1]; otherwise
//
//	a = N_org² × 7.021e-5
//	b = N_NO3 × S × −4.308e-5
//	c = N_NH4² × 2.498e-4
//	factor = (a + b + c) / 100
//
// with N_org = N_total − N_NO3 − N_NH4.
func MineralAmmoniaFactor(detail domain.FertilizerDetail) decimal.Decimal {
	if detail.EmissionFactorNH3.Valid {
		return domain.Clamp(detail.EmissionFactorNH3.Decimal, decimal.Zero, decimal.NewFromInt(1))
	}

	n := domain.OrZero(detail.NContent)
	no3 := domain.OrZero(detail.NO3Content)
	nh4 := domain.OrZero(detail.NH4Content)
	s := domain.OrZero(detail.SContent)
	organic := n.Sub(no3).Sub(nh4)

	// TODO: apply the inhibitor coefficient for organic N once applications
	// record whether a nitrification inhibitor was used.
	a := organic.Mul(organic).Mul(coefOrganicN)
	b := no3.Mul(s).Mul(coefNitrateSulfur)
	c := nh4.Mul(nh4).Mul(coefAmmoniumSquare)
	return domain.Sum(a, b, c).Div(hundred)
}

// CalculateResidueAmmonia returns the ammonia volatilized from crop residues
// left on the field. Only cultivations that explicitly leave residue
// contribute; a missing or zero harvest index yields zero.
func CalculateResidueAmmonia(fieldCultivations []domain.Cultivation, harvests []domain.Harvest, cultivations domain.CultivationCatalogue) (domain.ItemizedTotal, error) {
	residues := domain.ItemizedTotal{Items: []domain.ItemValue{}}
	for _, c := range fieldCultivations {
		if c.CropResidue == nil || !*c.CropResidue {
			continue
		}
		detail, err := cultivations.ForCultivation(c)
		if err != nil {
			return domain.ItemizedTotal{}, err
		}
		residues.Append(c.ID, residueAmmonia(c, harvests, detail))
	}
	return residues, nil
}

func residueAmmonia(c domain.Cultivation, harvests []domain.Harvest, detail domain.CultivationDetail) decimal.Decimal {
	hi := domain.OrZero(detail.HarvestIndex)
	if hi.IsZero() {
		return decimal.Zero
	}

	yield := cultivationYield(c, harvests, detail)
	content := domain.OrZero(detail.NResidue)
	factor := decimal.Max(decimal.Zero, residueFactorSlope.Mul(content).Sub(residueFactorIntercept))

	residue := yield.Div(hi).Mul(decimal.NewFromInt(1).Sub(hi))
	return domain.PerThousand(residue.Mul(content), factor).Neg()
}

// cultivationYield averages the yields of the cultivation's harvests, or the
// catalogue default when it was not harvested.
func cultivationYield(c domain.Cultivation, harvests []domain.Harvest, detail domain.CultivationDetail) decimal.Decimal {
	var yields []decimal.Decimal
	for _, h := range harvests {
		if h.CultivationID == c.ID {
			yields = append(yields, harvestYield(h, detail))
		}
	}
	if len(yields) == 0 {
		return domain.OrZero(detail.Yield)
	}
	return domain.Mean(yields)
}

// CalculateNitrateEmission is the extension point for nitrate leaching. The
// leaching model is not implemented and the total is always zero. The
// leaching factor for the land cover at the end of the time frame is
// reported when it can be determined.
func CalculateNitrateEmission(in domain.FieldInput, soil domain.SoilParameters, cultivations domain.CultivationCatalogue, tf domain.TimeFrame) domain.NitrateEmission {
	nitrate := domain.NitrateEmission{Total: decimal.Zero}

	cover, err := domain.ClassifyLandCover(tf.End, in.Cultivations, cultivations)
	if err != nil {
		return nitrate
	}
	factor, err := domain.NitrateLeachingFactor(cover, soil.SoilType, soil.GroundwaterClass)
	if err != nil {
		return nitrate
	}
	nitrate.LeachingFactor = decimal.NewNullDecimal(factor)
	return nitrate
}
