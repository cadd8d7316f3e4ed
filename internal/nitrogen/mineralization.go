package nitrogen

import (
	"fmt"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/shopspring/decimal"
)

// MINIP parameters (Janssen, 1984).
var (
	// Mean annual air temperature in the Netherlands, °C.
	minipTemperature = domain.Dec("10.6")

	// Apparent initial age of soil organic matter, years.
	minipInitialAge = domain.Dec("24")

	minipRateConstant = domain.Dec("4.7")
	minipAgeExponent  = domain.Dec("-0.6")

	// Fraction of decomposed carbon assimilated into microbial biomass.
	minipAssimilation = domain.Dec("0.25")
	minipBiomassCN    = domain.Dec("10")

	// Topsoil layer, m.
	minipDepth = domain.Dec("0.3")

	squareMetresPerHectare = domain.Dec("10000")
	two                    = domain.Dec("2")
	nine                   = domain.Dec("9")

	mineralizationMin = domain.Dec("5")
	mineralizationMax = domain.Dec("250")
)

// Soil parameter names reported in missing-parameter errors.
const (
	paramOrganicCarbon = "organic_carbon"
	paramCNRatio       = "cn_ratio"
	paramBulkDensity   = "bulk_density"
)

// CalculateMineralizationSupply estimates net nitrogen mineralization from
// soil organic matter with the MINIP decomposition model. The annual result
// is clamped to [5, 250] kg N/ha before scaling to the time frame.
func CalculateMineralizationSupply(soil domain.SoilParameters, tf domain.TimeFrame) (decimal.Decimal, error) {
	annual, err := AnnualMineralization(soil)
	if err != nil {
		return decimal.Zero, err
	}
	return annual.Mul(tf.YearFraction()), nil
}

// AnnualMineralization returns the clamped annual net mineralization in
// kg N/ha.
func AnnualMineralization(soil domain.SoilParameters) (decimal.Decimal, error) {
	carbon, err := requireSoilParameter(soil.OrganicCarbon, paramOrganicCarbon)
	if err != nil {
		return decimal.Zero, err
	}
	cn, err := requireSoilParameter(soil.CNRatio, paramCNRatio)
	if err != nil {
		return decimal.Zero, err
	}
	density, err := requireSoilParameter(soil.BulkDensity, paramBulkDensity)
	if err != nil {
		return decimal.Zero, err
	}
	if !cn.IsPositive() {
		return decimal.Zero, domain.NewError(domain.CodeUnknownValue,
			fmt.Sprintf("soil C:N ratio must be positive, got %s", cn), "parameter", paramCNRatio)
	}

	raw, err := minip(carbon, cn, density)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.Clamp(raw, mineralizationMin, mineralizationMax), nil
}

// minip returns the unclamped net nitrogen mineralization of one year.
//
//	C      = OC × BD × depth × 10000                    kg C / ha
//	f      = 2^((T − 9) / 9)                            temperature factor
//	F      = 1 − exp(4.7 × ((a + f)^−0.6 − a^−0.6))     decomposed fraction
//	Cdec   = C × F
//	N      = Cdec / CN − Cdec × assimilation / CN_biomass
func minip(carbon, cn, density decimal.Decimal) (decimal.Decimal, error) {
	stock := carbon.Mul(density).Mul(minipDepth).Mul(squareMetresPerHectare)

	tempFactor, err := domain.Pow(two, minipTemperature.Sub(nine).Div(nine))
	if err != nil {
		return decimal.Zero, err
	}
	aged, err := domain.Pow(minipInitialAge.Add(tempFactor), minipAgeExponent)
	if err != nil {
		return decimal.Zero, err
	}
	initial, err := domain.Pow(minipInitialAge, minipAgeExponent)
	if err != nil {
		return decimal.Zero, err
	}
	remaining, err := domain.Exp(minipRateConstant.Mul(aged.Sub(initial)))
	if err != nil {
		return decimal.Zero, err
	}
	decomposed := stock.Mul(decimal.NewFromInt(1).Sub(remaining))

	released := decomposed.Div(cn)
	immobilized := decomposed.Mul(minipAssimilation).Div(minipBiomassCN)
	return released.Sub(immobilized), nil
}

func requireSoilParameter(v decimal.NullDecimal, name string) (decimal.Decimal, error) {
	if !v.Valid {
		return decimal.Zero, domain.NewError(domain.CodeMissingSoilParameter,
			fmt.Sprintf("soil parameter %s is missing", name), "parameter", name)
	}
	return v.Decimal, nil
}
