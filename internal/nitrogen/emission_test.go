package nitrogen

import (
	"errors"
	"testing"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMineralAmmoniaFactor(t *testing.T) {
	t.Run("formula", func(t *testing.T) {
		kas, ok := testFertilizers["kas"]
		require.True(t, ok)
		// 135² × 2.498e-4 / 100
		got := MineralAmmoniaFactor(kas)
		assert.True(t, got.Equal(dec("0.04552605")), "got %s", got)
	})

	t.Run("organic and sulfur terms", func(t *testing.T) {
		d := domain.FertilizerDetail{NContent: nd("100"), NO3Content: nd("40"), NH4Content: nd("20"), SContent: nd("50")}
		// (40² × 7.021e-5 + 40 × 50 × −4.308e-5 + 20² × 2.498e-4) / 100
		want := dec("0.112336").Add(dec("-0.08616")).Add(dec("0.09992")).Div(dec("100"))
		got := MineralAmmoniaFactor(d)
		assert.True(t, got.Equal(want), "got %s, want %s", got, want)
	})

	t.Run("predefined factor wins", func(t *testing.T) {
		d := domain.FertilizerDetail{NContent: nd("460"), EmissionFactorNH3: nd("0.15")}
		assert.True(t, MineralAmmoniaFactor(d).Equal(dec("0.15")))
	})

	t.Run("predefined factor is clamped", func(t *testing.T) {
		assert.True(t, MineralAmmoniaFactor(domain.FertilizerDetail{EmissionFactorNH3: nd("1.4")}).Equal(dec("1")))
		assert.True(t, MineralAmmoniaFactor(domain.FertilizerDetail{EmissionFactorNH3: nd("-0.2")}).IsZero())
	})
}

func TestCalculateFertilizerAmmonia(t *testing.T) {
	grass := []domain.Cultivation{{ID: "c-grass", CatalogueID: "nl_265", Start: date(2020, 3, 1)}}
	maize := []domain.Cultivation{{ID: "c-maize", CatalogueID: "nl_259", Start: date(2023, 4, 20), End: ptr(date(2023, 10, 1))}}

	t.Run("manure broadcast on grassland", func(t *testing.T) {
		apps := []domain.FertilizerApplication{
			{ID: "a1", CatalogueID: "cattle_slurry", Amount: dec("20000"), Date: date(2023, 3, 1), Method: domain.MethodBroadcasting},
		}
		got, err := CalculateFertilizerAmmonia(apps, testFertilizers, grass, testCultivations)
		require.NoError(t, err)
		// 20000 × 2.0 / 1000 × 0.68
		assert.True(t, got.Manure.Total.Equal(dec("-27.2")), "got %s", got.Manure.Total)
		assert.True(t, got.Total.Equal(dec("-27.2")))
	})

	t.Run("manure incorporated before sowing", func(t *testing.T) {
		apps := []domain.FertilizerApplication{
			{ID: "a1", CatalogueID: "pig_slurry", Amount: dec("5000"), Date: date(2023, 4, 1), Method: domain.MethodIncorporation},
		}
		got, err := CalculateFertilizerAmmonia(apps, testFertilizers, maize, testCultivations)
		require.NoError(t, err)
		// bare soil: 5000 × 4.0 / 1000 × 0.22
		assert.True(t, got.Manure.Total.Equal(dec("-4.4")), "got %s", got.Manure.Total)
	})

	t.Run("mineral fertilizer", func(t *testing.T) {
		apps := []domain.FertilizerApplication{
			{ID: "a1", CatalogueID: "kas", Amount: dec("200"), Date: date(2023, 4, 10), Method: domain.MethodBroadcasting},
		}
		got, err := CalculateFertilizerAmmonia(apps, testFertilizers, grass, testCultivations)
		require.NoError(t, err)
		assert.True(t, got.Mineral.Total.Equal(dec("-2.4584067")), "got %s", got.Mineral.Total)
	})

	t.Run("compost uses the manure table", func(t *testing.T) {
		apps := []domain.FertilizerApplication{
			{ID: "a1", CatalogueID: "green_compost", Amount: dec("10000"), Date: date(2023, 6, 1), Method: domain.MethodBroadcasting},
		}
		got, err := CalculateFertilizerAmmonia(apps, testFertilizers, maize, testCultivations)
		require.NoError(t, err)
		// cropland: 10000 × 0.3 / 1000 × 0.69
		assert.True(t, got.Compost.Total.Equal(dec("-2.07")), "got %s", got.Compost.Total)
	})

	t.Run("incorporation on grassland", func(t *testing.T) {
		apps := []domain.FertilizerApplication{
			{ID: "a1", Name: "Rundveedrijfmest", CatalogueID: "cattle_slurry", Amount: dec("20000"), Date: date(2023, 3, 1), Method: domain.MethodIncorporation},
		}
		_, err := CalculateFertilizerAmmonia(apps, testFertilizers, grass, testCultivations)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnknownValue))
	})
}

func TestCalculateResidueAmmonia(t *testing.T) {
	harvests := []domain.Harvest{
		{ID: "h1", CultivationID: "c-grass", Analyses: []domain.HarvestAnalysis{{Yield: nd("10000")}}},
	}

	t.Run("residue left on field", func(t *testing.T) {
		cults := []domain.Cultivation{{ID: "c-grass", CatalogueID: "nl_265", CropResidue: ptr(true)}}
		got, err := CalculateResidueAmmonia(cults, harvests, testCultivations)
		require.NoError(t, err)
		// 10000 / 0.8 × 0.2 × 20 / 1000 × (0.41 × 20 − 5.42)
		assert.True(t, got.Total.Equal(dec("-139")), "got %s", got.Total)
	})

	t.Run("catalogue yield without harvests", func(t *testing.T) {
		cults := []domain.Cultivation{{ID: "c-grass", CatalogueID: "nl_265", CropResidue: ptr(true)}}
		got, err := CalculateResidueAmmonia(cults, nil, testCultivations)
		require.NoError(t, err)
		// 11000 / 0.8 × 0.2 × 20 / 1000 × 2.78
		assert.True(t, got.Total.Equal(dec("-152.9")), "got %s", got.Total)
	})

	t.Run("low residue N gives zero factor", func(t *testing.T) {
		cults := []domain.Cultivation{{ID: "c-wheat", CatalogueID: "nl_233", CropResidue: ptr(true)}}
		got, err := CalculateResidueAmmonia(cults, nil, testCultivations)
		require.NoError(t, err)
		assert.True(t, got.Total.IsZero())
	})

	t.Run("no harvest index", func(t *testing.T) {
		cults := []domain.Cultivation{{ID: "c-potato", CatalogueID: "nl_2014", CropResidue: ptr(true)}}
		got, err := CalculateResidueAmmonia(cults, nil, testCultivations)
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.True(t, got.Total.IsZero())
	})

	t.Run("residue removed or unknown", func(t *testing.T) {
		cults := []domain.Cultivation{
			{ID: "c-grass", CatalogueID: "nl_265", CropResidue: ptr(false)},
			{ID: "c-other", CatalogueID: "nl_unknown"},
		}
		got, err := CalculateResidueAmmonia(cults, harvests, testCultivations)
		require.NoError(t, err)
		assert.Empty(t, got.Items)
		assert.True(t, got.Total.IsZero())
	})
}

func TestCalculateNitrateEmission(t *testing.T) {
	in := grassField("f1")
	soil := domain.CombineSoilAnalyses(in.SoilAnalyses)

	got := CalculateNitrateEmission(in, soil, testCultivations, year2023)
	assert.True(t, got.Total.IsZero())
	require.True(t, got.LeachingFactor.Valid)
	assert.True(t, got.LeachingFactor.Decimal.Equal(dec("0.18")))

	soil.SoilType = ""
	got = CalculateNitrateEmission(in, soil, testCultivations, year2023)
	assert.True(t, got.Total.IsZero())
	assert.False(t, got.LeachingFactor.Valid)
}

func TestCalculateAmmoniaEmission_GrazingIsZero(t *testing.T) {
	got, err := CalculateAmmoniaEmission(grassField("f1"), testFertilizers, testCultivations)
	require.NoError(t, err)

	assert.True(t, got.Grazing.IsZero())
	// −1.2 slurry, −2.4584067 mineral
	assert.True(t, got.Total.Equal(dec("-3.6584067")), "got %s", got.Total)
}

func TestFertilizerAmmonia_ReferenceCases(t *testing.T) {
	catalogue := domain.NewFertilizerCatalogue([]domain.FertilizerDetail{
		{ID: "mineral", Type: domain.FertilizerMineral, NContent: nd("100"), NO3Content: nd("50"), NH4Content: nd("50"), SContent: nd("10")},
		{ID: "manure", Type: domain.FertilizerManure, NContent: nd("40"), NH4Content: nd("20")},
	})
	grass := []domain.Cultivation{{ID: "c-grass", CatalogueID: "nl_265", Start: date(2020, 3, 1)}}
	maize := []domain.Cultivation{{ID: "c-maize", CatalogueID: "nl_259", Start: date(2023, 4, 1), End: ptr(date(2023, 10, 1))}}

	tests := []struct {
		name         string
		app          domain.FertilizerApplication
		cultivations []domain.Cultivation
		want         string
	}{
		{
			name:         "mineral formula",
			app:          domain.FertilizerApplication{ID: "a1", CatalogueID: "mineral", Amount: dec("1000"), Date: date(2023, 4, 1), Method: domain.MethodBroadcasting},
			cultivations: grass,
			want:         "-0.60296",
		},
		{
			name:         "manure broadcast on grassland",
			app:          domain.FertilizerApplication{ID: "a2", CatalogueID: "manure", Amount: dec("2000"), Date: date(2023, 4, 1), Method: domain.MethodBroadcasting},
			cultivations: grass,
			want:         "-27.2",
		},
		{
			name:         "manure incorporated on cropland",
			app:          domain.FertilizerApplication{ID: "a3", CatalogueID: "manure", Amount: dec("1000"), Date: date(2023, 5, 1), Method: domain.MethodIncorporation},
			cultivations: maize,
			want:         "-4.4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateFertilizerAmmonia([]domain.FertilizerApplication{tt.app}, catalogue, tt.cultivations, testCultivations)
			require.NoError(t, err)
			assert.True(t, got.Total.Equal(dec(tt.want)), "got %s, want %s", got.Total, tt.want)
		})
	}
}
