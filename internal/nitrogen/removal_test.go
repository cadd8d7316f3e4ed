package nitrogen

import (
	"errors"
	"testing"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateRemoval(t *testing.T) {
	cults := domain.NewCultivationIndex([]domain.Cultivation{
		{ID: "c-grass", CatalogueID: "nl_265"},
		{ID: "c-potato", CatalogueID: "nl_2014"},
	})

	harvests := []domain.Harvest{
		{ID: "h-averaged", CultivationID: "c-grass", Analyses: []domain.HarvestAnalysis{
			{Yield: nd("5000"), NHarvestable: nd("32")},
			{Yield: nd("6000"), NHarvestable: nd("30")},
		}},
		{ID: "h-partial", CultivationID: "c-grass", Analyses: []domain.HarvestAnalysis{
			{NHarvestable: nd("20")},
		}},
		{ID: "h-defaults", CultivationID: "c-potato"},
	}

	got, err := CalculateRemoval(harvests, cults, testCultivations)
	require.NoError(t, err)

	require.Len(t, got.Harvests.Items, 3)
	// (160 + 180) / 2
	assert.True(t, got.Harvests.Items[0].Value.Equal(dec("-170")), "averaged %s", got.Harvests.Items[0].Value)
	// catalogue yield 11000 × 20 / 1000
	assert.True(t, got.Harvests.Items[1].Value.Equal(dec("-220")), "partial %s", got.Harvests.Items[1].Value)
	// 45000 × 3.5 / 1000
	assert.True(t, got.Harvests.Items[2].Value.Equal(dec("-157.5")), "defaults %s", got.Harvests.Items[2].Value)
	assert.True(t, got.Total.Equal(dec("-547.5")), "total %s", got.Total)
}

func TestCalculateRemoval_Empty(t *testing.T) {
	got, err := CalculateRemoval(nil, domain.NewCultivationIndex(nil), testCultivations)
	require.NoError(t, err)
	assert.True(t, got.Total.IsZero())
	assert.NotNil(t, got.Harvests.Items)
}

func TestCalculateRemoval_UnknownCultivation(t *testing.T) {
	harvests := []domain.Harvest{{ID: "h1", CultivationID: "c-gone"}}
	_, err := CalculateRemoval(harvests, domain.NewCultivationIndex(nil), testCultivations)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingReference))
	assert.Contains(t, err.Error(), "h1")
}
