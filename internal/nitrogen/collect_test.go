package nitrogen

import (
	"context"
	"errors"
	"testing"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(fields ...domain.FieldInput) *domain.Snapshot {
	s := &domain.Snapshot{FarmID: "farm-1"}
	for _, fi := range fields {
		fi.Field.FarmID = s.FarmID
		s.Fields = append(s.Fields, fi.Field)
		s.Cultivations = append(s.Cultivations, fi.Cultivations...)
		s.Harvests = append(s.Harvests, fi.Harvests...)
		s.SoilAnalyses = append(s.SoilAnalyses, fi.SoilAnalyses...)
		s.FertilizerApplications = append(s.FertilizerApplications, fi.FertilizerApplications...)
	}
	in := balanceInput()
	s.FertilizerDetails = in.FertilizerDetails
	s.CultivationDetails = in.CultivationDetails
	return s
}

type failingHarvests struct {
	*domain.Snapshot
}

func (failingHarvests) ListHarvests(context.Context, []string, domain.TimeFrame) ([]domain.Harvest, error) {
	return nil, errors.New("query timeout")
}

func TestCollectInput(t *testing.T) {
	f1, f2 := grassField("f1"), grassField("f2")
	f2.Harvests[0].Date = date(2022, 6, 1)
	repo := snapshotOf(f1, f2)

	input, err := CollectInput(context.Background(), repo, "farm-1", year2023, "https://data.example.org")
	require.NoError(t, err)

	assert.Equal(t, year2023, input.TimeFrame)
	assert.Equal(t, "https://data.example.org", input.PublicDataURL)
	assert.Len(t, input.FertilizerDetails, len(testFertilizers))
	assert.Len(t, input.CultivationDetails, len(testCultivations))

	require.Len(t, input.Fields, 2)
	assert.Equal(t, "f1", input.Fields[0].Field.ID)
	assert.Len(t, input.Fields[0].Harvests, 1)
	assert.Len(t, input.Fields[0].FertilizerApplications, 2)
	assert.Len(t, input.Fields[0].SoilAnalyses, 1)
	assert.Equal(t, "f2", input.Fields[1].Field.ID)
	assert.Empty(t, input.Fields[1].Harvests, "harvest outside the time frame")
}

func TestCollectInput_RepositoryErrors(t *testing.T) {
	t.Run("unknown farm", func(t *testing.T) {
		_, err := CollectInput(context.Background(), snapshotOf(grassField("f1")), "farm-2", year2023, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list fields")
	})

	t.Run("harvest query fails", func(t *testing.T) {
		repo := failingHarvests{snapshotOf(grassField("f1"))}
		_, err := CollectInput(context.Background(), repo, "farm-1", year2023, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list harvests of field f1")
		assert.Contains(t, err.Error(), "query timeout")
	})
}
