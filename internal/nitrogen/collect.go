package nitrogen

import (
	"context"
	"fmt"

	"github.com/nutrient-balance/nbalance/internal/domain"
)

// Repository is the data-access collaborator. Implementations return records
// already scoped to the farm, the caller's permissions and the time frame.
type Repository interface {
	ListFields(ctx context.Context, farmID string, tf domain.TimeFrame) ([]domain.Field, error)
	ListCultivations(ctx context.Context, fieldID string, tf domain.TimeFrame) ([]domain.Cultivation, error)
	ListHarvests(ctx context.Context, cultivationIDs []string, tf domain.TimeFrame) ([]domain.Harvest, error)
	ListSoilAnalyses(ctx context.Context, fieldID string, tf domain.TimeFrame) ([]domain.SoilAnalysis, error)
	ListFertilizerApplications(ctx context.Context, fieldID string, tf domain.TimeFrame) ([]domain.FertilizerApplication, error)
	ListFertilizerDetails(ctx context.Context, farmID string) ([]domain.FertilizerDetail, error)
	ListCultivationDetails(ctx context.Context) ([]domain.CultivationDetail, error)
}

// CollectInput gathers the records of every field of a farm into a
// NitrogenBalanceInput.
func CollectInput(ctx context.Context, repo Repository, farmID string, tf domain.TimeFrame, publicDataURL string) (domain.NitrogenBalanceInput, error) {
	fields, err := repo.ListFields(ctx, farmID, tf)
	if err != nil {
		return domain.NitrogenBalanceInput{}, fmt.Errorf("list fields: %w", err)
	}

	input := domain.NitrogenBalanceInput{
		Fields:        make([]domain.FieldInput, 0, len(fields)),
		TimeFrame:     tf,
		PublicDataURL: publicDataURL,
	}
	for _, f := range fields {
		fi, err := collectField(ctx, repo, f, tf)
		if err != nil {
			return domain.NitrogenBalanceInput{}, err
		}
		input.Fields = append(input.Fields, fi)
	}

	if input.FertilizerDetails, err = repo.ListFertilizerDetails(ctx, farmID); err != nil {
		return domain.NitrogenBalanceInput{}, fmt.Errorf("list fertilizer details: %w", err)
	}
	if input.CultivationDetails, err = repo.ListCultivationDetails(ctx); err != nil {
		return domain.NitrogenBalanceInput{}, fmt.Errorf("list cultivation details: %w", err)
	}
	return input, nil
}

func collectField(ctx context.Context, repo Repository, f domain.Field, tf domain.TimeFrame) (domain.FieldInput, error) {
	cultivations, err := repo.ListCultivations(ctx, f.ID, tf)
	if err != nil {
		return domain.FieldInput{}, fmt.Errorf("list cultivations of field %s: %w", f.ID, err)
	}

	ids := make([]string, len(cultivations))
	for i, c := range cultivations {
		ids[i] = c.ID
	}
	harvests, err := repo.ListHarvests(ctx, ids, tf)
	if err != nil {
		return domain.FieldInput{}, fmt.Errorf("list harvests of field %s: %w", f.ID, err)
	}

	analyses, err := repo.ListSoilAnalyses(ctx, f.ID, tf)
	if err != nil {
		return domain.FieldInput{}, fmt.Errorf("list soil analyses of field %s: %w", f.ID, err)
	}

	apps, err := repo.ListFertilizerApplications(ctx, f.ID, tf)
	if err != nil {
		return domain.FieldInput{}, fmt.Errorf("list fertilizer applications of field %s: %w", f.ID, err)
	}

	return domain.FieldInput{
		Field:                  f,
		Cultivations:           cultivations,
		Harvests:               harvests,
		SoilAnalyses:           analyses,
		FertilizerApplications: apps,
	}, nil
}
