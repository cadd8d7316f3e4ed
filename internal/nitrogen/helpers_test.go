package nitrogen

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal { return domain.Dec(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(domain.Dec(s)) }

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

var year2023 = domain.TimeFrame{Start: date(2023, 1, 1), End: date(2023, 12, 31)}

var testFertilizers = domain.NewFertilizerCatalogue([]domain.FertilizerDetail{
	{ID: "cattle_slurry", Name: "Rundveedrijfmest", Type: domain.FertilizerManure, NContent: nd("4.0"), NH4Content: nd("2.0")},
	{ID: "pig_slurry", Name: "Varkensdrijfmest", Type: domain.FertilizerManure, NContent: nd("6.5"), NH4Content: nd("4.0")},
	{ID: "kas", Name: "Kalkammonsalpeter", Type: domain.FertilizerMineral, NContent: nd("270"), NO3Content: nd("135"), NH4Content: nd("135"), SContent: nd("0")},
	{ID: "green_compost", Name: "Groencompost", Type: domain.FertilizerCompost, NContent: nd("7"), NH4Content: nd("0.3")},
	{ID: "vinasse", Name: "Vinasse", Type: "byproduct", NContent: nd("30")},
})

var testCultivations = domain.NewCultivationCatalogue([]domain.CultivationDetail{
	{ID: "nl_265", CropRotation: "grass", Yield: nd("11000"), NHarvestable: nd("30"), NResidue: nd("20"), HarvestIndex: nd("0.8")},
	{ID: "nl_259", CropRotation: "maize", Yield: nd("17000"), NHarvestable: nd("12"), NResidue: nd("11"), HarvestIndex: nd("0.85")},
	{ID: "nl_233", CropRotation: "cereal", Yield: nd("9000"), NHarvestable: nd("19"), NResidue: nd("6"), HarvestIndex: nd("0.5")},
	{ID: "nl_800", CropRotation: "clover", Yield: nd("8000"), NHarvestable: nd("35"), NFixation: nd("150")},
	{ID: "nl_2014", CropRotation: "potato", Yield: nd("45000"), NHarvestable: nd("3.5")},
})

// grassField is a grassland field on sandy soil with one cut, cattle slurry
// injected in spring and one mineral dressing.
func grassField(id string) domain.FieldInput {
	return domain.FieldInput{
		Field: domain.Field{ID: id, Centroid: domain.Centroid{Lon: 5.1, Lat: 52.1}, Area: dec("10")},
		Cultivations: []domain.Cultivation{
			{ID: id + "-c1", FieldID: id, CatalogueID: "nl_265", Start: date(2022, 3, 1)},
		},
		Harvests: []domain.Harvest{
			{ID: id + "-h1", CultivationID: id + "-c1", Date: date(2023, 6, 1), Analyses: []domain.HarvestAnalysis{
				{Yield: nd("5000"), NHarvestable: nd("32")},
			}},
		},
		SoilAnalyses: []domain.SoilAnalysis{
			{ID: id + "-s1", FieldID: id, SamplingDate: date(2022, 2, 1), OrganicCarbon: nd("20"), CNRatio: nd("10"), BulkDensity: nd("1.3"), SoilType: "dekzand", GroundwaterClass: "IV"},
		},
		FertilizerApplications: []domain.FertilizerApplication{
			{ID: id + "-a1", FieldID: id, CatalogueID: "cattle_slurry", Name: "Rundveedrijfmest", Amount: dec("30000"), Date: date(2023, 3, 15), Method: domain.MethodInjection},
			{ID: id + "-a2", FieldID: id, CatalogueID: "kas", Name: "Kalkammonsalpeter", Amount: dec("200"), Date: date(2023, 4, 10), Method: domain.MethodBroadcasting},
		},
	}
}

type constantRaster float64

func (r constantRaster) Sample(context.Context, geom.Point) (float64, bool, error) {
	return float64(r), true, nil
}

type rasterFunc func(p geom.Point) (float64, bool, error)

func (f rasterFunc) Sample(_ context.Context, p geom.Point) (float64, bool, error) {
	return f(p)
}

type fakeSource struct {
	mu          sync.Mutex
	raster      domain.DepositionRaster
	err         error
	urls        []string
	invalidated []string
}

func (s *fakeSource) Open(_ context.Context, url string) (domain.DepositionRaster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	if s.err != nil {
		return nil, s.err
	}
	return s.raster, nil
}

func (s *fakeSource) Invalidate(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, url)
}
