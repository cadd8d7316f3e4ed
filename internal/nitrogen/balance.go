// Package nitrogen calculates farm nitrogen balances: supply, removal and
// emission per field, aggregated over the farm.
package nitrogen

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of fields calculated in parallel when
// the caller does not configure it.
const DefaultConcurrency = 8

// Calculator computes nitrogen balances. It holds no per-request state and is
// safe for concurrent use.
type Calculator struct {
	rasters     domain.RasterSource
	concurrency int
	logger      *slog.Logger
}

// NewCalculator creates a Calculator reading deposition from rasters. A
// non-positive concurrency falls back to DefaultConcurrency.
func NewCalculator(rasters domain.RasterSource, concurrency int, logger *slog.Logger) *Calculator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Calculator{
		rasters:     rasters,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Calculate computes the balance of every field and the area-weighted farm
// balance. A field that fails is reported in FieldErrorMessages and does not
// affect the others. The returned error is non-nil only when ctx ends before
// all fields were calculated.
func (c *Calculator) Calculate(ctx context.Context, input domain.NitrogenBalanceInput) (domain.NitrogenBalance, error) {
	fertilizers := domain.NewFertilizerCatalogue(input.FertilizerDetails)
	cultivations := domain.NewCultivationCatalogue(input.CultivationDetails)

	deposition, depErr := c.sampleDeposition(ctx, input)
	if err := ctx.Err(); err != nil {
		return domain.NitrogenBalance{}, err
	}

	results := make([]domain.FieldResult, len(input.Fields))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, fi := range input.Fields {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result := domain.FieldResult{FieldID: fi.Field.ID, Area: fi.Field.Area}
			err := depErr
			if err == nil {
				var fb domain.FieldBalance
				fb, err = CalculateField(fi, deposition[i], fertilizers, cultivations, input.TimeFrame)
				result.Balance = &fb
			}
			if err != nil {
				result.Balance = nil
				result.ErrorMessage = fmt.Sprintf("field %s: %v", fi.Field.ID, err)
				result.ErrorCode = domain.ErrorCodeOf(err)
				c.logger.Warn("field balance failed",
					"field_id", fi.Field.ID,
					"code", domain.ErrorCodeOf(err),
					"error", err,
				)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.NitrogenBalance{}, err
	}

	return aggregate(results), nil
}

// sampleDeposition opens the deposition raster once and samples every field
// centroid concurrently. A raster that cannot be opened fails all fields; a
// single failed sample counts as no data.
func (c *Calculator) sampleDeposition(ctx context.Context, input domain.NitrogenBalanceInput) ([]decimal.Decimal, error) {
	annual := make([]decimal.Decimal, len(input.Fields))
	if len(input.Fields) == 0 {
		return annual, nil
	}

	url := DepositionURL(input.PublicDataURL)
	raster, err := c.rasters.Open(ctx, url)
	if err != nil {
		c.logger.Error("open deposition raster failed", "url", url, "error", err)
		return nil, domain.ExternalIOError("open deposition raster", err)
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, fi := range input.Fields {
		g.Go(func() error {
			v, err := SampleAnnualDeposition(gctx, raster, fi.Field.Centroid)
			if err != nil {
				failed.Add(1)
				c.logger.Warn("deposition lookup failed, using zero",
					"field_id", fi.Field.ID,
					"lon", fi.Field.Centroid.Lon,
					"lat", fi.Field.Centroid.Lat,
					"error", err,
				)
				v = decimal.Zero
			}
			annual[i] = v
			return nil
		})
	}
	_ = g.Wait() // goroutines never fail

	// Every read failing points at a replaced or unreachable file rather than
	// a bad pixel; drop the opened raster so the next request opens it anew.
	if int(failed.Load()) == len(input.Fields) && ctx.Err() == nil {
		if inv, ok := c.rasters.(domain.RasterInvalidator); ok {
			c.logger.Warn("deposition raster unreadable, invalidating", "url", url)
			inv.Invalidate(url)
		}
	}
	return annual, nil
}

// CalculateField computes the balance of one field from its annual
// deposition. Deposition and mineralization are scaled to the part of tf in
// which the field is in use.
func CalculateField(in domain.FieldInput, annualDeposition decimal.Decimal,
	fertilizers domain.FertilizerCatalogue, cultivations domain.CultivationCatalogue, tf domain.TimeFrame,
) (domain.FieldBalance, error) {
	window := tf.Within(in.Field.Start, in.Field.End)
	soil := domain.CombineSoilAnalyses(in.SoilAnalyses)

	supply, err := CalculateSupply(in, soil, annualDeposition, fertilizers, cultivations, window)
	if err != nil {
		return domain.FieldBalance{}, err
	}
	removal, err := CalculateRemoval(in.Harvests, domain.NewCultivationIndex(in.Cultivations), cultivations)
	if err != nil {
		return domain.FieldBalance{}, err
	}
	emission, err := CalculateEmission(in, soil, fertilizers, cultivations, window)
	if err != nil {
		return domain.FieldBalance{}, err
	}

	// Removal and emission are negative already.
	return domain.FieldBalance{
		FieldID:  in.Field.ID,
		Balance:  domain.Sum(supply.Total, removal.Total, emission.Total),
		Supply:   supply,
		Removal:  removal,
		Emission: emission,
	}, nil
}

// aggregate computes area-weighted farm values over the successful fields and
// collects the error messages of the failed ones.
func aggregate(results []domain.FieldResult) domain.NitrogenBalance {
	out := domain.NitrogenBalance{
		Fields:             results,
		FieldErrorMessages: []string{},
	}

	var area, balance, supply, removal, emission decimal.Decimal
	for _, r := range results {
		if r.Balance == nil {
			out.HasErrors = true
			out.FieldErrorMessages = append(out.FieldErrorMessages, r.ErrorMessage)
			continue
		}
		area = area.Add(r.Area)
		balance = balance.Add(r.Balance.Balance.Mul(r.Area))
		supply = supply.Add(r.Balance.Supply.Total.Mul(r.Area))
		removal = removal.Add(r.Balance.Removal.Total.Mul(r.Area))
		emission = emission.Add(r.Balance.Emission.Total.Mul(r.Area))
	}

	if area.IsPositive() {
		out.Balance = balance.Div(area)
		out.Supply = supply.Div(area)
		out.Removal = removal.Div(area)
		out.Volatilization = emission.Div(area)
	}
	return out
}
