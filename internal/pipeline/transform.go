package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/nutrient-balance/nbalance/internal/nitrogen"
	"github.com/nutrient-balance/nbalance/internal/observability"
)

// BalanceCalculator computes the nitrogen balance of a collected farm input.
type BalanceCalculator interface {
	Calculate(ctx context.Context, input domain.NitrogenBalanceInput) (domain.NitrogenBalance, error)
}

// BalanceTransformer implements Transformer: it turns a balance request into
// a serialized balance result.
type BalanceTransformer struct {
	calculator    BalanceCalculator
	publicDataURL string
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewTransformer creates a BalanceTransformer. publicDataURL is used for
// requests that do not name their own.
func NewTransformer(calculator BalanceCalculator, publicDataURL string, metrics *observability.Metrics, logger *slog.Logger) *BalanceTransformer {
	return &BalanceTransformer{
		calculator:    calculator,
		publicDataURL: publicDataURL,
		metrics:       metrics,
		logger:        logger,
	}
}

func (t *BalanceTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseBalanceRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	dataURL := req.PublicDataURL
	if dataURL == "" {
		dataURL = t.publicDataURL
	}
	input, err := nitrogen.CollectInput(ctx, &req.Snapshot, req.Snapshot.FarmID, req.TimeFrame, dataURL)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	start := time.Now()
	balance, err := t.calculator.Calculate(ctx, input)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.metrics.BalanceDuration.Observe(time.Since(start).Seconds())
	t.recordFields(balance)

	t.logger.Info("balance calculated",
		"request_id", req.RequestID,
		"farm_id", req.Snapshot.FarmID,
		"fields", len(balance.Fields),
		"has_errors", balance.HasErrors,
		"balance", balance.Balance.String(),
	)

	return domain.SerializeBalanceResult(domain.NewBalanceResult(req, balance))
}

func (t *BalanceTransformer) recordFields(balance domain.NitrogenBalance) {
	failed := len(balance.FieldErrorMessages)
	t.metrics.FieldsCalculated.WithLabelValues("success").Add(float64(len(balance.Fields) - failed))
	t.metrics.FieldsCalculated.WithLabelValues("error").Add(float64(failed))
}
