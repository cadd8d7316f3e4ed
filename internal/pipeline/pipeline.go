package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/nutrient-balance/nbalance/internal/observability"
	"golang.org/x/sync/errgroup"
)

// BatchExtractor reads up to batchSize raw balance requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw balance request into a serialized result.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple balance results to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// DefaultRequestConcurrency is the number of requests of one batch that are
// calculated at the same time unless WithRequestConcurrency says otherwise.
const DefaultRequestConcurrency = 2

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRequestConcurrency bounds how many requests of a batch are calculated
// in parallel. Values below one are ignored.
func WithRequestConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// Pipeline consumes balance requests in batches, calculates them and
// publishes the results. Offsets of a batch are committed only once its
// results are published.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	concurrency int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		concurrency: DefaultRequestConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness reports an error until the first balance result has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no balance result published yet")
	}
	return nil
}

// Run consumes requests until ctx is cancelled. Extract and load failures
// are retried with a growing delay; Run itself only returns on shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"batch_size", p.batchSize,
		"request_concurrency", p.concurrency,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	delay := newRetryDelay(200*time.Millisecond, 5*time.Second)
	for ctx.Err() == nil {
		if !p.step(ctx, delay) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// outcome is the calculation result of one request in a batch.
type outcome struct {
	out domain.OutputEvent
	err error
}

// step handles one batch. It returns false when the pipeline should stop.
func (p *Pipeline) step(ctx context.Context, delay *retryDelay) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return delay.wait(ctx)
	}
	if len(batch) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	delay.reset()

	outcomes := p.calculate(ctx, batch)
	// Requests interrupted by shutdown stay uncommitted and are redelivered.
	if ctx.Err() != nil {
		return false
	}

	results := make([]domain.OutputEvent, 0, len(batch))
	for i, o := range outcomes {
		if o.err != nil {
			p.skip(batch[i], o.err)
			continue
		}
		results = append(results, o.out)
	}

	if len(results) > 0 {
		if !p.publish(ctx, results, delay) {
			return false
		}
		p.metrics.MessagesProduced.Add(float64(len(results)))
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}

	// Skipped requests are committed with the rest so a poison message is
	// not redelivered, but never ahead of results that are still unpublished.
	for _, raw := range batch {
		p.commit(ctx, raw)
	}
	return true
}

// publish retries LoadBatch on the same results until it succeeds. Nothing
// new is extracted meanwhile: the reader does not redeliver, and a later
// commit on the partition would pass over these results.
func (p *Pipeline) publish(ctx context.Context, results []domain.OutputEvent, delay *retryDelay) bool {
	for attempt := 1; ; attempt++ {
		err := p.loader.LoadBatch(ctx, results)
		if err == nil {
			delay.reset()
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("publish balance results failed",
			"error", err,
			"results", len(results),
			"attempt", attempt,
		)
		if !delay.wait(ctx) {
			return false
		}
	}
}

// calculate transforms every request of the batch, at most p.concurrency at
// a time. Outcomes keep the order of the batch.
func (p *Pipeline) calculate(ctx context.Context, batch []domain.RawEvent) []outcome {
	outcomes := make([]outcome, len(batch))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, raw := range batch {
		g.Go(func() error {
			out, err := p.transformer.Transform(ctx, raw)
			outcomes[i] = outcome{out: out, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (p *Pipeline) skip(raw domain.RawEvent, err error) {
	p.metrics.TransformErrors.Inc()
	p.logger.Warn("balance request rejected, skipping",
		"error", err,
		"request_key", string(raw.Key),
		"partition", raw.Partition,
		"offset", raw.Offset,
	)
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
	}
}

// retryDelay is an exponential delay between failed broker operations.
type retryDelay struct {
	initial time.Duration
	limit   time.Duration
	current time.Duration
}

func newRetryDelay(initial, limit time.Duration) *retryDelay {
	return &retryDelay{initial: initial, limit: limit, current: initial}
}

func (d *retryDelay) reset() {
	d.current = d.initial
}

// wait sleeps for the current delay and doubles it up to the limit.
// It returns false if ctx ends first.
func (d *retryDelay) wait(ctx context.Context) bool {
	timer := time.NewTimer(d.current)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	d.current = min(d.current*2, d.limit)
	return true
}
