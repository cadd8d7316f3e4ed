package raster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constantRaster float64

func (r constantRaster) Sample(context.Context, geom.Point) (float64, bool, error) {
	return float64(r), true, nil
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
	gate  chan struct{}
}

func (s *countingSource) Open(context.Context, string) (domain.DepositionRaster, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()

	if s.gate != nil {
		<-s.gate
	}
	if err != nil {
		return nil, err
	}
	return constantRaster(21.5), nil
}

func (s *countingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *countingSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

const testURL = "https://data.example.org/deposition/nl/ntot_2022.tiff"

func TestCache_HitAfterFirstOpen(t *testing.T) {
	src := &countingSource{}
	m := testMetrics()
	c := NewCache(src, m)

	r1, err := c.Open(context.Background(), testURL)
	require.NoError(t, err)
	r2, err := c.Open(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, src.callCount())
	assert.InDelta(t, 1, testutil.ToFloat64(m.RasterCache.WithLabelValues("miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RasterCache.WithLabelValues("hit")), 0)
}

func TestCache_FailureNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("connection refused")}
	c := NewCache(src, testMetrics())

	_, err := c.Open(context.Background(), testURL)
	require.Error(t, err)

	src.setErr(nil)
	r, err := c.Open(context.Background(), testURL)
	require.NoError(t, err)
	v, ok, err := r.Sample(context.Background(), geom.Point{X: 5, Y: 52})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 21.5, v, 0)

	_, err = c.Open(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, 2, src.callCount())
}

func TestCache_ConcurrentFirstOpensShareOneCall(t *testing.T) {
	src := &countingSource{gate: make(chan struct{})}
	c := NewCache(src, testMetrics())

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Open(context.Background(), testURL)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.callCount())
}

func TestCache_KeyedByURL(t *testing.T) {
	src := &countingSource{}
	c := NewCache(src, testMetrics())

	_, err := c.Open(context.Background(), testURL)
	require.NoError(t, err)
	_, err = c.Open(context.Background(), "https://mirror.example.org/deposition/nl/ntot_2022.tiff")
	require.NoError(t, err)

	assert.Equal(t, 2, src.callCount())
}

func TestCache_Invalidate(t *testing.T) {
	src := &countingSource{}
	c := NewCache(src, testMetrics())

	_, err := c.Open(context.Background(), testURL)
	require.NoError(t, err)
	c.Invalidate(testURL)
	_, err = c.Open(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, 2, src.callCount())
}
