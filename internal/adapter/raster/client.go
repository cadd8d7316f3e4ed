// Package raster reads single-band GeoTIFF deposition rasters over HTTP
// without downloading them whole.
package raster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/nutrient-balance/nbalance/internal/observability"
)

// headerPrefetch is the number of leading bytes fetched when a raster is
// opened. Image directories of the published rasters fit well within it.
const headerPrefetch = 64 << 10

// Client implements domain.RasterSource with HTTP range requests.
type Client struct {
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a raster client whose requests time out after timeout.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Open fetches the image header of the GeoTIFF at url. Pixel data is fetched
// block by block when the returned raster is sampled, and decoded blocks are
// kept on the raster.
func (c *Client) Open(ctx context.Context, url string) (domain.DepositionRaster, error) {
	head, err := c.fetch(ctx, url, 0, headerPrefetch, "header")
	if err != nil {
		return nil, err
	}
	src := &httpSource{client: c, url: url, head: head}
	g, err := decodeGeoTIFF(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	c.logger.Debug("deposition raster opened",
		"url", url,
		"width", g.width,
		"height", g.height,
	)
	return g, nil
}

// fetch reads up to n bytes at off. Fewer bytes are returned only when the
// resource ends before off+n.
func (c *Client) fetch(ctx context.Context, url string, off, n int64, kind string) (data []byte, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.metrics.RasterRequests.WithLabelValues(kind, outcome).Inc()
		c.metrics.RasterRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Range", "bytes="+strconv.FormatInt(off, 10)+"-"+strconv.FormatInt(off+n-1, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("raster %s request: %w", kind, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return io.ReadAll(io.LimitReader(resp.Body, n))
	case http.StatusOK:
		// Range ignored: skip to off in the full body.
		if _, err := io.CopyN(io.Discard, resp.Body, off); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("skip to offset %d: %w", off, err)
		}
		return io.ReadAll(io.LimitReader(resp.Body, n))
	case http.StatusRequestedRangeNotSatisfiable:
		return nil, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("raster server error: status %d: %s", resp.StatusCode, body)
	}
}

// httpSource is random access to a remote file. Reads inside the prefetched
// header are served from memory.
type httpSource struct {
	client *Client
	url    string
	head   []byte
}

// read returns up to n bytes at off; fewer only at the end of the file.
func (s *httpSource) read(ctx context.Context, off, n int64) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, fmt.Errorf("invalid read of %d bytes at %d", n, off)
	}
	if off+n <= int64(len(s.head)) {
		return s.head[off : off+n], nil
	}
	return s.client.fetch(ctx, s.url, off, n, "block")
}

// readAt returns exactly n bytes at off.
func (s *httpSource) readAt(ctx context.Context, off, n int64) ([]byte, error) {
	data, err := s.read(ctx, off, n)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < n {
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, off, io.ErrUnexpectedEOF)
	}
	return data, nil
}

// readerAt exposes the source as an io.ReaderAt bound to ctx.
func (s *httpSource) readerAt(ctx context.Context) io.ReaderAt {
	return sourceReaderAt{ctx: ctx, src: s}
}

type sourceReaderAt struct {
	ctx context.Context
	src *httpSource
}

func (r sourceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	data, err := r.src.read(r.ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
