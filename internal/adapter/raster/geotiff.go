package raster

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/google/tiff"
	"golang.org/x/sync/singleflight"
)

// Baseline and GeoTIFF tags the raster needs.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGDALNoData      = 42113
)

// Field type IDs of the tags above.
const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

const (
	compressionNone       = 1
	compressionDeflate    = 8
	compressionDeflateOld = 32946
)

const (
	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3
)

// decodedBlocks is the number of strips or tiles kept per raster.
const decodedBlocks = 64

var errUnsupported = errors.New("unsupported tiff")

// GeoTIFF is an opened single-band GeoTIFF with a north-up affine
// georeference in WGS-84 degrees.
type GeoTIFF struct {
	src    *httpSource
	order  binary.ByteOrder
	blocks *blockCache

	width, height           int
	blockWidth, blockHeight int
	blocksAcross            int
	offsets, byteCounts     []uint64
	bytesPerSample          int
	sampleFormat            int
	compression             int
	originX, originY        float64
	scaleX, scaleY          float64
	noData                  float64
	hasNoData               bool
	bounds                  *geom.Bounds
}

// Bounds returns the extent covered by the raster.
func (g *GeoTIFF) Bounds() *geom.Bounds { return g.bounds }

// Sample returns the value of the pixel containing p.
func (g *GeoTIFF) Sample(ctx context.Context, p geom.Point) (float64, bool, error) {
	col := int(math.Floor((p.X - g.originX) / g.scaleX))
	row := int(math.Floor((g.originY - p.Y) / g.scaleY))
	if col < 0 || col >= g.width || row < 0 || row >= g.height {
		return 0, false, nil
	}

	block := (row/g.blockHeight)*g.blocksAcross + col/g.blockWidth
	if block >= len(g.offsets) || block >= len(g.byteCounts) {
		return 0, false, fmt.Errorf("block %d: %w", block, errUnsupported)
	}
	data, err := g.blocks.get(block, func() ([]byte, error) {
		return g.loadBlock(ctx, block)
	})
	if err != nil {
		return 0, false, fmt.Errorf("read pixel (%d, %d): %w", col, row, err)
	}

	off := ((row%g.blockHeight)*g.blockWidth + col%g.blockWidth) * g.bytesPerSample
	if off+g.bytesPerSample > len(data) {
		return 0, false, fmt.Errorf("read pixel (%d, %d): block %d: %w", col, row, block, io.ErrUnexpectedEOF)
	}

	v := g.decodeSample(data[off : off+g.bytesPerSample])
	if math.IsNaN(v) {
		return 0, false, nil
	}
	if g.hasNoData && v == g.noData {
		return 0, false, nil
	}
	return v, true, nil
}

// loadBlock fetches one strip or tile and returns its pixel bytes.
func (g *GeoTIFF) loadBlock(ctx context.Context, block int) ([]byte, error) {
	raw, err := g.src.readAt(ctx, int64(g.offsets[block]), int64(g.byteCounts[block]))
	if err != nil {
		return nil, err
	}
	if g.compression == compressionNone {
		return raw, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("inflate block %d: %w", block, err)
	}
	defer zr.Close()

	size := int64(g.blockWidth * g.blockHeight * g.bytesPerSample)
	data, err := io.ReadAll(io.LimitReader(zr, size))
	if err != nil {
		return nil, fmt.Errorf("inflate block %d: %w", block, err)
	}
	return data, nil
}

func (g *GeoTIFF) decodeSample(b []byte) float64 {
	switch g.sampleFormat {
	case sampleFloat:
		if g.bytesPerSample == 4 {
			return float64(math.Float32frombits(g.order.Uint32(b)))
		}
		return math.Float64frombits(g.order.Uint64(b))
	case sampleInt:
		switch g.bytesPerSample {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(g.order.Uint16(b)))
		default:
			return float64(int32(g.order.Uint32(b)))
		}
	default:
		switch g.bytesPerSample {
		case 1:
			return float64(b[0])
		case 2:
			return float64(g.order.Uint16(b))
		default:
			return float64(g.order.Uint32(b))
		}
	}
}

// decodeGeoTIFF parses the image directories of src and configures the
// raster from the first one. Directory reads beyond the prefetched header
// become range requests.
func decodeGeoTIFF(ctx context.Context, src *httpSource) (*GeoTIFF, error) {
	magic, err := src.readAt(ctx, 0, 2)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	g := &GeoTIFF{src: src, blocks: newBlockCache(decodedBlocks)}
	switch string(magic) {
	case "II":
		g.order = binary.LittleEndian
	case "MM":
		g.order = binary.BigEndian
	default:
		return nil, errors.New("not a tiff file")
	}

	r := io.NewSectionReader(src.readerAt(ctx), 0, math.MaxInt64)
	t, err := tiff.Parse(r, tiff.DefaultTagSpace, tiff.DefaultFieldTypeSpace)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("parse tiff: %w", err)
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, errors.New("tiff has no image directory")
	}
	if err := g.configure(ifds[0]); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GeoTIFF) configure(ifd tiff.IFD) error {
	g.width = int(fieldUint(ifd, tagImageWidth, 0))
	g.height = int(fieldUint(ifd, tagImageLength, 0))
	if g.width <= 0 || g.height <= 0 {
		return errors.New("missing image dimensions")
	}
	if spp := fieldUint(ifd, tagSamplesPerPixel, 1); spp != 1 {
		return fmt.Errorf("%d samples per pixel: %w", spp, errUnsupported)
	}
	if p := fieldUint(ifd, tagPredictor, 1); p != 1 {
		return fmt.Errorf("predictor %d: %w", p, errUnsupported)
	}

	bits := fieldUint(ifd, tagBitsPerSample, 1)
	g.sampleFormat = int(fieldUint(ifd, tagSampleFormat, sampleUint))
	switch {
	case g.sampleFormat == sampleFloat && (bits == 32 || bits == 64):
	case (g.sampleFormat == sampleUint || g.sampleFormat == sampleInt) && (bits == 8 || bits == 16 || bits == 32):
	default:
		return fmt.Errorf("sample format %d with %d bits: %w", g.sampleFormat, bits, errUnsupported)
	}
	g.bytesPerSample = int(bits / 8)

	g.compression = int(fieldUint(ifd, tagCompression, compressionNone))
	switch g.compression {
	case compressionNone, compressionDeflate, compressionDeflateOld:
	default:
		return fmt.Errorf("compression %d: %w", g.compression, errUnsupported)
	}

	if ifd.HasField(tagTileWidth) {
		g.blockWidth = int(fieldUint(ifd, tagTileWidth, 0))
		g.blockHeight = int(fieldUint(ifd, tagTileLength, 0))
		g.offsets = fieldUints(ifd, tagTileOffsets)
		g.byteCounts = fieldUints(ifd, tagTileByteCounts)
	} else {
		g.blockWidth = g.width
		g.blockHeight = int(fieldUint(ifd, tagRowsPerStrip, uint64(g.height)))
		g.offsets = fieldUints(ifd, tagStripOffsets)
		g.byteCounts = fieldUints(ifd, tagStripByteCounts)
	}
	if g.blockWidth <= 0 || g.blockHeight <= 0 || len(g.offsets) == 0 {
		return errors.New("missing pixel data layout")
	}
	if g.blockHeight > g.height {
		g.blockHeight = g.height
	}
	g.blocksAcross = (g.width + g.blockWidth - 1) / g.blockWidth

	return g.configureGeoreference(ifd)
}

func (g *GeoTIFF) configureGeoreference(ifd tiff.IFD) error {
	scale := fieldFloats(ifd, tagModelPixelScale)
	tie := fieldFloats(ifd, tagModelTiepoint)
	if len(scale) < 2 || len(tie) < 6 {
		return errors.New("missing georeference")
	}
	if scale[0] <= 0 || scale[1] <= 0 {
		return fmt.Errorf("pixel scale %v: %w", scale[:2], errUnsupported)
	}
	g.scaleX, g.scaleY = scale[0], scale[1]
	// Tiepoint maps raster (I, J) to model (X, Y).
	g.originX = tie[3] - tie[0]*g.scaleX
	g.originY = tie[4] + tie[1]*g.scaleY
	g.bounds = &geom.Bounds{
		Min: geom.Point{X: g.originX, Y: g.originY - float64(g.height)*g.scaleY},
		Max: geom.Point{X: g.originX + float64(g.width)*g.scaleX, Y: g.originY},
	}

	if s, ok := fieldString(ifd, tagGDALNoData); ok {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			if g.sampleFormat == sampleFloat && g.bytesPerSample == 4 {
				v = float64(float32(v))
			}
			g.noData, g.hasNoData = v, true
		}
	}
	return nil
}

func fieldUint(ifd tiff.IFD, tag uint16, def uint64) uint64 {
	if vs := fieldUints(ifd, tag); len(vs) > 0 {
		return vs[0]
	}
	return def
}

// fieldUints decodes an unsigned BYTE, SHORT or LONG field. Other types and
// truncated values yield nil.
func fieldUints(ifd tiff.IFD, tag uint16) []uint64 {
	if !ifd.HasField(tag) {
		return nil
	}
	f := ifd.GetField(tag)
	b, order := f.Value().Bytes(), f.Value().Order()
	n := int(f.Count())

	var size int
	switch f.Type().ID() {
	case typeByte:
		size = 1
	case typeShort:
		size = 2
	case typeLong:
		size = 4
	default:
		return nil
	}
	if len(b) < n*size {
		return nil
	}

	out := make([]uint64, n)
	for i := range out {
		switch size {
		case 1:
			out[i] = uint64(b[i])
		case 2:
			out[i] = uint64(order.Uint16(b[i*2:]))
		default:
			out[i] = uint64(order.Uint32(b[i*4:]))
		}
	}
	return out
}

func fieldFloats(ifd tiff.IFD, tag uint16) []float64 {
	if !ifd.HasField(tag) {
		return nil
	}
	f := ifd.GetField(tag)
	if f.Type().ID() != typeDouble {
		return nil
	}
	b, order := f.Value().Bytes(), f.Value().Order()
	n := int(f.Count())
	if len(b) < n*8 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(b[i*8:]))
	}
	return out
}

func fieldString(ifd tiff.IFD, tag uint16) (string, bool) {
	if !ifd.HasField(tag) {
		return "", false
	}
	f := ifd.GetField(tag)
	if f.Type().ID() != typeASCII {
		return "", false
	}
	return strings.TrimSpace(strings.TrimRight(string(f.Value().Bytes()), "\x00")), true
}

// blockCache keeps the most recently decoded blocks of one raster.
// Concurrent misses on the same block share one load; failed loads are not
// kept.
type blockCache struct {
	group singleflight.Group
	limit int

	mu    sync.Mutex
	data  map[int][]byte
	order []int
}

func newBlockCache(limit int) *blockCache {
	return &blockCache{limit: limit, data: make(map[int][]byte, limit)}
}

func (c *blockCache) lookup(block int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[block]
	return b, ok
}

func (c *blockCache) get(block int, load func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.lookup(block); ok {
		return b, nil
	}
	v, err, _ := c.group.Do(strconv.Itoa(block), func() (any, error) {
		// A load that finished just before this call is already stored.
		if b, ok := c.lookup(block); ok {
			return b, nil
		}
		b, err := load()
		if err != nil {
			return nil, err
		}
		c.store(block, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *blockCache) store(block int, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[block]; ok {
		return
	}
	if len(c.order) >= c.limit {
		delete(c.data, c.order[0])
		c.order = c.order[1:]
	}
	c.data[block] = b
	c.order = append(c.order, block)
}
