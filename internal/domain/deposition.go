package domain

import (
	"context"

	"github.com/ctessum/geom"
)

// DepositionRaster is an opened annual nitrogen deposition raster
// (kg N / ha / year) in WGS-84 coordinates.
type DepositionRaster interface {
	// Sample returns the value of the pixel containing p. ok is false when
	// the pixel holds no data or p lies outside the raster.
	Sample(ctx context.Context, p geom.Point) (value float64, ok bool, err error)
}

// RasterSource opens deposition rasters by URL.
type RasterSource interface {
	Open(ctx context.Context, url string) (DepositionRaster, error)
}

// RasterInvalidator is implemented by sources that keep opened rasters. The
// next Open of an invalidated url reads the raster again.
type RasterInvalidator interface {
	Invalidate(url string)
}
