package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Application methods for fertilizers. Broadcasting, spraying and pocket
// placement all leave the product on the surface and share their factors.
const (
	MethodBroadcasting         = "broadcasting"
	MethodSpraying             = "spraying"
	MethodPocketPlacement      = "pocket placement"
	MethodNarrowband           = "narrowband"
	MethodSlottedCoulter       = "slotted coulter"
	MethodIncorporation        = "incorporation"
	MethodIncorporation2Tracks = "incorporation 2 tracks"
	MethodInjection            = "injection"
	MethodShallowInjection     = "shallow injection"
	MethodSpokeWheel           = "spoke wheel"
)

type manureKey struct {
	method string
	cover  LandCover
}

// manureAmmoniaFactors holds the fraction of ammonium-N volatilized as
// ammonia per application method and land cover. Incorporation is not
// possible on grassland and therefore has no grassland entry.
var manureAmmoniaFactors = buildManureTable([]struct {
	methods                   []string
	grassland, cropland, bare string
}{
	{[]string{MethodBroadcasting, MethodSpraying, MethodPocketPlacement}, "0.68", "0.69", "0.69"},
	{[]string{MethodNarrowband}, "0.17", "0.36", "0.36"},
	{[]string{MethodSlottedCoulter}, "0.17", "0.24", "0.24"},
	{[]string{MethodShallowInjection}, "0.17", "0.24", "0.24"},
	{[]string{MethodInjection}, "0.02", "0.02", "0.02"},
	{[]string{MethodIncorporation}, "", "0.22", "0.22"},
	{[]string{MethodIncorporation2Tracks}, "", "0.46", "0.46"},
	{[]string{MethodSpokeWheel}, "0.17", "0.24", "0.24"},
})

func buildManureTable(rows []struct {
	methods                   []string
	grassland, cropland, bare string
}) map[manureKey]decimal.Decimal {
	table := make(map[manureKey]decimal.Decimal)
	for _, r := range rows {
		for _, m := range r.methods {
			for cover, v := range map[LandCover]string{Grassland: r.grassland, Cropland: r.cropland, BareSoil: r.bare} {
				if v == "" {
					continue
				}
				table[manureKey{m, cover}] = Dec(v)
			}
		}
	}
	return table
}

// ManureAmmoniaFactor returns the ammonia emission factor for an organic
// fertilizer application on the given land cover. An unknown method is an
// error, not a default.
func ManureAmmoniaFactor(app FertilizerApplication, cover LandCover) (decimal.Decimal, error) {
	f, ok := manureAmmoniaFactors[manureKey{app.Method, cover}]
	if !ok {
		return decimal.Zero, NewError(CodeUnknownValue,
			fmt.Sprintf("fertilizer application %s (%s): unsupported application method %q on %s", app.ID, app.Name, app.Method, cover),
			"application_id", app.ID, "fertilizer", app.Name, "method", app.Method, "land_cover", string(cover))
	}
	return f, nil
}

// Soil type groups used by the leaching table.
const (
	SoilPeat  = "peat"
	SoilClay  = "clay"
	SoilLoess = "loess"
	SoilSand  = "sand"
)

// soilTypeGroups maps agricultural soil types to leaching groups.
var soilTypeGroups = map[string]string{
	"veen":         SoilPeat,
	"moerige_klei": SoilClay,
	"rivierklei":   SoilClay,
	"zeeklei":      SoilClay,
	"maasklei":     SoilClay,
	"loess":        SoilLoess,
	"dekzand":      SoilSand,
	"dalgrond":     SoilSand,
	"duinzand":     SoilSand,
}

type leachingKey struct {
	cover LandCover
	group string
}

var fixedLeachingFactors = map[leachingKey]decimal.Decimal{
	{Grassland, SoilPeat}:  Dec("0.04"),
	{Grassland, SoilClay}:  Dec("0.11"),
	{Grassland, SoilLoess}: Dec("0.14"),
	{Cropland, SoilPeat}:   Dec("0.07"),
	{Cropland, SoilClay}:   Dec("0.12"),
	{Cropland, SoilLoess}:  Dec("0.44"),
}

// sandLeachingFactors is keyed by groundwater class. Sub-classes share the
// fraction of their main class.
var sandLeachingFactors = buildSandTable([]struct {
	classes             []string
	grassland, cropland string
}{
	{[]string{"I", "Ia", "Ic"}, "0.02", "0.03"},
	{[]string{"II", "IIa", "IIb", "IIc"}, "0.04", "0.07"},
	{[]string{"III", "IIIa", "IIIb"}, "0.10", "0.17"},
	{[]string{"IV", "IVu", "IVc"}, "0.18", "0.34"},
	{[]string{"V", "Va", "Vb", "Vao", "Vad", "Vbo", "Vbd", "sV", "sVb"}, "0.27", "0.47"},
	{[]string{"VI", "VIo", "VId"}, "0.40", "0.63"},
	{[]string{"VII", "VIIo", "VIId", "bVII"}, "0.55", "0.81"},
	{[]string{"VIII", "VIIIo", "VIIId"}, "0.63", "0.89"},
})

func buildSandTable(rows []struct {
	classes             []string
	grassland, cropland string
}) map[string]map[LandCover]decimal.Decimal {
	table := make(map[string]map[LandCover]decimal.Decimal)
	for _, r := range rows {
		for _, c := range r.classes {
			table[c] = map[LandCover]decimal.Decimal{
				Grassland: Dec(r.grassland),
				Cropland:  Dec(r.cropland),
			}
		}
	}
	return table
}

// NitrateLeachingFactor returns the fraction of the nitrogen surplus that
// leaches as nitrate for the land cover, soil type and groundwater class.
func NitrateLeachingFactor(cover LandCover, soilType, groundwaterClass string) (decimal.Decimal, error) {
	if cover != Grassland && cover != Cropland {
		return decimal.Zero, NewError(CodeUnknownValue,
			fmt.Sprintf("no nitrate leaching factor for land cover %q", cover),
			"land_cover", string(cover))
	}

	group, ok := soilTypeGroups[soilType]
	if !ok {
		return decimal.Zero, NewError(CodeUnknownValue,
			fmt.Sprintf("unknown soil type %q", soilType),
			"soil_type", soilType)
	}

	if group != SoilSand {
		return fixedLeachingFactors[leachingKey{cover, group}], nil
	}

	byCover, ok := sandLeachingFactors[groundwaterClass]
	if !ok {
		return decimal.Zero, NewError(CodeUnknownValue,
			fmt.Sprintf("unknown groundwater class %q on sandy soil %q", groundwaterClass, soilType),
			"soil_type", soilType, "groundwater_class", groundwaterClass)
	}
	return byCover[cover], nil
}
