// Package domain models the agronomic records and lookup tables behind a
// farm nitrogen balance.
//
// # Units
//
// Every quantity is a decimal.Decimal; nothing is converted to float64
// between input and presentation. Unless noted otherwise:
//
//	Fertilizer amount           kg product / ha
//	Fertilizer N, NO3, NH4, S   g / kg product
//	Yield                       kg dry matter / ha
//	Harvestable / residue N     g N / kg dry matter
//	Organic carbon              g C / kg soil
//	Total soil nitrogen         mg N / kg soil
//	Bulk density                g / cm3
//	Balance components          kg N / ha
//
// Converting "amount × content" to kg N / ha therefore always divides by
// 1000 (see PerThousand).
//
// # Sign convention
//
// Supply is positive. Removal and emission are losses and are reported as
// negative values, so a field balance is the plain sum of the three
// components.
//
// # Dates
//
// Records carry time.Time values but the model works in calendar days:
// CivilDay drops the clock part and interval checks are inclusive on both
// ends. A cultivation without an end date is still active.
//
// # Catalogues
//
// Fertilizer applications and cultivations refer to catalogue entries by
// ID. FertilizerCatalogue and CultivationCatalogue are read-only maps;
// a failed lookup is an ErrMissingReference error, never a zero value.
package domain
