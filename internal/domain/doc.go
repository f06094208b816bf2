// Package domain models per-location COVID-19 projection scenarios.
//
// # Data Source
//
// Each projection is a batch of positional rows produced by the upstream model run, one
// row per observation. Observations are spaced four days apart. The collector publishes
// one batch per (location, intervention) pair as a [ProjectionRequest] JSON message.
//
// # Row Conventions
//
// Rows are addressed by fixed offsets, see [Schema]:
//
//	col  1  date               "2020-03-05" (also RFC3339, "3/5/2020")
//	col  9  hospitalizations   "1,234" -> 1234
//	col 10  infected
//	col 11  deaths             already cumulative upstream
//	col 12  beds               hospital bed capacity
//	col 14  rt                 inferred projections only
//	col 15  rt stdev           inferred projections only
//	col 17  total population   read from row 0 only
//
// Numeric cells are parsed leniently: thousands separators are stripped, empty or
// missing cells count as zero, and non-numeric garbage degrades to zero. Only the
// leading integer is kept, so "12.7" reads as 12.
//
// # Derived Series
//
// Cumulative infections are the running sum of infections scaled by 2/3 at every step,
// an under-reporting correction. Deaths are taken as-is because the upstream series is
// already cumulative.
//
// The overwhelm date is the first point where hospitalizations exceed beds. The crossing
// is interpolated between the two surrounding observations by intersecting the two line
// segments in a normalized x range of [0, 1], then scaling back to the four-day interval.
//
// # Alarm Levels
//
// Inferred projections are classified by their latest Rt using the growth-rate chart
// zones:
//
//	Rt < 1.2 low | Rt < 1.4 medium | otherwise high | no Rt unknown
package domain
