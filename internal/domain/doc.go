// Package domain holds the pure normalization and merge logic behind the
// substation capacity update.
//
// # Data Sources
//
// Capacity figures come from the E-REDES OpenDataSoft dataset
// "capacidade-rececao-rnd" (one record per installation). The maintained
// substation list is a spreadsheet kept by hand: names, municipality, district,
// capacity, available capacity and coordinates typed by people, in whatever
// notation they had at hand.
//
// # Name Conventions
//
// Names are matched through a canonical key built by [NormalizeName]:
//
//	"Zamora (ES)"      →  "ZAMORA"
//	"São João da Madeira" → "SAO JOAO DA MADEIRA"
//	"V.N. Gaia"        →  "V N GAIA"
//
// Parenthesized notes are dropped, diacritics removed, punctuation collapsed.
// An empty key never matches, not even another empty key.
//
// # Numeric Conventions
//
// Spreadsheet cells mix decimal separators ("12,5", "12.5"), thousands
// separators ("1.234,56") and units ("40 MVA"). [ParseNumeric] accepts all of
// them and returns ok=false rather than failing.
//
// # Coordinate Conventions
//
// Coordinates are either decimal degrees or degrees/minutes/seconds with any of
// the common glyph variants:
//
//	41°23'45"N   41º23’45”N   41 23 45 N   -8.6109   8°36'39"W
//
// The source data lies west of Greenwich and most longitudes were typed
// without a sign. Under [WestDefault] a longitude with no hemisphere letter and
// no minus sign is taken as west. [AsWritten] disables that for data sets that
// carry explicit signs.
//
// Grid operator PDFs sometimes publish ETRS89 UTM (zone 30N) easting/northing
// pairs instead of degrees; see [DetectCoordinateKind] and [UTMToLatLon].
//
// # Merge
//
// [MergeByKey] left-joins the workbook against the API records on the
// canonical (substation, municipality, district) tuple and falls back to the
// substation name alone. [ChangeMask] then flags the rows whose capacity
// values actually moved.
package domain
