// Package hazard models natural-hazard event features and their ingestion
// from upstream catalog property bags.
//
// # Data Sources
//
// Feature collections arrive from per-hazard catalog services (earthquake,
// volcano, tsunami, tornado, wildfire, flood, storm-track) as flat JSON
// property bags over Kafka or HTTP. Property names are fixed by the upstream
// producers; this package reads them defensively: a missing or malformed
// optional field degrades to "that visual is not drawn" rather than an
// ingestion error.
//
// # Conventions
//
// Timestamps:
//
//	RFC 3339 instants under "timestamp". Historical point-only estimates may
//	carry only a "year"; consumers substitute Jan 1 of that year in UTC.
//
// Magnitude encoding (varies by hazard type):
//
//	Earthquake: moment magnitude as a decimal, e.g. 6.5.
//	Volcano:    Volcanic Explosivity Index integer 0-8.
//	Tornado:    Enhanced Fujita ordinal 0-5; "EF" or "F" prefixes are
//	            stripped during parsing.
//	Storm:      sustained wind speed; a separate "category" ordinal runs
//	            -1 (tropical depression) through 5.
//	Wildfire/flood: affected area.
//
// Radii:
//
//	"felt_radius_km" and "damage_radius_km" are precomputed upstream and
//	optional. Zero or absent means the corresponding ring is not drawn.
//
// Tsunami subtypes:
//
//	A tsunami collection mixes "source" and "runup" records in one bag,
//	distinguished by an "is_source" boolean. Parsing resolves the flag into
//	a tagged TsunamiInfo variant once, so paint logic never re-checks it.
//
// Grouping:
//
//	"sequence_id" ties related events together (aftershock families, one
//	storm system's tornadoes); "parent_id" points at the triggering event.
//	Both are optional.
package hazard
