// Package caltime converts between a broken-down calendar record and a
// linear seconds count relative to 1970-01-01 00:00:00.
//
// The conversion is pure and stateless. No time zone is applied in either
// direction: a local calendar record produces a local timestamp and a UTC
// record produces a UTC timestamp. The daylight saving flag is carried
// through unchanged.
//
// # Usage
//
//	tm := caltime.FromTimestamp(1740324600, false)
//	fmt.Println(tm) // Sun Feb 23 15:30:00 2025
//
//	ts := tm.Timestamp() // 1740324600
//
// Dates before the epoch produce negative timestamps and convert back
// exactly, weekday included.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package caltime
