// Package primitive provides the calendar and naming values stored in
// simulation object leaves.
//
// Durations and timestamps are millisecond counts. Their canonical string
// forms (integer milliseconds and a UTC xsd:dateTime respectively) round trip
// through the parsers, which also accept the looser forms people type:
//
//	d, _ := primitive.ParseDuration("1h 30m")   // 5400000
//	d, _ = primitive.ParseDuration("PT5M")      // 300000
//	t, _ := primitive.ParseTimestamp("2024-03-01")
//
// A [Reference] names a node by its identifier and the identifiers of the
// scopes enclosing it, written outermost first and separated by ':'.
package primitive
