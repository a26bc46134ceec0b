// Package analysis turns a durable sample log back into series and charts.
//
// Reading is line oriented and forgiving by default:
//
//   - [ParseLog]: splits every line into the four record fields, keeps a
//     timing point for each valid record and fans positions out into
//     per-body trajectories
//   - [Analyze]: parses a log file, renders the timing chart and one
//     trajectory chart per body, and returns a [Report]
//   - [SafeRange]: axis bounds that never collapse on empty or constant data
//
// # Malformed lines
//
// A line without exactly four tab-separated fields, or with any field that
// does not parse, is skipped and counted under its reason. With
// [Options.Strict] the first such line aborts parsing with a [*LineError].
//
// # Fan-out
//
// With the default body count of two, four reals are two planar bodies and
// six reals are two spatial bodies. The first record that fans out fixes
// the dimensionality for the whole log; records of any other length still
// contribute to timing.
//
//	ds, err := analysis.ParseLog(f, analysis.Options{})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(len(ds.Timing), ds.Skipped())
package analysis
