// Package preflight checks that corpusctl can reach everything a command
// needs before running it.
//
// The checks cover:
//   - the search engine (Elasticsearch reachable, or bleve directory writable)
//   - the metadata file (reachable, header has an id column)
//   - the DTS text service
//   - the index settings files
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
