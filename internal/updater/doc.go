// Package updater runs the sequential fetch, extract, and upsert pipeline over
// a batch of film URLs.
//
// Each URL is processed to completion before the next one starts. URLs whose
// stored update_date falls inside the freshness window are skipped without a
// fetch. Pages that cannot be fetched, or whose URL carries no product code,
// are removed from the store so stale entries do not linger. Pages that fail
// the template are handled according to MalformedPolicy.
package updater
