// Package source fetches the documents the pipeline extracts records from.
//
// A Source hands back raw markup for an identifier (a URL for the HTTP
// source, a cache key on disk, or a map key in tests). Failures are reported
// as *UnavailableError so callers can tell a missing document apart from one
// that was fetched but held no data. Retries belong to the HTTP source; the
// rest of the pipeline never retries.
package source
