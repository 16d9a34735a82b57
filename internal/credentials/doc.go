// Package credentials implements the multi-tier OAuth credential store
// backing calendar access.
//
// The Vault reads through an ordered list of named tiers: the process-local
// in-memory cache, the durable Secret Manager store, a local cache store and
// a non-production fallback file. Exactly one authoritative refresh token
// lives in the durable tier at any time; every successful refresh writes it
// back synchronously before the new access token is returned.
//
// Refreshes are serialized per process. Concurrent callers that observe an
// expired token block on the single in-flight refresh rather than issuing
// duplicate refresh calls against the OAuth endpoint.
package credentials
