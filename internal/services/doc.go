// Package services implements the upstream Spotify Web API client and
// the credential plumbing it depends on.
//
// [SpotifyClient] is the rate-respecting API client: every call re-reads
// the current credential from a [TokenProvider], and an unauthorized
// response triggers exactly one refresh-and-retry cycle before escalating
// as an authentication failure. Other upstream rejections surface as
// typed API errors carrying status and body; transport failures surface
// as network errors. No untyped JSON leaves this package; raw payloads
// are decoded into wire structs and mapped to the domain types in
// internal/models at the boundary.
//
// [StoreTokenProvider] owns the credential lifecycle: it loads tokens
// from the persistence layer, refreshes them through the OAuth2 config
// with single-flight discipline, and writes renewals back to the store.
package services
