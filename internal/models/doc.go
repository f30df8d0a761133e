// Package models defines domain entities for the aura listening-profile service.
//
// The package contains two categories of types:
//
// 1. Listening-history snapshots pulled from the upstream service:
//   - [UserProfile] : Service-reported identity for the authenticated user
//   - [Track], [Artist], [Playlist] : Library and history items
//   - [AudioFeatures] : Provider-computed acoustic descriptors keyed by track ID
//   - [Bundle] : Best-effort result of one batch fetch across all resources
//
// 2. Derived analysis artifacts:
//   - [Analysis] : Genre frequency table, averaged audio profile, artist diversity
//   - [TrackSnapshot] : Track-id order and feature map an analysis was derived from
//   - [DataSummary] : Cache-only read view served to the CLI without refetching
//
// All types round-trip through JSON; the repositories layer persists them
// as whole documents replaced on each sync.
package models
