// Package repositories implements SQLite persistence for the profile cache.
//
// Four record kinds are stored, each keyed by user id: raw listening data
// ([Store.SaveUserData]), derived analysis artifacts ([Store.SaveAnalysis]),
// auxiliary track-list snapshots ([Store.SaveTrackSnapshot]), and OAuth2
// credentials ([Store.SaveCredential]). Documents are JSON payloads with a
// last-updated timestamp; saves are full-record replaces, never partial
// merges, so a sync that omits a previously-present field leaves nothing
// stale behind.
//
// [Store.Summarize] answers the UI-facing summary view from cached records
// only, [Store.IsFresh] owns the staleness policy, and [Store.Clear]
// removes a user's data records atomically with respect to readers.
package repositories
