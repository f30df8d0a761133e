// Package tasks implements the profile synchronization engine.
//
// A sync run moves through checking → fetching → aggregating → persisted,
// failing outright only when the profile fetch or the store fails. The
// batch fetcher ([FetchBundle]) fans out across independent listening
// resources and joins them with partial-failure tolerance, then stages
// audio-feature batches under a bounded worker pool and rate limiter.
// [AggregateBundle] is the pure reduction from raw bundle to analysis
// artifact. [ProfileEngine] ties the pipeline to a cache store with
// freshness short-circuiting and per-user single-flight locking, and
// exposes the three-operation public surface: Sync, Summary, Clear.
package tasks
