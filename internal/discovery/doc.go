// package discovery turns a seed into an ordered candidate list.
//
// One strategy exists per seed mode. Strategies call the remote clients (or a
// static profile table for mood/activity seeds), then deduplicate, sort by
// descending relevance, and truncate to the configured limit. A strategy that
// finds nothing returns an empty list; falling back to another mode is the
// orchestrator's decision.
package discovery
