// Package orchestrator drives one conversational turn end to end: load the
// session, resolve intent, build a dependency-ordered plan, execute each
// capability with a scoped state view, merge the resulting deltas, and
// synthesize a single reply.
//
// State merging is serialized per turn through session.Store.Apply. Two
// concurrent turns against the same session id are not coordinated beyond
// the store's copy-in/copy-out discipline: the later Apply wins field by
// field. Callers that need strict ordering must serialize turns per session.
package orchestrator
