// Package dispatch runs submitted job bodies asynchronously and drives the
// execution store's state machine on their behalf. Submission never blocks on
// execution; each job runs in its own goroutine under a finisher handle that
// guarantees exactly one terminal transition, including on panic. Status
// changes fan out to subscribers through the package's broker.
package dispatch
