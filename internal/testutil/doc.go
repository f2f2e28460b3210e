// Package testutil provides shared test doubles: an in-memory fake
// connection that records outbound frames, plus scripted and gated
// responders. Kept internal so it never leaks into the public API surface.
package testutil
