// Package routing implements the conversation routing engine: the state
// machine that moves customer sessions between AI handling, the wait queue
// and human handling, and that fans out notifications to the affected
// connections.
//
// Every inbound event (customer frame, agent frame, socket lifecycle, timer
// fire) enters through one of the Engine's methods. Transitions are
// serialized by a single mutex, actor-style, so check-then-act sequences
// such as claiming a queued session are race-free. The only suspension point
// is the AI responder call, which runs on its own goroutine outside the lock
// and re-validates session state before delivering its verdict.
package routing
