// Package core defines the domain contracts of supportmesh: sessions,
// human agents, transcript messages, wire frames, and the collaborator
// interfaces (responder, intent recorder, summary store, registries) the
// routing engine is built against.
//
// Core deliberately contains no orchestration logic. The routing package
// owns the state machine; sibling packages (session, agent, queue, timeout,
// responder, intent, summary, transport) provide concrete implementations
// of the interfaces declared here. Keeping the contracts in one place lets
// higher layers depend on behavior rather than on storage or transport
// details.
package core
