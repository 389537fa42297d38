// Package cli is the interactive field client. It wires the local store,
// the sync stack and the UI-facing services, and runs a small REPL that
// stands in for the presentation layer: it reads and writes through the
// services only and re-reads the local store when a change is announced.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
