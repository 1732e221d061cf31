// Package graph implements the executable conversation graph: named nodes
// operating on a shared state, static and conditional edges, and streamed
// execution over channels. A Definition is assembled by a workflow, compiled
// once into a Graph, then driven turn by turn with Stream or Invoke.
package graph
