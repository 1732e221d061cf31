// Package core provides the foundational domain types used by chatflow. It
// defines the core abstractions for:
//
//   - Messages (a closed tagged union of conversation turns)
//   - Workflow state (ordered message history plus workflow-specific fields)
//   - The state codec (storage-safe serialization over the closed variant set)
//   - Pluggable thread stores for persisting state between sessions
//
// The package intentionally keeps implementation concerns (graph execution,
// model providers, concrete store backends) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
