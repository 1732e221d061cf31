// Package model defines the chat-model collaborator boundary: a normalized
// request/response shape over the message history plus tool declarations, and
// a streaming Model interface implemented by provider adapters (openai,
// anthropic) and an in-memory MockModel for tests.
package model
