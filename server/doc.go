// Package server exposes the conversation engine over HTTP: a small REST
// surface for workflow and thread inspection, and a websocket endpoint
// carrying the chat frame protocol (start, message, settings, resume, end).
package server
