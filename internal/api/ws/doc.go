// Package ws carries the chat stream: chat payloads in, cumulative chunk /
// complete / error events out, one websocket per shell window.
package ws
