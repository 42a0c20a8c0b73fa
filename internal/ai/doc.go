// Package ai bridges chat widgets to an OpenAI-compatible completion API:
// a streaming client, page context extraction, prompt assembly, and
// per-widget conversation turns.
package ai
