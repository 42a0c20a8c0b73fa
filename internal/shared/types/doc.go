// Package types provides shared data structures for the Vera Desktop backend.
//
// This package defines core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Space: Isolated workspace with its own storage partition
//   - Subspace: Embedded web app inside a space, nested partition
//   - Settings: The single persisted settings document
//   - CatalogEntry: Static app catalog item
//   - SurfaceInfo: Live window state
//
// Chat Types:
//   - ChatMessage, ChatPayload: AI sidebar conversation turns
//   - StreamEvent: Streamed response events (cumulative chunks)
//
// Partial updates (SpaceUpdate, SettingsUpdate) use pointer fields; nil
// means "leave untouched". Nested settings merge field-by-field.
package types
