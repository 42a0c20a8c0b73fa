// Package store persists the settings document and window geometry in a
// local sqlite database. One writer, synchronous commits.
package store
