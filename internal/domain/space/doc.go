// Package space manages the persisted space and subspace records: creation
// with defaults, partial updates, subspace partition assignment, ordering,
// and the global preferences document they live in.
package space
