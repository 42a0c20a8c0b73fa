// Package logging provides the shared zap logger used across the service.
package logging
