// Package id centralizes identifier and partition-name generation.
//
// Spaces and subspaces use UUIDs because the persisted document schema and
// the shell both key on them. Conversation turns and requests use prefixed
// ULIDs: they are k-sortable, which keeps streaming logs readable.
//
// Partition names are derived deterministically from the owning space id, so
// the same space always maps to the same on-disk storage scope, while each
// subspace gets a fresh UUID suffix that guarantees pairwise-distinct
// partitions across all subspaces ever created.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Prefixes for ULID-based ids.
const (
	TurnPrefix    = "turn"
	RequestPrefix = "req"
)

// NewSpaceID generates a space UUID.
func NewSpaceID() string {
	return uuid.New().String()
}

// NewSubspaceID generates a subspace UUID.
func NewSubspaceID() string {
	return uuid.New().String()
}

// SpacePartition names the persistent storage partition for a space. The
// "persist:" prefix marks the partition as surviving restarts.
func SpacePartition(spaceID string) string {
	return fmt.Sprintf("persist:space-%s", spaceID)
}

// SubspacePartition names a nested partition for a new subspace. The fresh
// UUID suffix isolates the subspace from its siblings and from the parent
// space's own storage.
func SubspacePartition(spaceID string) string {
	return fmt.Sprintf("persist:space-%s-subspace-%s", spaceID, uuid.New().String())
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewTurnID generates a conversation-turn id.
func NewTurnID() string {
	return Default().GenerateWithPrefix(TurnPrefix)
}

// NewRequestID generates an API request id.
func NewRequestID() string {
	return Default().GenerateWithPrefix(RequestPrefix)
}
