package diagram

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator assigns client-side ids to nodes, edges and metadata entries.
type IDGenerator interface {
	NewID(kind string) string
}

// UUIDGenerator produces "<kind>-<uuid>" ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(kind string) string {
	return kind + "-" + uuid.NewString()
}

// SequenceGenerator produces "<kind>-<n>" ids from a single counter shared
// across kinds. Deterministic, for tests.
type SequenceGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *SequenceGenerator) NewID(kind string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", kind, g.n)
}

// Kinds used for ids that are not node types.
const (
	KindEdge            = "edge"
	KindTrustBoundary   = "boundary"
	KindDataFlow        = "flow"
	KindSecurityControl = "control"
)
