package partner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLinker is a concurrency-safe in-memory Linker for unit tests. The
// DBTX argument is ignored.
type MemoryLinker struct {
	mu       sync.Mutex
	partners map[string]Partner
}

// NewMemoryLinker builds an in-memory partner linker.
func NewMemoryLinker() *MemoryLinker {
	return &MemoryLinker{partners: make(map[string]Partner)}
}

// FindOrCreate returns the existing partner for the owner/email pair or
// records a new one.
func (l *MemoryLinker) FindOrCreate(_ context.Context, _ DBTX, p Partner) (Partner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := p.OwnerID + "|" + strings.ToLower(strings.TrimSpace(p.Email))
	if existing, ok := l.partners[key]; ok {
		return existing, nil
	}

	p.ID = uuid.NewString()
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.CreatedAt = time.Now().UTC()
	l.partners[key] = p
	return p, nil
}

// Count reports the number of stored partners. Test helper.
func (l *MemoryLinker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.partners)
}
