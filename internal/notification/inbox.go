package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notice is an in-app inbox record shown on the recipients' dashboards.
type Notice struct {
	ID         string
	Title      string
	Message    string
	Recipients []string
	DeepLink   string
	CreatedAt  time.Time
}

// Inbox persists in-app notices.
type Inbox interface {
	Create(ctx context.Context, notice Notice) error
}

// PostgresInbox stores notices in PostgreSQL.
type PostgresInbox struct {
	db *pgxpool.Pool
}

// NewPostgresInbox builds a Postgres-backed inbox.
func NewPostgresInbox(db *pgxpool.Pool) *PostgresInbox {
	return &PostgresInbox{db: db}
}

// Create inserts a notice.
func (i *PostgresInbox) Create(ctx context.Context, notice Notice) error {
	id := notice.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := notice.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := i.db.Exec(ctx, `INSERT INTO notifications (id, title, message, recipients, deep_link, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.MustParse(id), notice.Title, notice.Message, notice.Recipients, notice.DeepLink, createdAt)
	return err
}

// MemoryInbox records notices in memory for tests.
type MemoryInbox struct {
	mu      sync.Mutex
	notices []Notice
}

// NewMemoryInbox builds an in-memory inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{}
}

// Create records the notice.
func (i *MemoryInbox) Create(_ context.Context, notice Notice) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	i.notices = append(i.notices, notice)
	return nil
}

// Notices returns a copy of the recorded notices. Test helper.
func (i *MemoryInbox) Notices() []Notice {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Notice, len(i.notices))
	copy(out, i.notices)
	return out
}
