package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingWrite is a local write owed after a successful remote change.
type PendingWrite struct {
	UserID            uuid.UUID  `json:"user_id"`
	Op                Op         `json:"op"`
	ProviderSubID     string     `json:"provider_sub_id"`
	Status            Status     `json:"status"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	RecordedAt        time.Time  `json:"recorded_at"`
}

// ReconciliationJournal remembers local writes that failed after the remote
// call succeeded, so a retry can finish locally without calling the processor.
type ReconciliationJournal interface {
	Record(ctx context.Context, w PendingWrite) error
	// Pending returns nil, nil when nothing is owed for the user.
	Pending(ctx context.Context, userID uuid.UUID) (*PendingWrite, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type memoryJournal struct {
	mu      sync.Mutex
	pending map[uuid.UUID]PendingWrite
}

// NewMemoryJournal returns a process-local journal. Entries are lost on restart.
func NewMemoryJournal() ReconciliationJournal {
	return &memoryJournal{pending: make(map[uuid.UUID]PendingWrite)}
}

func (j *memoryJournal) Record(_ context.Context, w PendingWrite) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending[w.UserID] = w
	return nil
}

func (j *memoryJournal) Pending(_ context.Context, userID uuid.UUID) (*PendingWrite, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	w, ok := j.pending[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (j *memoryJournal) Clear(_ context.Context, userID uuid.UUID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.pending, userID)
	return nil
}
