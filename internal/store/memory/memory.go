package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bsv-faucet/faucet/internal/store"
)

// Memory is an in-memory HistoryStore. It backs dry-run deployments and
// tests; nothing survives a restart.
type Memory struct {
	mu      sync.Mutex
	records map[int64]*store.HistoryRecord
	nextID  int64
	now     func() time.Time
}

func WithNow(nowFunc func() time.Time) func(*Memory) {
	return func(m *Memory) {
		m.now = nowFunc
	}
}

func New(opts ...func(*Memory)) *Memory {
	m := &Memory{
		records: make(map[int64]*store.HistoryRecord),
		nextID:  1,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.records)), nil
}

func (m *Memory) ReservePending(_ context.Context, userHash string, amountAt func(ordinal int64) (int64, error)) (*store.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordinal := int64(len(m.records)) + 1

	amount, err := amountAt(ordinal)
	if err != nil {
		return nil, err
	}

	record := &store.HistoryRecord{
		ID:            m.nextID,
		UserHash:      userHash,
		TransactionID: store.TransactionIDPending,
		Amount:        amount,
		CreatedAt:     m.now().UTC(),
	}
	m.nextID++
	m.records[record.ID] = record

	copied := *record
	return &copied, nil
}

func (m *Memory) Finalize(_ context.Context, id int64, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return store.ErrNotFound
	}

	record.TransactionID = transactionID
	return nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return store.ErrNotFound
	}

	delete(m.records, id)
	return nil
}

func (m *Memory) ExistsByUserHash(_ context.Context, userHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.UserHash == userHash {
			return true, nil
		}
	}

	return false, nil
}

func (m *Memory) ListByUserHash(_ context.Context, userHash string) ([]*store.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*store.HistoryRecord
	for _, record := range m.records {
		if record.UserHash == userHash {
			copied := *record
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (m *Memory) Close() error {
	return nil
}
