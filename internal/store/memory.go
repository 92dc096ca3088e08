package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"paygate/internal/model"
)

// MemoryStore is an in-process Store for tests and single-instance dev
// setups. Claim atomicity holds within the process only; multi-instance
// deployments need the Postgres store.
type MemoryStore struct {
	mu      sync.Mutex
	claims  map[string]Claim
	records map[string]model.VerificationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:  make(map[string]Claim),
		records: make(map[string]model.VerificationRecord),
	}
}

func (s *MemoryStore) TryClaim(_ context.Context, txHash string, orderID int64, network string) (ClaimResult, error) {
	txHash = strings.ToLower(txHash)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.claims[txHash]; ok {
		claim := existing
		return ClaimResult{Existing: &claim}, nil
	}

	s.claims[txHash] = Claim{
		TxHash:    txHash,
		OrderID:   orderID,
		Network:   network,
		CreatedAt: time.Now().UTC(),
	}
	return ClaimResult{Claimed: true}, nil
}

func (s *MemoryStore) IsClaimed(_ context.Context, txHash string) (*Claim, error) {
	txHash = strings.ToLower(txHash)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.claims[txHash]; ok {
		claim := existing
		return &claim, nil
	}
	return nil, nil
}

func (s *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for hash, claim := range s.claims {
		if claim.CreatedAt.Before(olderThan) {
			delete(s.claims, hash)
			delete(s.records, hash)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, rec model.VerificationRecord) error {
	rec.TxHash = strings.ToLower(rec.TxHash)

	s.mu.Lock()
	s.records[rec.TxHash] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetRecord(_ context.Context, txHash string) (*model.VerificationRecord, error) {
	txHash = strings.ToLower(txHash)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[txHash]; ok {
		out := rec
		return &out, nil
	}
	return nil, nil
}

func (s *MemoryStore) Close() {}
