package store

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"paygate/internal/model"
)

const testHash = "0x9a5cfc84b1f32f968da25018f7d387d7fb026be74e2a2cf83a35f53bd2a710b0"

func TestTryClaim(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	result, err := st.TryClaim(ctx, testHash, 42, "base_sepolia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Claimed {
		t.Fatalf("first claim must succeed")
	}

	result, err = st.TryClaim(ctx, testHash, 99, "base_sepolia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Claimed {
		t.Fatalf("second claim must lose")
	}
	if result.Existing == nil || result.Existing.OrderID != 42 {
		t.Fatalf("existing claim mismatch: %+v", result.Existing)
	}

	// same order also loses; idempotency is the caller's concern
	result, err = st.TryClaim(ctx, testHash, 42, "base_sepolia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Claimed {
		t.Fatalf("repeat claim by the same order must not report Claimed")
	}
}

func TestTryClaimConcurrent(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	const claimers = 32
	var winners int64
	var wg sync.WaitGroup

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(orderID int64) {
			defer wg.Done()
			result, err := st.TryClaim(ctx, testHash, orderID, "base_sepolia")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result.Claimed {
				atomic.AddInt64(&winners, 1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestClaimHashNormalized(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	upper := "0x" + strings.ToUpper(testHash[2:])
	if _, err := st.TryClaim(ctx, upper, 42, "base_sepolia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claim, err := st.IsClaimed(ctx, testHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim == nil {
		t.Fatalf("case-variant hash must resolve to the same claim")
	}
}

func TestIsClaimedUnknown(t *testing.T) {
	st := NewMemoryStore()

	claim, err := st.IsClaimed(context.Background(), testHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim != nil {
		t.Fatalf("unclaimed hash must return nil, got %+v", claim)
	}
}

func TestPrune(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if _, err := st.TryClaim(ctx, testHash, 42, "base_sepolia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.SaveRecord(ctx, model.VerificationRecord{TxHash: testHash, OrderID: 42, Outcome: model.OutcomeVerified}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := st.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("fresh claim must survive, deleted %d", deleted)
	}

	deleted, err = st.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one pruned claim, got %d", deleted)
	}

	claim, _ := st.IsClaimed(ctx, testHash)
	if claim != nil {
		t.Fatalf("pruned claim still present")
	}
	rec, _ := st.GetRecord(ctx, testHash)
	if rec != nil {
		t.Fatalf("pruned record still present")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	rec := model.VerificationRecord{
		TxHash:      testHash,
		OrderID:     42,
		Network:     "base_sepolia",
		Outcome:     model.OutcomeVerified,
		PaymentType: model.PaymentNative,
		Amount:      "34000000000000000",
		BlockNumber: 171,
		CreatedAt:   time.Now().UTC(),
	}
	if err := st.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := st.GetRecord(ctx, testHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Amount != rec.Amount || got.Outcome != rec.Outcome {
		t.Fatalf("record mismatch: %+v", got)
	}

	// upsert semantics: a re-save replaces the record
	rec.Outcome = model.OutcomeFailed
	if err := st.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = st.GetRecord(ctx, testHash)
	if got.Outcome != model.OutcomeFailed {
		t.Fatalf("record not replaced: %+v", got)
	}
}
