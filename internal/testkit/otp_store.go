// Package testkit holds in-memory implementations of the store and delivery
// contracts for service and handler tests.
package testkit

import (
	"context"
	"sync"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
)

// OtpStore keeps ledger rows in memory. ConsumeOtp is a compare-and-set under
// the mutex, mirroring the conditional UPDATE of the Postgres store.
type OtpStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.OtpCode
}

func NewOtpStore() *OtpStore {
	return &OtpStore{}
}

func (s *OtpStore) InsertOtp(_ context.Context, o *models.OtpCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o.ID = s.nextID
	cp := *o
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *OtpStore) FindLatestUnconsumed(_ context.Context, target string, purpose models.Purpose, code string, now time.Time) (*models.OtpCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.OtpCode
	for _, r := range s.rows {
		if r.Target != target || r.Purpose != purpose || r.Code != code || r.Consumed || r.Expired(now) {
			continue
		}
		if best == nil || r.CreatedAt.After(best.CreatedAt) || (r.CreatedAt.Equal(best.CreatedAt) && r.ID > best.ID) {
			best = r
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *OtpStore) ConsumeOtp(_ context.Context, id int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID != id {
			continue
		}
		if r.Consumed || r.Expired(now) {
			return false, nil
		}
		r.Consumed = true
		t := now
		r.ConsumedAt = &t
		return true, nil
	}
	return false, nil
}

func (s *OtpStore) HasConsumedSince(_ context.Context, targets []string, purpose models.Purpose, code string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if !r.Consumed || r.Purpose != purpose || r.Code != code || !r.ExpiresAt.After(since) {
			continue
		}
		for _, t := range targets {
			if t == r.Target {
				return true, nil
			}
		}
	}
	return false, nil
}

// Rows returns a snapshot of every stored row in insertion order.
func (s *OtpStore) Rows() []models.OtpCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.OtpCode, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, *r)
	}
	return out
}
