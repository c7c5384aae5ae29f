package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"unity-upload-backend/internal/clock"
	"unity-upload-backend/internal/logger"
	"unity-upload-backend/internal/models"
	"unity-upload-backend/internal/store"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyBanned   = errors.New("player already banned")
	ErrNotFound        = errors.New("ban not found")
)

// MaxBanMinutes is the longest ban whose expiry still fits in a time.Duration.
const MaxBanMinutes = math.MaxInt64 / int64(time.Minute)

// RevokeHook runs after a revoke has been persisted. Hooks run in the
// background; Close waits for them.
type RevokeHook func(ctx context.Context, playerID string)

// BanRegistry owns the set of active bans. Mutations are serialized and hold
// the lock across modify and save; readers apply expiry lazily and never
// write.
type BanRegistry struct {
	store store.Store
	clock clock.Clock

	mu      sync.RWMutex
	records map[string]models.BanRecord

	onRevoke []RevokeHook
	hooks    sync.WaitGroup
}

// NewBanRegistry loads the persisted bans. A corrupt store is logged and
// treated as empty; any other load failure is returned.
func NewBanRegistry(s store.Store, c clock.Clock) (*BanRegistry, error) {
	if c == nil {
		c = clock.System
	}
	r := &BanRegistry{
		store:   s,
		clock:   c,
		records: make(map[string]models.BanRecord),
	}

	loaded, err := s.Load()
	if err != nil {
		var corrupt *store.CorruptStoreError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		logger.Warn("[bans] %v; starting with an EMPTY ban list", err)
		loaded = nil
	}

	for _, rec := range loaded {
		if _, dup := r.records[rec.PlayerID]; dup {
			logger.Warn("[bans] duplicate record for %s in store, keeping the last one", rec.PlayerID)
		}
		r.records[rec.PlayerID] = rec
	}
	logger.Info("[bans] loaded %d ban record(s)", len(r.records))

	return r, nil
}

func (r *BanRegistry) OnRevoke(hook RevokeHook) {
	r.mu.Lock()
	r.onRevoke = append(r.onRevoke, hook)
	r.mu.Unlock()
}

func (r *BanRegistry) Ban(playerID, reason string, durationMinutes int) (models.BanRecord, error) {
	playerID = strings.TrimSpace(playerID)
	reason = strings.TrimSpace(reason)
	switch {
	case playerID == "":
		return models.BanRecord{}, fmt.Errorf("%w: playerId is required", ErrInvalidArgument)
	case reason == "":
		return models.BanRecord{}, fmt.Errorf("%w: reason is required", ErrInvalidArgument)
	case durationMinutes <= 0:
		return models.BanRecord{}, fmt.Errorf("%w: durationMinutes must be positive", ErrInvalidArgument)
	case int64(durationMinutes) > MaxBanMinutes:
		return models.BanRecord{}, fmt.Errorf("%w: durationMinutes must be at most %d", ErrInvalidArgument, MaxBanMinutes)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	previous, had := r.records[playerID]
	if had && !previous.ExpiredAt(now) {
		return models.BanRecord{}, ErrAlreadyBanned
	}

	rec := models.BanRecord{
		PlayerID:  playerID,
		Reason:    reason,
		ExpiresAt: now.Add(time.Duration(durationMinutes) * time.Minute),
	}
	r.records[playerID] = rec

	if err := r.persistLocked(); err != nil {
		if had {
			r.records[playerID] = previous
		} else {
			delete(r.records, playerID)
		}
		return models.BanRecord{}, err
	}

	logger.Info("[bans] banned %s until %s: %s", playerID, rec.ExpiresAt.Format(time.RFC3339), reason)
	return rec, nil
}

func (r *BanRegistry) Revoke(ctx context.Context, playerID string) error {
	playerID = strings.TrimSpace(playerID)

	r.mu.Lock()
	rec, ok := r.records[playerID]
	if !ok || rec.ExpiredAt(r.clock.Now()) {
		r.mu.Unlock()
		return ErrNotFound
	}

	delete(r.records, playerID)
	if err := r.persistLocked(); err != nil {
		r.records[playerID] = rec
		r.mu.Unlock()
		return err
	}
	hooks := append([]RevokeHook(nil), r.onRevoke...)
	r.mu.Unlock()

	logger.Info("[bans] revoked ban for %s", playerID)
	ctx = context.WithoutCancel(ctx)
	for _, hook := range hooks {
		r.hooks.Add(1)
		go func(hook RevokeHook) {
			defer r.hooks.Done()
			hook(ctx, playerID)
		}(hook)
	}
	return nil
}

func (r *BanRegistry) Check(playerID string) models.BanStatus {
	r.mu.RLock()
	rec, ok := r.records[strings.TrimSpace(playerID)]
	r.mu.RUnlock()

	if !ok || rec.ExpiredAt(r.clock.Now()) {
		return models.BanStatus{Banned: false}
	}
	expiresAt := rec.ExpiresAt
	return models.BanStatus{Banned: true, Reason: rec.Reason, ExpiresAt: &expiresAt}
}

func (r *BanRegistry) ListActive() []models.BanRecord {
	now := r.clock.Now()

	r.mu.RLock()
	active := make([]models.BanRecord, 0, len(r.records))
	for _, rec := range r.records {
		if !rec.ExpiredAt(now) {
			active = append(active, rec)
		}
	}
	r.mu.RUnlock()

	sortRecords(active)
	return active
}

// Sweep drops every expired record and returns how many were removed. The
// store is only written when something expired.
func (r *BanRegistry) Sweep() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	expired := make(map[string]models.BanRecord)
	for id, rec := range r.records {
		if rec.ExpiredAt(now) {
			expired[id] = rec
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	for id := range expired {
		delete(r.records, id)
	}
	if err := r.persistLocked(); err != nil {
		for id, rec := range expired {
			r.records[id] = rec
		}
		return 0, err
	}

	return len(expired), nil
}

func (r *BanRegistry) Clock() clock.Clock {
	return r.clock
}

// Close waits for pending revoke hooks, then runs a final sweep so the
// persisted list is compact on shutdown.
func (r *BanRegistry) Close() error {
	r.hooks.Wait()
	n, err := r.Sweep()
	if err != nil {
		return fmt.Errorf("final sweep: %w", err)
	}
	if n > 0 {
		logger.Info("[bans] final sweep removed %d expired ban(s)", n)
	}
	return nil
}

func (r *BanRegistry) persistLocked() error {
	records := make([]models.BanRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PlayerID < records[j].PlayerID })

	if err := r.store.Save(records); err != nil {
		return fmt.Errorf("save bans: %w", err)
	}
	return nil
}

func sortRecords(records []models.BanRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].ExpiresAt.Equal(records[j].ExpiresAt) {
			return records[i].ExpiresAt.Before(records[j].ExpiresAt)
		}
		return records[i].PlayerID < records[j].PlayerID
	})
}
