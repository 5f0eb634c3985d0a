// Package syncsvc keeps at most one active session per profile across a
// family's devices using a shared keyed record store and a per-profile
// sequence number.
//
// The store offers only get and put. StartSession reads, checks isActive
// and then writes, so two devices can both observe an inactive record and
// both write. The later fetch reveals the last writer and the orchestrator
// reconciles from there.
package syncsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/logging"
)

// RemoteStore is the shared record store. Get returns common.ErrorNotFound
// when no record exists for the profile.
type RemoteStore interface {
	Get(ctx context.Context, profileID string) (models.SessionSyncRecord, error)
	Put(ctx context.Context, rec models.SessionSyncRecord) error
}

type FetchStatus int

const (
	NotFound FetchStatus = iota
	Found
)

type FetchResult struct {
	Status FetchStatus
	Record models.SessionSyncRecord
}

type StartStatus int

const (
	Started StartStatus = iota
	AlreadyActive
)

// StartResult carries the new sequence number for Started, or the current
// remote record for AlreadyActive.
type StartResult struct {
	Status         StartStatus
	SequenceNumber int64
	Record         models.SessionSyncRecord
}

type StopStatus int

const (
	Stopped StopStatus = iota
	AlreadyStopped
)

type StopResult struct {
	Status         StopStatus
	SequenceNumber int64
}

type Service struct {
	store RemoteStore
	log   logging.Logger
}

func NewService(store RemoteStore, log logging.Logger) *Service {
	return &Service{store: store, log: logging.OrNop(log).With("module", "syncsvc")}
}

func (s *Service) FetchSession(ctx context.Context, profileID string) (FetchResult, error) {
	rec, err := s.store.Get(ctx, profileID)
	if errors.Is(err, common.ErrorNotFound) {
		return FetchResult{Status: NotFound}, nil
	}
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch session %s: %w", profileID, err)
	}
	return FetchResult{Status: Found, Record: rec}, nil
}

// StartSession marks the profile active for deviceID unless the remote
// record is already active, in which case the record is returned as is.
func (s *Service) StartSession(ctx context.Context, profileID string, startTime time.Time, deviceID string) (StartResult, error) {
	cur, err := s.FetchSession(ctx, profileID)
	if err != nil {
		return StartResult{}, err
	}
	if cur.Status == Found && cur.Record.IsActive {
		s.log.Info(ctx, "remote session already active",
			"profile_id", profileID, "owner", cur.Record.DeviceID, "seq", cur.Record.SequenceNumber)
		return StartResult{Status: AlreadyActive, Record: cur.Record, SequenceNumber: cur.Record.SequenceNumber}, nil
	}

	next := models.SessionSyncRecord{
		ProfileID:      profileID,
		IsActive:       true,
		SequenceNumber: cur.Record.SequenceNumber + 1,
		DeviceID:       deviceID,
		StartTime:      startTime.UTC(),
	}
	if err := s.store.Put(ctx, next); err != nil {
		return StartResult{}, fmt.Errorf("start session %s: %w", profileID, err)
	}

	s.log.Info(ctx, "remote session started", "profile_id", profileID, "seq", next.SequenceNumber)
	return StartResult{Status: Started, SequenceNumber: next.SequenceNumber, Record: next}, nil
}

// StopSession clears an active record. Missing or inactive records report
// AlreadyStopped without writing.
func (s *Service) StopSession(ctx context.Context, profileID string, endTime time.Time, deviceID string) (StopResult, error) {
	cur, err := s.FetchSession(ctx, profileID)
	if err != nil {
		return StopResult{}, err
	}
	if cur.Status == NotFound || !cur.Record.IsActive {
		return StopResult{Status: AlreadyStopped, SequenceNumber: cur.Record.SequenceNumber}, nil
	}

	end := endTime.UTC()
	next := cur.Record
	next.IsActive = false
	next.SequenceNumber++
	next.DeviceID = deviceID
	next.EndTime = &end

	if err := s.store.Put(ctx, next); err != nil {
		return StopResult{}, fmt.Errorf("stop session %s: %w", profileID, err)
	}

	s.log.Info(ctx, "remote session stopped", "profile_id", profileID, "seq", next.SequenceNumber)
	return StopResult{Status: Stopped, SequenceNumber: next.SequenceNumber}, nil
}
