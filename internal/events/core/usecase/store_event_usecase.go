package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"funnel-service/internal/events/core/domain"
	"funnel-service/internal/events/core/ports"

	"github.com/google/uuid"
)

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrFutureTime   = errors.New("timestamp cannot be in the future")
)

type StoreEventUseCase struct {
	repo ports.EventRepositoryPort
	now  func() time.Time
}

func NewStoreEventUseCase(repo ports.EventRepositoryPort) *StoreEventUseCase {
	return &StoreEventUseCase{repo: repo, now: time.Now}
}

type StoreEventInput struct {
	EventID   string // optional, makes retries idempotent
	UserID    int64
	EventName string
	Timestamp int64
}

func (uc *StoreEventUseCase) Execute(ctx context.Context, in StoreEventInput) (bool, error) {

	if err := uc.validateInput(in); err != nil {
		return false, err
	}

	e := &domain.Event{
		EventID:   in.EventID,
		UserID:    in.UserID,
		EventName: in.EventName,
		EventTime: time.Unix(in.Timestamp, 0).UTC(),
		DedupeKey: buildDedupeKey(in),
	}

	created, err := uc.repo.InsertEvent(ctx, e)
	if err != nil {
		return false, err
	}

	return created, nil
}

// buildDedupeKey only collapses explicit retries. Two occurrences of the same
// event at the same second are both real and must both be kept.
func buildDedupeKey(in StoreEventInput) string {
	if in.EventID == "" {
		return "gen|" + uuid.NewString()
	}
	return "id|" + in.EventID
}

type BulkCreateEventsInput struct {
	Events []StoreEventInput
}

type BulkCreateEventsResult struct {
	Created    int
	Duplicates int
}

// BulkCreateEvents validates every event before inserting any of them.
func (uc *StoreEventUseCase) BulkCreateEvents(ctx context.Context, in BulkCreateEventsInput) (BulkCreateEventsResult, error) {
	var res BulkCreateEventsResult

	for i, ev := range in.Events {
		if err := uc.validateInput(ev); err != nil {
			return res, fmt.Errorf("event %d: %w", i, err)
		}
	}

	for _, ev := range in.Events {
		ok, err := uc.Execute(ctx, ev)
		if err != nil {
			return res, err
		}

		if ok {
			res.Created++
		} else {
			res.Duplicates++
		}
	}

	return res, nil
}

func (uc *StoreEventUseCase) validateInput(in StoreEventInput) error {

	if in.EventName == "" {
		return ErrInvalidEvent
	}

	if in.Timestamp > uc.now().Unix() {
		return ErrFutureTime
	}

	return nil
}
