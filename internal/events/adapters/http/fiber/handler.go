package fiber

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"funnel-service/internal/events/core/usecase"

	"github.com/gofiber/fiber/v2"
)

var errMissingUserID = errors.New("user_id is required")

type StoreEventUseCase interface {
	Execute(ctx context.Context, in usecase.StoreEventInput) (bool, error)
	BulkCreateEvents(ctx context.Context, in usecase.BulkCreateEventsInput) (usecase.BulkCreateEventsResult, error)
}

type EventHandler struct {
	storeUC StoreEventUseCase
}

func NewEventHandler(storeUC StoreEventUseCase) *EventHandler {
	return &EventHandler{storeUC: storeUC}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Stores a single (user_id, event_name, timestamp) record. Retries carrying the same event_id are idempotent.
// @Tags Events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "Event payload"
// @Success 201 {object} CreateEventResponse
// @Success 200 {object} CreateEventResponse "Duplicate event"
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /events [post]
func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	var req CreateEventRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_json",
		})
	}

	input, err := toInput(req)
	if err != nil {
		return invalidEvent(c, err)
	}

	created, err := h.storeUC.Execute(c.UserContext(), input)
	if err != nil {
		return writeError(c, err)
	}

	if !created {
		resp := CreateEventResponse{
			Status: "duplicate",
		}
		return c.Status(http.StatusOK).JSON(resp)
	}

	resp := CreateEventResponse{
		Status: "created",
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// BulkCreateEvents godoc
// @Summary Bulk create events
// @Description Validates every event first, then stores them individually
// @Tags Events
// @Accept json
// @Produce json
// @Param request body BulkCreateEventsRequest true "Bulk event payload"
// @Success 201 {object} BulkCreateEventsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /events/bulk [post]
func (h *EventHandler) BulkCreateEvents(c *fiber.Ctx) error {
	var req BulkCreateEventsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_json",
		})
	}

	if len(req.Events) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "events_list_required",
		})
	}

	inputs := make([]usecase.StoreEventInput, len(req.Events))
	for i, e := range req.Events {
		in, err := toInput(e)
		if err != nil {
			return invalidEvent(c, fmt.Errorf("event %d: %w", i, err))
		}
		inputs[i] = in
	}

	result, err := h.storeUC.BulkCreateEvents(
		c.UserContext(),
		usecase.BulkCreateEventsInput{Events: inputs},
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(BulkCreateEventsResponse{
		Created:    result.Created,
		Duplicates: result.Duplicates,
	})
}

func toInput(req CreateEventRequest) (usecase.StoreEventInput, error) {
	if req.UserID == nil {
		return usecase.StoreEventInput{}, errMissingUserID
	}
	return usecase.StoreEventInput{
		EventID:   req.EventID,
		UserID:    *req.UserID,
		EventName: req.EventName,
		Timestamp: req.Timestamp,
	}, nil
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidEvent),
		errors.Is(err, usecase.ErrFutureTime):
		return invalidEvent(c, err)
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}

func invalidEvent(c *fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_event",
		Message: err.Error(),
	})
}
