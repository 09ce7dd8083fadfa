package fiber

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	events "funnel-service/internal/events/core/domain"
	"funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type FunnelQueryUseCase interface {
	Execute(ctx context.Context, in usecase.RunFunnelQueryInput) (*domain.FunnelReport, error)
	LoadIndex(ctx context.Context) (*domain.EventIndex, error)
}

type FunnelHandler struct {
	uc FunnelQueryUseCase
}

func NewFunnelHandler(uc FunnelQueryUseCase) *FunnelHandler {
	return &FunnelHandler{uc: uc}
}

// GetFunnel godoc
// @Summary Measure a two-step funnel
// @Description Counts users who fired end_event within gap seconds after start_event
// @Tags Funnels
// @Produce json
// @Param start_event query string true "Start event name"
// @Param end_event query string true "End event name"
// @Param gap query int true "Maximum seconds between start and end"
// @Param workers query int false "Parallel workers (default from config)"
// @Success 200 {object} FunnelResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /funnels [get]
func (h *FunnelHandler) GetFunnel(c *fiber.Ctx) error {
	gapStr := c.Query("gap", "")
	if gapStr == "" {
		return badRequest(c, "gap is required")
	}
	gap, err := strconv.ParseInt(gapStr, 10, 64)
	if err != nil {
		return badRequest(c, "invalid 'gap' parameter")
	}

	workers := 0
	if w := c.Query("workers", ""); w != "" {
		workers, err = strconv.Atoi(w)
		if err != nil {
			return badRequest(c, "invalid 'workers' parameter")
		}
	}

	in := usecase.RunFunnelQueryInput{
		StartEvent: c.Query("start_event", ""),
		EndEvent:   c.Query("end_event", ""),
		Gap:        gap,
		Workers:    workers,
	}

	report, err := h.uc.Execute(c.UserContext(), in)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidParameter):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error:   "invalid_parameter",
				Message: err.Error(),
			})
		case errors.Is(err, usecase.ErrIndexNotLoaded):
			return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
				Error:   "index_not_loaded",
				Message: err.Error(),
			})
		default:
			log.Error().Err(err).Str("start_event", in.StartEvent).Str("end_event", in.EndEvent).Msg("funnel query failed")
			return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
				Error: "internal_server_error",
			})
		}
	}

	return c.Status(http.StatusOK).JSON(toFunnelResponse(report))
}

// ReloadIndex godoc
// @Summary Rebuild the event index
// @Description Reloads the event log from the configured source. Queries already running finish on the old index.
// @Tags Funnels
// @Produce json
// @Success 200 {object} IndexResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /funnels/reload [post]
func (h *FunnelHandler) ReloadIndex(c *fiber.Ctx) error {
	start := time.Now()
	ix, err := h.uc.LoadIndex(c.UserContext())
	if err != nil {
		if errors.Is(err, events.ErrMalformedRecord) {
			return c.Status(http.StatusUnprocessableEntity).JSON(ErrorResponse{
				Error:   "malformed_event_log",
				Message: err.Error(),
			})
		}
		log.Error().Err(err).Msg("index reload failed")
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}

	return c.Status(http.StatusOK).JSON(IndexResponse{
		IndexID:    ix.ID(),
		Users:      ix.UserCount(),
		EventTypes: ix.EventTypeCount(),
		Events:     ix.EventCount(),
		LoadMs:     millis(time.Since(start)),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_parameter",
		Message: msg,
	})
}
