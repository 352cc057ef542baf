package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/filmhall/booking-engine/api"
	"github.com/filmhall/booking-engine/internal/domain"
)

// The availability cache only serves advisory reads such as seat-map display
// and the assistant's lookups. Reservation commits always recompute occupancy
// from the ledger inside the show's critical section, so a stale cache entry
// can never cause a double booking.
const availabilityCacheTTL = 2 * time.Second

func availabilityKey(showID int) string {
	return fmt.Sprintf("availability:show:%d", showID)
}

func (app *Application) GetShowSeats(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showID, err := readIntParam(r, "showID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	cached, err := app.redis.Get(r.Context(), availabilityKey(showID)).Bytes()
	if err == nil {
		var resp api.SeatMapResponse
		if json.Unmarshal(cached, &resp) == nil {
			app.writeJSON(w, http.StatusOK, resp, nil)
			return
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("availability cache read failed", "error", err)
	}

	show, err := app.showRepo.GetById(r.Context(), showID)
	if err != nil {
		if errors.Is(err, domain.ErrShowNotFound) {
			app.showNotFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	occupied, err := app.bookingRepo.OccupiedSeats(r.Context(), showID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.SeatMapResponse{
		ShowId:        showID,
		Capacity:      show.Capacity(),
		OccupiedSeats: []string(occupied),
	}

	app.cacheAvailability(r.Context(), showID, resp, logger)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) cacheAvailability(ctx context.Context, showID int, resp api.SeatMapResponse, logger *slog.Logger) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}

	if err := app.redis.Set(ctx, availabilityKey(showID), data, availabilityCacheTTL).Err(); err != nil {
		logger.Warn("availability cache write failed", "error", err)
	}
}

// invalidateAvailability drops the cached seat map after an occupancy change.
// Best effort: the short TTL bounds staleness even if the delete fails.
func (app *Application) invalidateAvailability(ctx context.Context, showID int) {
	if err := app.redis.Del(ctx, availabilityKey(showID)).Err(); err != nil {
		app.logger.Warn("availability cache invalidation failed", "show_id", showID, "error", err)
	}
}
