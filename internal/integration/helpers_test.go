package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/filmhall/booking-engine/internal/domain"
)

func prepareRequest(method, path string, body io.Reader, headers map[string]string) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indeterministic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		switch k {
		case "timestamp", "request_id", "booking_id", "created_at", "expires_at", "hold_expires_at":
			return true
		}
		return false
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

// seedShow inserts a show and returns its generated ID. Theatre and movie IDs
// are varied per call so the unique (movie, theatre, starts_at) constraint
// never trips across tests.
func seedShow(t testing.TB, app *TestApp, rows, seatsPerRow int) int {
	t.Helper()

	var id int
	err := app.DB.QueryRow(context.Background(), `
		INSERT INTO shows (movie_id, theatre_id, starts_at, seat_rows, seats_per_row, base_price)
		VALUES (floor(random() * 1e9)::bigint, 1, NOW() + interval '6 hours', $1, $2, 12.00)
		RETURNING id`, rows, seatsPerRow).Scan(&id)
	require.NoError(t, err)

	return id
}

func seedBooking(t testing.TB, app *TestApp, showID int, status domain.BookingStatus, seats []string, expiresAt time.Time) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := app.DB.Exec(context.Background(), `
		INSERT INTO bookings (id, show_id, user_id, seats, amount, status, expires_at)
		VALUES ($1, $2, 7, $3, 24.00, $4, $5)`,
		id, showID, seats, string(status), expiresAt)
	require.NoError(t, err)

	return id
}

func bookingStatus(t testing.TB, app *TestApp, id uuid.UUID) domain.BookingStatus {
	t.Helper()

	var status string
	err := app.DB.QueryRow(context.Background(),
		"SELECT status FROM bookings WHERE id = $1", id).Scan(&status)
	require.NoError(t, err)

	return domain.BookingStatus(status)
}

func reservationBody(seats []string) io.Reader {
	payload, _ := json.Marshal(map[string]any{
		"seats":   seats,
		"user_id": 7,
		"amount":  "24.00",
	})

	return bytes.NewReader(payload)
}

func showSeatsURL(showID int) string {
	return fmt.Sprintf("/shows/%d/seats", showID)
}

func reservationsURL(showID int) string {
	return fmt.Sprintf("/shows/%d/reservations", showID)
}
