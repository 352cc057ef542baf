package repository

import (
	"context"
	"errors"
	"time"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx, so occupancy can be
// computed inside and outside the reservation critical section with the same
// query.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const bookingColumns = `
	id, show_id, user_id, seats, amount, currency, status,
	contact_email, payment_order_id, created_at, expires_at, updated_at
`

// Reserve holds the row lock on the show for the whole check-then-commit
// sequence. Every occupancy mutation for a show goes through this lock, so
// recomputing occupied seats here sees the latest committed state and no other
// writer can slip in between the check and the insert.
func (p *PostgresBookingRepository) Reserve(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var showId int

		err := tx.QueryRow(ctx, `SELECT id FROM shows WHERE id = $1 FOR UPDATE`, booking.ShowID).Scan(&showId)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrShowNotFound
			}

			return err
		}

		occupied, err := occupiedSeats(ctx, tx, booking.ShowID)
		if err != nil {
			return err
		}

		if conflict := booking.Seats.Intersection(occupied); len(conflict) > 0 {
			return &domain.SeatConflictError{Seats: conflict}
		}

		query := `
			INSERT INTO bookings (id, show_id, user_id, seats, amount, currency, status, contact_email, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at
		`

		return tx.QueryRow(
			ctx,
			query,
			booking.ID,
			booking.ShowID,
			booking.UserID,
			[]string(booking.Seats),
			booking.Amount,
			booking.Currency,
			booking.Status,
			booking.ContactEmail,
			booking.ExpiresAt,
		).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	})
}

func (p *PostgresBookingRepository) OccupiedSeats(ctx context.Context, showId int) (domain.SeatSet, error) {
	return occupiedSeats(ctx, p.db, showId)
}

func occupiedSeats(ctx context.Context, q querier, showId int) (domain.SeatSet, error) {
	query := `
		SELECT seats
		FROM bookings
		WHERE show_id = $1 AND status IN ('pending', 'confirmed')
	`

	rows, err := q.Query(ctx, query, showId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	occupied := domain.NewSeatSet()

	for rows.Next() {
		var seats []string

		if err := rows.Scan(&seats); err != nil {
			return nil, err
		}

		occupied = occupied.Union(domain.NewSeatSet(seats...))
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return occupied, nil
}

// UpdateStatus is the compare-and-set guard on a single booking: the UPDATE is
// gated on the expected current status, so two racing signals about the same
// booking resolve to exactly one applied transition. Transitions that release
// seats take the show lock first, keeping lock order consistent with Reserve.
func (p *PostgresBookingRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.BookingStatus) (domain.TransitionResult, error) {

	if result := domain.Transition(from, to); result != domain.TransitionApplied {
		return result, nil
	}

	result := domain.TransitionInvalid

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		if from.OccupiesSeats() && !to.OccupiesSeats() {
			var showId int

			query := `SELECT show_id FROM bookings WHERE id = $1`
			if err := tx.QueryRow(ctx, query, id).Scan(&showId); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrBookingNotFound
				}

				return err
			}

			if _, err := tx.Exec(ctx, `SELECT id FROM shows WHERE id = $1 FOR UPDATE`, showId); err != nil {
				return err
			}
		}

		query := `
			UPDATE bookings
			SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
		`

		tag, err := tx.Exec(ctx, query, to, id, from)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 1 {
			result = domain.TransitionApplied
			return nil
		}

		// The CAS lost: somebody else moved the booking first. Report what the
		// transition means against the status that actually won.
		var current domain.BookingStatus

		err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrBookingNotFound
			}

			return err
		}

		if current == to {
			result = domain.TransitionAlreadyInState
		}

		return nil
	})

	if err != nil {
		return domain.TransitionInvalid, err
	}

	return result, nil
}

func (p *PostgresBookingRepository) AttachPaymentOrder(ctx context.Context, id uuid.UUID, orderRef string) error {
	query := `
		UPDATE bookings
		SET payment_order_id = $1, updated_at = NOW()
		WHERE id = $2 AND payment_order_id IS NULL AND status = 'pending'
	`

	tag, err := p.db.Exec(ctx, query, orderRef, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrDuplicatePaymentOrder
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicatePaymentOrder
	}

	return nil
}

func (p *PostgresBookingRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}

		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) GetByPaymentOrderId(ctx context.Context, orderRef string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_order_id = $1`

	booking, err := scanBooking(p.db.QueryRow(ctx, query, orderRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}

		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) GetByUserId(ctx context.Context, userId int) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	return p.queryBookings(ctx, query, userId)
}

func (p *PostgresBookingRepository) GetPendingWithOrders(ctx context.Context) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending' AND payment_order_id IS NOT NULL
		ORDER BY created_at
	`

	return p.queryBookings(ctx, query)
}

func (p *PostgresBookingRepository) GetExpiredPending(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
	`

	return p.queryBookings(ctx, query, now)
}

func (p *PostgresBookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, *booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking
	var seats []string

	err := row.Scan(
		&booking.ID,
		&booking.ShowID,
		&booking.UserID,
		&seats,
		&booking.Amount,
		&booking.Currency,
		&booking.Status,
		&booking.ContactEmail,
		&booking.PaymentOrderID,
		&booking.CreatedAt,
		&booking.ExpiresAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	booking.Seats = domain.NewSeatSet(seats...)

	return &booking, nil
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
