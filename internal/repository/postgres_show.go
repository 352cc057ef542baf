package repository

import (
	"context"
	"errors"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresShowRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowRepository(db *pgxpool.Pool) *PostgresShowRepository {
	return &PostgresShowRepository{
		db: db,
	}
}

func (p *PostgresShowRepository) GetById(ctx context.Context, id int) (*domain.Show, error) {
	query := `
		SELECT id, movie_id, theatre_id, starts_at, seat_rows, seats_per_row, base_price, created_at
		FROM shows
		WHERE id = $1
	`

	var show domain.Show

	err := p.db.QueryRow(ctx, query, id).Scan(
		&show.ID,
		&show.MovieID,
		&show.TheatreID,
		&show.StartsAt,
		&show.SeatRows,
		&show.SeatsPerRow,
		&show.BasePrice,
		&show.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShowNotFound
		}

		return nil, err
	}

	return &show, nil
}

func (p *PostgresShowRepository) Create(ctx context.Context, show *domain.Show) error {
	query := `
		INSERT INTO shows (movie_id, theatre_id, starts_at, seat_rows, seats_per_row, base_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return p.db.QueryRow(
		ctx,
		query,
		show.MovieID,
		show.TheatreID,
		show.StartsAt,
		show.SeatRows,
		show.SeatsPerRow,
		show.BasePrice,
	).Scan(&show.ID, &show.CreatedAt)
}
