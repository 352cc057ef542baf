package integration_test

import (
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filmhall/booking-engine/internal/app"
	"github.com/filmhall/booking-engine/internal/gateway"
	"github.com/filmhall/booking-engine/internal/mailer"
	"github.com/filmhall/booking-engine/internal/repository"
)

type TestApp struct {
	App     *app.Application
	DB      *pgxpool.Pool
	Mailer  *mailer.MockMailer
	Gateway *gateway.FakeGateway
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	mockMailer := mailer.NewMockMailer()
	fakeGateway := gateway.NewFakeGateway()

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		mockMailer,
		repository.NewPostgresShowRepository(db),
		repository.NewPostgresBookingRepository(db),
		fakeGateway,
	)

	return &TestApp{
		App:     application,
		DB:      db,
		Mailer:  mockMailer,
		Gateway: fakeGateway,
	}, nil
}
