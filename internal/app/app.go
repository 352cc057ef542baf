package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/stripe/stripe-go/v82"

	"github.com/filmhall/booking-engine/internal/domain"
	"github.com/filmhall/booking-engine/internal/gateway"
	"github.com/filmhall/booking-engine/internal/mailer"
	"github.com/filmhall/booking-engine/internal/reconcile"
	"github.com/filmhall/booking-engine/internal/repository"
	appvalidator "github.com/filmhall/booking-engine/internal/validator"
	"github.com/filmhall/booking-engine/internal/vcs"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	mailer    mailer.Mailer
	pubsub    *gochannel.GoChannel

	showRepo    domain.ShowRepository
	bookingRepo domain.BookingRepository
	gateway     domain.PaymentGateway

	// now is swapped out in tests that reason about hold expiry.
	now func() time.Time
}

type Config struct {
	Port             int
	Env              string
	OtelCollectorUrl string
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
	Booking          BookingConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessUrl    string
	FailureUrl    string
}

// BookingConfig carries the engine's policy knobs. The hold duration and the
// sweep interval trade seat lockup from abandoned carts against the risk of
// expiring a booking mid-payment, so both are configuration, not constants.
type BookingConfig struct {
	HoldDuration      time.Duration
	SweepInterval     time.Duration
	CancelWindow      time.Duration
	GatewayTimeout    time.Duration
	GatewayMaxRetries uint64
	Currency          string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "FilmHall <no-reply@filmhall.example>", "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", "", "Stripe secret key")
	flag.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", "", "Stripe webhook secret")
	flag.StringVar(&cfg.Stripe.SuccessUrl, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.Stripe.FailureUrl, "stripe-failure-url", "https://example.com/failure.html", "Stripe payment failure page")

	flag.DurationVar(&cfg.Booking.HoldDuration, "hold-duration", 10*time.Minute, "how long a pending booking holds its seats")
	flag.DurationVar(&cfg.Booking.SweepInterval, "sweep-interval", 30*time.Second, "interval between expiry sweeps and gateway polls")
	flag.DurationVar(&cfg.Booking.CancelWindow, "cancel-window", 30*time.Minute, "window after confirmation during which cancellation is allowed")
	flag.DurationVar(&cfg.Booking.GatewayTimeout, "gateway-timeout", 5*time.Second, "network timeout for a single payment gateway call")
	var gatewayMaxRetries int
	flag.IntVar(&gatewayMaxRetries, "gateway-max-retries", 3, "retry budget for transient gateway errors")
	flag.StringVar(&cfg.Booking.Currency, "currency", "USD", "booking currency code")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	cfg.Booking.GatewayMaxRetries = uint64(gatewayMaxRetries)

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.serve()
}

func New(cfg Config, logger *slog.Logger) (*Application, error) {
	stripe.Key = cfg.Stripe.SecretKey

	db, err := NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	var paymentGateway domain.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		paymentGateway = gateway.NewStripeGateway(cfg.Stripe.FailureUrl, cfg.Stripe.SuccessUrl)
	} else {
		logger.Warn("no stripe key configured, using in-memory payment gateway")
		paymentGateway = gateway.NewFakeGateway()
	}

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)

	app := NewApp(
		cfg,
		logger,
		db,
		redisClient,
		smtpMailer,
		repository.NewPostgresShowRepository(db),
		repository.NewPostgresBookingRepository(db),
		paymentGateway,
	)

	return app, nil
}

// NewApp wires an Application from already-constructed dependencies. The
// integration tests use it to swap in mock mailers and gateways while keeping
// real repositories.
func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redisClient redis.UniversalClient,
	appMailer mailer.Mailer,
	showRepo domain.ShowRepository,
	bookingRepo domain.BookingRepository,
	paymentGateway domain.PaymentGateway,
) *Application {
	return &Application{
		config:      cfg,
		logger:      logger,
		db:          db,
		redis:       redisClient,
		validator:   appvalidator.NewValidator(),
		mailer:      appMailer,
		pubsub:      gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger)),
		showRepo:    showRepo,
		bookingRepo: bookingRepo,
		gateway:     paymentGateway,
		now:         time.Now,
	}
}

// PubSub exposes the in-process event bus so the reconciliation worker can be
// driven against the same channel the webhook handler publishes to.
func (app *Application) PubSub() *gochannel.GoChannel {
	return app.pubsub
}

func (app *Application) Close() {
	if app.pubsub != nil {
		app.pubsub.Close()
	}
	if app.redis != nil {
		app.redis.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	worker := reconcile.New(
		app.logger,
		app.bookingRepo,
		app.gateway,
		app.pubsub,
		app.mailer,
		reconcile.WithSweepInterval(app.config.Booking.SweepInterval),
		reconcile.WithGatewayTimeout(app.config.Booking.GatewayTimeout),
		reconcile.WithMaxRetries(app.config.Booking.GatewayMaxRetries),
	)

	go func() {
		err := worker.Run(workerCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error("reconciliation worker stopped", "error", err)
		}
	}()

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stopWorker()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("booking-engine", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)

	r.Get("/health", app.GetHealth)

	r.Route("/shows/{showID}", func(r chi.Router) {
		r.Get("/seats", app.GetShowSeats)
		r.Post("/reservations", app.CreateReservation)
	})

	r.Route("/bookings/{bookingID}", func(r chi.Router) {
		r.Get("/", app.GetBooking)
		r.Delete("/", app.CancelBooking)
	})

	r.Get("/users/{userID}/bookings", app.GetUserBookings)

	r.Post("/webhook", app.StripeWebhookHandler)

	return r
}
