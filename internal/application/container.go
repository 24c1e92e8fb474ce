package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/repository"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/db/memory"
	pg "github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/db/postgres"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/i18n"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/mail"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/qrcode"
	red "github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/redis"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/sched"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/usecase"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/migrations"
)

// Container holds the wired use cases and the infrastructure behind them.
type Container struct {
	Config *config.Config

	Repo  repository.RedemptionCodeRepository
	TxM   repository.TransactionManager
	Pool  *pgxpool.Pool
	Redis red.RedisClient
	Dist  adapter.Distributor
	Clock adapter.Clock

	Generator  *usecase.GeneratorUseCase
	Issuance   *usecase.IssuanceUC
	Redemption *usecase.RedemptionUC
	Admin      *usecase.CodeAdminUC
	QR         *usecase.QRCodec

	Locker sched.Locker

	log     *zerolog.Logger
	closers []func()
}

type Option func(*buildOptions)

type buildOptions struct {
	clock   adapter.Clock
	migrate bool
	dist    adapter.Distributor
}

// WithClock drives every time-dependent use case from c.
func WithClock(c adapter.Clock) Option {
	return func(o *buildOptions) { o.clock = c }
}

// WithMigrations applies pending migrations before the repository is used.
func WithMigrations() Option {
	return func(o *buildOptions) { o.migrate = true }
}

// WithDistributor overrides the mail distributor chosen from config.
func WithDistributor(d adapter.Distributor) Option {
	return func(o *buildOptions) { o.dist = d }
}

// Build wires the application from cfg. Without a database URL the in-memory
// store is used, and without a redis URL rate limiting and job locks are off.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, opts ...Option) (*Container, error) {
	bo := buildOptions{clock: adapter.SystemClock{}}
	for _, o := range opts {
		o(&bo)
	}
	c := &Container{Config: cfg, Clock: bo.clock, log: logger}

	if err := c.buildStore(ctx, bo.migrate); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.buildRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}

	format := usecase.CodeFormatFromConfig(cfg.Codes)
	c.QR = usecase.NewQRCodec(cfg.QR.BaseURL, cfg.QR.Param, logger,
		usecase.WithHMACSecret(cfg.QR.HMACSecret),
		usecase.WithCodeFormat(format),
		usecase.WithQRClock(c.Clock),
		usecase.WithRenderer(qrcode.Renderer{}, cfg.QR.PNGSize),
	)

	c.Dist = bo.dist
	if c.Dist == nil {
		d, err := c.buildDistributor()
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Dist = d
	}

	c.Generator = usecase.NewGeneratorUseCase(c.Repo, format, cfg.Codes.MaxRetries, logger, usecase.WithGeneratorClock(c.Clock))
	c.Issuance = usecase.NewIssuanceUseCase(c.Generator, c.Dist, c.QR, i18n.MustDefault(cfg.Mail.Language), cfg.Codes.MaxBatch, logger)

	ropts := []usecase.RedemptionOption{
		usecase.WithRedemptionClock(c.Clock),
		usecase.WithDevLogging(cfg.Runtime.Dev),
	}
	if c.Redis != nil {
		ropts = append(ropts, usecase.WithAttemptLimiter(red.NewRateLimiter(c.Redis), cfg.Redeem.RateLimit, cfg.Redeem.RateWindow))
		c.Locker = red.NewLocker(c.Redis)
	}
	c.Redemption = usecase.NewRedemptionUseCase(c.Repo, format, c.QR, logger, ropts...)
	c.Admin = usecase.NewCodeAdminUseCase(c.Repo, c.TxM, format, c.Clock, logger)
	return c, nil
}

func (c *Container) buildStore(ctx context.Context, migrate bool) error {
	if c.Config.Database.URL == "" {
		c.log.Warn().Msg("database.url not set; using the in-memory store")
		c.Repo = memory.NewRedemptionCodeRepo()
		c.TxM = memory.TxManager{}
		return nil
	}

	if migrate {
		mg, err := pg.NewMigrator(migrations.FS, c.Config.Database.URL, c.log)
		if err != nil {
			return fmt.Errorf("migrator: %w", err)
		}
		err = mg.Up()
		_ = mg.Close()
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	}

	pool, err := pg.NewPgxPool(ctx, c.Config.Database.URL, c.Config.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	c.closers = append(c.closers, pool.Close)
	c.Pool = pool
	c.Repo = pg.NewRedemptionCodeRepo(pool)
	c.TxM = pg.NewTxManager(pool)
	return nil
}

func (c *Container) buildRedis(ctx context.Context) error {
	if c.Config.Redis.URL == "" {
		c.log.Info().Msg("redis.url not set; rate limiting and job locks disabled")
		return nil
	}
	rc, err := red.NewClient(ctx, &c.Config.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	c.closers = append(c.closers, func() { _ = rc.Close() })
	c.Redis = rc
	return nil
}

func (c *Container) buildDistributor() (adapter.Distributor, error) {
	if c.Config.Mail.Host == "" || c.Config.Runtime.Dev {
		return mail.NewLogDistributor(c.log), nil
	}
	d, err := mail.NewSMTPDistributor(c.Config.Mail, c.QR, c.log)
	if err != nil {
		return nil, fmt.Errorf("smtp: %w", err)
	}
	return d, nil
}

// Workers returns the background jobs for this container.
func (c *Container) Workers() []func(ctx context.Context) error {
	ws := []func(ctx context.Context) error{
		sched.NewAutoIssueWorker(c.Config.AutoIssue, c.Issuance, c.Locker, c.log).Run,
	}
	if c.Pool != nil {
		ws = append(ws, sched.NewPoolStatsSampler(c.Pool, 15*time.Second).Run)
	}
	return ws
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
