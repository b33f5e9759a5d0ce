package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"viberate/internal/bootstrap/config"
	"viberate/internal/bootstrap/database"
	"viberate/internal/bootstrap/logging"
	"viberate/internal/errs"
	"viberate/internal/httpapi"
	cacheinfra "viberate/internal/infrastructure/cache"
	"viberate/internal/infrastructure/events"
	"viberate/internal/infrastructure/labeling"
	sqliterepo "viberate/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "viberate/internal/infrastructure/persistence/sqlite/uow"
	"viberate/internal/infrastructure/wallet"
	"viberate/internal/ports"
	accountuc "viberate/internal/usecase/account"
	"viberate/internal/usecase/assignment"
	auditlog "viberate/internal/usecase/audit"
	"viberate/internal/usecase/budget"
	paymentuc "viberate/internal/usecase/payment"
	syncuc "viberate/internal/usecase/sync"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(sqliterepo.NewAccountRepository, fx.As(new(ports.AccountRepository))),
		fx.Annotate(sqliterepo.NewProjectRepository, fx.As(new(ports.ProjectRepository))),
		fx.Annotate(sqliterepo.NewTaskRepository, fx.As(new(ports.TaskRepository))),
		fx.Annotate(sqliterepo.NewAssignmentRepository, fx.As(new(ports.AssignmentRepository))),
		fx.Annotate(sqliterepo.NewPaymentRepository, fx.As(new(ports.PaymentRepository))),
		fx.Annotate(sqliterepo.NewAuditRepository, fx.As(new(ports.AuditRepository))),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(provideWallet),
	fx.Provide(provideLabeling),
	fx.Provide(provideEvents),
	fx.Provide(auditlog.NewService),
	fx.Provide(func(s *auditlog.Service) ports.AuditRecorder { return s }),
	fx.Provide(budget.NewService),
	fx.Provide(providePayments),
	fx.Provide(provideAccounts),
	fx.Provide(provideSync),
	fx.Provide(provideAssignments),
	fx.Provide(provideHandler),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	cfg, err := config.Load(ctx, p.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := configureLogging(cfg.Logging); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func configureLogging(cfg config.LoggingConfig) error {
	logger, err := logging.New(os.Stderr, cfg.Level, cfg.Format)
	if err != nil {
		return errs.Wrap(err, "configure logging")
	}
	logging.SetDefault(logger)
	return nil
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideCache(lc fx.Lifecycle, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	if strings.EqualFold(cfg.Cache.Driver, "memory") {
		c, err := cacheinfra.NewMemoryCache(cfg.Cache.MaxCost)
		if err != nil {
			return nil, errs.Wrap(err, "create memory cache")
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				c.Close()
				return nil
			},
		})
		return c, nil
	}
	return cacheinfra.NewSQLiteCache(db), nil
}

func provideWallet(cfg config.Config) ports.WalletProvider {
	return wallet.NewProvider(wallet.Options{
		BaseURL:         cfg.Wallet.BaseURL,
		APIKey:          cfg.Wallet.APIKey,
		Timeout:         cfg.Wallet.Timeout,
		BreakerFailures: cfg.Wallet.BreakerFailures,
		BreakerCooldown: cfg.Wallet.BreakerCooldown,
	})
}

func provideLabeling(cfg config.Config) ports.LabelingToolClient {
	return labeling.NewClient(labeling.Options{
		BaseURL:         cfg.Labeling.BaseURL,
		APIToken:        cfg.Labeling.APIToken,
		Timeout:         cfg.Labeling.Timeout,
		BreakerFailures: cfg.Wallet.BreakerFailures,
		BreakerCooldown: cfg.Wallet.BreakerCooldown,
	})
}

// provideEvents connects to NATS when a URL is configured. Publishing is
// best effort, so a missing broker only disables events.
func provideEvents(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))
	if strings.TrimSpace(cfg.Events.NATSURL) == "" {
		logging.Info(logCtx, "domain events disabled")
		return events.Discard{}, nil
	}
	pub, err := events.ConnectNATS(logCtx, events.NATSOptions{
		URL:           cfg.Events.NATSURL,
		Stream:        cfg.Events.Stream,
		SubjectPrefix: cfg.Events.SubjectPrefix,
	})
	if err != nil {
		return nil, errs.Wrap(err, "connect events")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error { return pub.Close() },
	})
	return pub, nil
}

type paymentParams struct {
	fx.In

	Config   config.Config
	Payments ports.PaymentRepository
	Accounts ports.AccountRepository
	Wallet   ports.WalletProvider
	Audit    ports.AuditRecorder
	Events   ports.EventPublisher
}

func providePayments(p paymentParams) *paymentuc.Service {
	pc := p.Config.Payment
	return paymentuc.NewService(p.Payments, p.Accounts, p.Wallet, p.Audit, p.Events, paymentuc.Config{
		Network:            pc.Network,
		Asset:              pc.Asset,
		FeeRate:            pc.FeeRateDecimal(),
		MaxAmount:          pc.MaxAmountDecimal(),
		MaxRetries:         pc.MaxRetries,
		PlatformWalletData: pc.PlatformWalletData,
	})
}

func provideAccounts(cfg config.Config, accounts ports.AccountRepository, w ports.WalletProvider, cache ports.Cache, audit ports.AuditRecorder) *accountuc.Service {
	return accountuc.NewService(accounts, w, cache, audit, accountuc.Config{
		Network:    cfg.Payment.Network,
		Asset:      cfg.Payment.Asset,
		BalanceTTL: cfg.Cache.BalanceTTL,
	})
}

type serviceParams struct {
	fx.In

	Config      config.Config
	Labeling    ports.LabelingToolClient
	Accounts    ports.AccountRepository
	Projects    ports.ProjectRepository
	Tasks       ports.TaskRepository
	Assignments ports.AssignmentRepository
	UoW         ports.UnitOfWork
	Audit       ports.AuditRecorder
	Events      ports.EventPublisher
	Budgets     *budget.Service
}

func provideSync(p serviceParams) *syncuc.Service {
	return syncuc.NewService(syncuc.Deps{
		Labeling:    p.Labeling,
		Accounts:    p.Accounts,
		Projects:    p.Projects,
		Tasks:       p.Tasks,
		Assignments: p.Assignments,
		UoW:         p.UoW,
		Counts:      p.Budgets,
		Audit:       p.Audit,
	})
}

func provideAssignments(p serviceParams, payments *paymentuc.Service, pusher *syncuc.Service) *assignment.Service {
	return assignment.NewService(assignment.Deps{
		Tasks:       p.Tasks,
		Assignments: p.Assignments,
		Accounts:    p.Accounts,
		Projects:    p.Projects,
		UoW:         p.UoW,
		Counts:      p.Budgets,
		Payer:       payments,
		Pusher:      pusher,
		Audit:       p.Audit,
		Events:      p.Events,
	}, assignment.Config{
		AutoStart:    p.Config.Assignment.AutoStart,
		SyncOnSubmit: p.Config.Assignment.SyncOnSubmit,
		MaxAmount:    p.Config.Payment.MaxAmountDecimal(),
	})
}

type handlerParams struct {
	fx.In

	Config      config.Config
	Accounts    *accountuc.Service
	Budgets     *budget.Service
	Assignments *assignment.Service
	Payments    *paymentuc.Service
}

func provideHandler(p handlerParams) (http.Handler, error) {
	return httpapi.New(httpapi.Config{
		Services: httpapi.Services{
			Accounts:    p.Accounts,
			Budgets:     p.Budgets,
			Assignments: p.Assignments,
			Payments:    p.Payments,
		},
		Auth: httpapi.AuthConfig{JWTSecret: p.Config.HTTP.JWTSecret},
	})
}

type appParams struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Audit       *auditlog.Service
	Accounts    *accountuc.Service
	Budgets     *budget.Service
	Assignments *assignment.Service
	Payments    *paymentuc.Service
	Sync        *syncuc.Service
	Handler     http.Handler
}

func provideApp(p appParams) *App {
	return &App{
		Config:      p.Config,
		DB:          p.DB,
		Audit:       p.Audit,
		Accounts:    p.Accounts,
		Budgets:     p.Budgets,
		Assignments: p.Assignments,
		Payments:    p.Payments,
		Sync:        p.Sync,
		Handler:     p.Handler,
	}
}
