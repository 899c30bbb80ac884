package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/assujiar/ugc-business-command-portal-sub003/account"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/client/es"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/config"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/activity"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/sla"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/workflow"
	"github.com/assujiar/ugc-business-command-portal-sub003/indices"
	"github.com/assujiar/ugc-business-command-portal-sub003/infra/metrics"
	"github.com/assujiar/ugc-business-command-portal-sub003/infra/tracing"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/assujiar/ugc-business-command-portal-sub003/servehttp"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Models lists every persisted type, in migration order.
func Models() []interface{} {
	return []interface{}{&domain.Entity{}, &activity.Record{}, &activity.Comment{}, &account.Account{}}
}

type App struct {
	Config  *config.Config
	DS      *persistence.DataSourceManager
	Metrics *metrics.Metrics

	cron   *cron.Cron
	closer io.Closer
}

// LoadWorkflows replaces the built-in transition tables with the file at path, an empty path keeps them.
func LoadWorkflows(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	registry, err := workflow.LoadRegistry(data)
	if err != nil {
		return fmt.Errorf("invalid transition tables in %s: %w", path, err)
	}
	workflow.ActiveRegistry = registry
	return nil
}

// Open connects the database and applies the configuration to the package level state.
func Open(cfg *config.Config) (*App, error) {
	if err := LoadWorkflows(cfg.Workflows); err != nil {
		return nil, err
	}
	sla.ActivePolicy = sla.Policy{Hours: cfg.SLA.Hours}

	if cfg.Database.DriverType == persistence.DriverMysql {
		// create database (no conflict)
		if err := persistence.PrepareMysqlDatabase(cfg.Database.DriverArgs); err != nil {
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
	}
	dbConfig := cfg.Database
	ds := &persistence.DataSourceManager{DatabaseConfig: &dbConfig}
	if err := ds.Start(); err != nil {
		ds.Stop()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	persistence.ActiveDataSourceManager = ds
	return &App{Config: cfg, DS: ds}, nil
}

func (a *App) Migrate(ctx context.Context) error {
	if err := a.DS.GormDB(ctx).AutoMigrate(Models()...).Error; err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// Provision creates the configured accounts and registers their tokens.
func (a *App) Provision(ctx context.Context) error {
	accounts := make([]account.Account, 0, len(a.Config.Accounts))
	for _, c := range a.Config.Accounts {
		accounts = append(accounts, account.Account{ID: c.ID, Name: c.Name, Role: c.Role})
	}
	if err := account.Provision(ctx, accounts); err != nil {
		return err
	}
	for _, c := range a.Config.Accounts {
		if c.Token != "" {
			session.RegisterToken(c.Token, session.Identity{ID: c.ID, Name: c.Name})
		}
	}
	return nil
}

// Start wires tracing, metrics, search and the scheduled jobs. It returns the HTTP engine to serve.
func (a *App) Start() (*gin.Engine, error) {
	gin.SetMode(a.Config.HTTP.Mode)

	closer, err := tracing.InitGlobalTracer(common.GetServiceName())
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.closer = closer

	a.Metrics = metrics.New()
	bizerror.ResponseObserver = a.Metrics.ObserveErrorResponse
	activity.Handlers = []activity.Handler{a.Metrics.ActivityHandler()}

	a.cron = cron.New()
	if _, err := sla.RegisterCron(a.cron, a.Config.SLA.ScanSchedule); err != nil {
		return nil, fmt.Errorf("sla schedule: %w", err)
	}
	if len(a.Config.Search.Addresses) > 0 {
		if _, err := es.CreateClient(a.Config.Search.Addresses); err != nil {
			return nil, fmt.Errorf("search client: %w", err)
		}
		activity.Handlers = append(activity.Handlers, indices.IndexEntityActivityHandler)
		if _, err := indices.RegisterCron(a.cron, a.Config.Search.SyncSchedule); err != nil {
			return nil, fmt.Errorf("search sync schedule: %w", err)
		}
	}
	a.cron.Start()

	return servehttp.BuildEngine(a.Metrics), nil
}

// Serve runs the HTTP server until ctx is done or the process is signalled.
func (a *App) Serve(ctx context.Context) error {
	engine, err := a.Start()
	if err != nil {
		return err
	}
	return servehttp.StartHTTPServer(ctx, a.Config.HTTP.Addr, engine, a.Config.HTTP.ShutdownTimeout)
}

func (a *App) Close() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			logrus.Warnf("failed to close tracer: %v", err)
		}
	}
	if persistence.ActiveDataSourceManager == a.DS {
		persistence.ActiveDataSourceManager = nil
	}
	a.DS.Stop()
}
