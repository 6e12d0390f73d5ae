package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	// Drivers for every supported dialect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/dialect"
)

// OpenFunc opens a database handle. It matches sql.Open.
type OpenFunc func(driverName, dsn string) (*sql.DB, error)

// Provider resolves connection roles to open drivers. The connection list
// is kept as given and is validated only when a role is opened.
type Provider struct {
	cfgs       []dialect.Config
	logger     *slog.Logger
	open       OpenFunc
	statsOpts  []StatsOption
	stats      bool
	debug      bool
	maxOpen    int
	maxIdle    int
	maxLife    time.Duration
	pingOnOpen bool
}

// ProviderOption configures the Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger used for connection events.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithOpener replaces sql.Open, e.g. with a sqlmock opener in tests.
func WithOpener(open OpenFunc) ProviderOption {
	return func(p *Provider) {
		p.open = open
	}
}

// WithStats wraps opened drivers with a StatsDriver.
func WithStats(opts ...StatsOption) ProviderOption {
	return func(p *Provider) {
		p.stats = true
		p.statsOpts = opts
	}
}

// WithDebug wraps opened drivers with a DebugDriver logging to the
// provider's logger. It takes precedence over WithStats.
func WithDebug() ProviderOption {
	return func(p *Provider) {
		p.debug = true
	}
}

// WithPool sets the pool limits of opened handles. Zero values keep the
// database/sql defaults.
func WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) ProviderOption {
	return func(p *Provider) {
		p.maxOpen, p.maxIdle, p.maxLife = maxOpen, maxIdle, maxLifetime
	}
}

// WithoutPing skips the connectivity check on Open.
func WithoutPing() ProviderOption {
	return func(p *Provider) {
		p.pingOnOpen = false
	}
}

// NewProvider returns a Provider over the connection list.
func NewProvider(cfgs []dialect.Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		cfgs:       append([]dialect.Config(nil), cfgs...),
		logger:     slog.New(slog.DiscardHandler),
		open:       sql.Open,
		pingOnOpen: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Roles returns the configured roles in list order.
func (p *Provider) Roles() []string {
	roles := make([]string, len(p.cfgs))
	for i, c := range p.cfgs {
		roles[i] = c.Role
	}
	return roles
}

// Config returns the entry of role. Roles match case-insensitively.
func (p *Provider) Config(role string) (dialect.Config, error) {
	role = strings.TrimSpace(role)
	for _, c := range p.cfgs {
		if strings.EqualFold(c.Role, role) {
			return c, nil
		}
	}
	return dialect.Config{}, recordstore.NewConfigurationError("role", role, "no connection configured")
}

// ConnectionString returns the connection string of role.
func (p *Provider) ConnectionString(role string) (string, error) {
	c, err := p.Config(role)
	if err != nil {
		return "", err
	}
	return dialect.BuildConnectionString(c)
}

// Open validates the entry of role, opens its pool and verifies
// connectivity. The caller owns the returned driver and must close it.
func (p *Provider) Open(ctx context.Context, role string) (dialect.Driver, error) {
	c, err := p.Config(role)
	if err != nil {
		return nil, err
	}
	d, err := c.Validate()
	if err != nil {
		return nil, err
	}
	dsn, err := dialect.DriverDSN(c)
	if err != nil {
		return nil, err
	}
	db, err := p.open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", c.Role, err)
	}
	if p.maxOpen > 0 {
		db.SetMaxOpenConns(p.maxOpen)
	}
	if p.maxIdle > 0 {
		db.SetMaxIdleConns(p.maxIdle)
	}
	if p.maxLife > 0 {
		db.SetConnMaxLifetime(p.maxLife)
	}
	if p.pingOnOpen {
		if err := db.PingContext(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("dialect/sql: ping %s: %w", c.Role, err), db.Close())
		}
	}
	p.logger.InfoContext(ctx, "connection opened",
		slog.String("role", c.Role),
		slog.String("dialect", d.Name),
		slog.String("server", c.Server),
		slog.String("database", c.Database))

	drv := OpenDB(d.Name, db)
	switch {
	case p.debug:
		return NewDebugDriver(drv, DebugWithLogger(p.logger)), nil
	case p.stats:
		return NewStatsDriver(drv, p.statsOpts...), nil
	default:
		return drv, nil
	}
}

// Ping opens role, verifies it and closes it again.
func (p *Provider) Ping(ctx context.Context, role string) (time.Duration, error) {
	start := time.Now()
	drv, err := p.Open(ctx, role)
	if err != nil {
		return 0, err
	}
	return time.Since(start), drv.Close()
}
