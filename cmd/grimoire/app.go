package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/grimoire/internal/casting"
	"github.com/KirkDiggler/grimoire/internal/catalog"
	"github.com/KirkDiggler/grimoire/internal/character"
	"github.com/KirkDiggler/grimoire/internal/config"
	"github.com/KirkDiggler/grimoire/internal/dice"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/events"
	"github.com/KirkDiggler/grimoire/internal/repositories/rollhistory"
	"github.com/KirkDiggler/grimoire/internal/resolver"
	"github.com/KirkDiggler/grimoire/internal/rest"
	"github.com/KirkDiggler/grimoire/internal/sequence"
)

const redisPingTimeout = 5 * time.Second

// appConfig holds what the command layer needs from the outside
type appConfig struct {
	Roller  dice.Roller
	Catalog *catalog.Catalog
	History rollhistory.Repository
	Logger  *slog.Logger
	// ForceCrit makes every damage roll a critical hit.
	ForceCrit bool
}

func (c *appConfig) Validate() error {
	vb := gerr.NewValidationBuilder()

	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.History == nil {
		vb.RequiredField("History")
	}

	return vb.Build()
}

// app is one play session: a single character and its roll in progress
type app struct {
	logger    *slog.Logger
	catalog   *catalog.Catalog
	store     *character.Store
	bus       *events.Bus
	resolver  *resolver.Resolver
	caster    *casting.Caster
	rests     *rest.Resolver
	history   rollhistory.Repository
	seq       *sequence.Sequence
	forceCrit bool

	// label names the roll the sequence holds, for the history
	label   string
	closers []io.Closer
}

func newApp(cfg *appConfig) (*app, error) {
	if cfg == nil {
		return nil, gerr.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid app config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bus := events.NewBusWithLogger(logger)
	bus.SubscribeAll(&events.ListenerFunc{
		Name:  "audit",
		Order: events.PriorityAudit,
		Callback: func(e events.Event) error {
			if sc, ok := e.(*events.StateChanged); ok {
				logger.Debug("sheet changed",
					"event", sc.GetType(),
					"key", sc.Key,
					"level", sc.Level,
					"amount", sc.Amount)
			}
			return nil
		},
	}, events.AllStateEvents...)
	bus.SubscribeAll(newJournal(cfg.History, logger), journalEvents...)

	store, err := character.NewStore(&character.Config{
		Roller: cfg.Roller,
		Bus:    bus,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	res, err := resolver.New(&resolver.Config{Roller: cfg.Roller, Logger: logger})
	if err != nil {
		return nil, err
	}

	caster, err := casting.New(&casting.Config{
		Store:   store,
		Catalog: cfg.Catalog,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	rests, err := rest.NewResolver(&rest.Config{Store: store, Bus: bus, Logger: logger})
	if err != nil {
		return nil, err
	}

	seq, err := sequence.New(&sequence.Config{Resolver: res, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &app{
		logger:    logger,
		catalog:   cfg.Catalog,
		store:     store,
		bus:       bus,
		resolver:  res,
		caster:    caster,
		rests:     rests,
		history:   cfg.History,
		seq:       seq,
		forceCrit: cfg.ForceCrit,
	}, nil
}

// Close releases the history backend and the log file
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// bootstrap wires an app from configuration
func bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger, forceCrit bool) (*app, error) {
	roller := dice.NewRandomRoller()
	if cfg.Dice.Seed != 0 {
		logger.Info("using seeded dice", "seed", cfg.Dice.Seed)
		roller = dice.NewRollerWithSource(dice.NewSeededSource(cfg.Dice.Seed), logger)
	}

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	history, closer := newHistory(ctx, cfg, logger)

	a, err := newApp(&appConfig{
		Roller:    roller,
		Catalog:   cat,
		History:   history,
		Logger:    logger,
		ForceCrit: forceCrit,
	})
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Load()
	}
	return catalog.LoadFile(path)
}

// newHistory connects to Redis when REDIS_URL is set and falls back to
// memory when it is missing or unreachable.
func newHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (rollhistory.Repository, io.Closer) {
	base := rollhistory.Config{
		TTL:        cfg.History.TTL,
		MaxEntries: cfg.History.MaxEntries,
	}

	if cfg.Redis.URL == "" {
		logger.Debug("no REDIS_URL found, keeping roll history in memory")
		return rollhistory.NewInMemory(&base), nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Warn("failed to parse Redis URL, keeping roll history in memory", "error", err)
		return rollhistory.NewInMemory(&base), nil
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Warn("failed to connect to Redis, keeping roll history in memory", "error", err)
		return rollhistory.NewInMemory(&base), nil
	}

	repo, err := rollhistory.NewRedis(&rollhistory.RedisConfig{
		Config: base,
		Client: client,
		Logger: logger,
	})
	if err != nil {
		_ = client.Close()
		logger.Warn("failed to create Redis roll history, keeping it in memory", "error", err)
		return rollhistory.NewInMemory(&base), nil
	}

	logger.Info("roll history stored in Redis", "addr", opts.Addr, "db", opts.DB)
	return repo, client
}
