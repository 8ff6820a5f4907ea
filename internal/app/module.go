// Package app composes the chatdev runtime with fx.
package app

import (
	"context"
	"errors"

	"github.com/andrejr971/chat/internal/api"
	"github.com/andrejr971/chat/internal/bus"
	"github.com/andrejr971/chat/internal/config"
	"github.com/andrejr971/chat/internal/lock"
	"github.com/andrejr971/chat/internal/logging"
	"github.com/andrejr971/chat/internal/outbox"
	"github.com/andrejr971/chat/internal/profile"
	"github.com/andrejr971/chat/internal/status"
	"github.com/andrejr971/chat/internal/store"
	intsync "github.com/andrejr971/chat/internal/sync"
	"github.com/andrejr971/chat/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// queueSize is the engine inbox capacity.
const queueSize = 256

// Params holds the resolved profile passed to the fx module.
type Params struct {
	ProfileName string
	Profile     *config.Profile
	Log         logging.Options
}

// Module returns the fx module for a profile, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("chatdev",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideAPI,
			provideQueue,
			provideDialer,
			provideSession,
			provideResender,
			provideEngine,
			NewMetricsServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

// WithLogger routes fx's own lifecycle events to the profile logger.
func WithLogger() fx.Option {
	return fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	})
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, p.Log)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is never opened by two
// processes of the same profile.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideAPI(p Params) *api.Client {
	return api.NewClient(p.Profile.APIURL, p.Profile.DialTimeout.Duration)
}

func provideQueue() *intsync.Queue {
	return intsync.NewQueue(queueSize)
}

func provideDialer(p Params) *transport.WebsocketDialer {
	return transport.NewWebsocketDialer(p.Profile.DialTimeout.Duration)
}

func provideSession(p Params, d *transport.WebsocketDialer, q *intsync.Queue, logger *zap.Logger) *transport.Session {
	return transport.NewSession(d, p.Profile.WSURL, func(ev transport.Event) { q.Post(ev) }, logger)
}

func provideResender(p Params, db *store.DB, sess *transport.Session, b *bus.Bus, logger *zap.Logger) *outbox.Resender {
	return outbox.NewResender(db, sess, p.Profile.Identity(), b, logger)
}

func provideEngine(p Params, q *intsync.Queue, sess *transport.Session, db *store.DB, client *api.Client,
	resender *outbox.Resender, b *bus.Bus, m *status.Machine, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(q, intsync.Deps{
		Transport: sess,
		Summaries: db,
		Archive:   db,
		History:   client,
		Outbox:    db,
		Resender:  resender,
		Bus:       b,
		Machine:   m,
		Logger:    logger,
	}, p.Profile.Identity(), intsync.Options{ResendOnReconnect: p.Profile.ResendOnReconnect})
}

func registerLifecycle(lc fx.Lifecycle, engine *intsync.Engine, metricsSrv *MetricsServer, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := metricsSrv.Start(); err != nil {
				cancel()
				return err
			}
			go func() {
				defer close(done)
				if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("sync engine stopped", zap.Error(err))
				}
			}()
			logger.Info("chatdev started")
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn("sync engine did not stop in time")
			}
			metricsSrv.Stop(stopCtx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("chatdev stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
