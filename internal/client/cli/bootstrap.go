package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophfocus/internal/client/budget"
	"github.com/dmitrijs2005/gophfocus/internal/client/client"
	"github.com/dmitrijs2005/gophfocus/internal/client/config"
	"github.com/dmitrijs2005/gophfocus/internal/client/enforcement"
	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/client/notify"
	"github.com/dmitrijs2005/gophfocus/internal/client/orchestrator"
	"github.com/dmitrijs2005/gophfocus/internal/client/redisstore"
	"github.com/dmitrijs2005/gophfocus/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophfocus/internal/client/scheduler"
	"github.com/dmitrijs2005/gophfocus/internal/client/services"
	"github.com/dmitrijs2005/gophfocus/internal/client/syncsvc"
	"github.com/dmitrijs2005/gophfocus/internal/logging"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
	"github.com/google/uuid"
)

// resolveDeviceID returns configured when set, otherwise the id kept in
// metadata, generating and storing a new one on first run.
func resolveDeviceID(ctx context.Context, repo metadata.Repository, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	id, err := metadata.GetString(ctx, repo, metadata.KeyDeviceID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := repo.Set(ctx, metadata.KeyDeviceID, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

type remote struct {
	store  syncsvc.RemoteStore
	auth   services.AuthService
	closer func()
}

func openRemote(ctx context.Context, cfg *config.Config, repos *client.Repositories, deviceID string, log logging.Logger) (remote, error) {
	switch cfg.SyncBackend {
	case config.BackendGRPC:
		gc, err := client.NewGRPCClient(cfg.ServerEndpointAddr, deviceID, cfg.RemoteTimeout)
		if err != nil {
			return remote{}, fmt.Errorf("grpc client: %w", err)
		}
		auth := services.NewAuthService(gc, repos.DB)
		gc.OnTokens = func(access, refresh string) {
			if err := auth.SaveTokens(context.Background(), access, refresh); err != nil {
				log.Warn(ctx, "persist tokens failed", "error", err)
			}
		}
		return remote{store: gc, auth: auth, closer: func() { gc.Close() }}, nil

	case config.BackendRedis:
		rc := redisstore.NewClient(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisstore.Ping(ctx, rc); err != nil {
			log.Warn(ctx, "redis not reachable, starting offline", "addr", cfg.RedisAddr, "error", err)
		}
		return remote{store: redisstore.NewStore(rc, cfg.RedisPrefix), closer: func() { rc.Close() }}, nil

	case config.BackendMemory:
		return remote{store: syncsvc.NewMemoryStore(), closer: func() {}}, nil
	}
	return remote{}, fmt.Errorf("unknown sync backend %q", cfg.SyncBackend)
}

// Bootstrap builds a ready App from cfg. The returned cleanup releases the
// database, remote connections and pending timers.
func Bootstrap(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, func(), error) {
	var log logging.Logger = logging.NewJSONSlogLogger(os.Stderr, cfg.LogLevel)

	repos, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	closers = append(closers, func() { repos.Close() })

	deviceID, err := resolveDeviceID(ctx, repos.Metadata, cfg.DeviceID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("device id: %w", err)
	}
	log = log.With("device", deviceID)

	clock := timex.SystemClock{}
	budgetManager := budget.NewManager(repos.Metadata, clock, cfg.EmergencyBudget)

	rem, err := openRemote(ctx, cfg, repos, deviceID, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, rem.closer)

	var notifier orchestrator.Notifier
	var mq *notify.MQTT
	if cfg.MQTTBroker != "" {
		mc, err := notify.Connect(notify.Options{Broker: cfg.MQTTBroker, ClientID: "gophfocus-" + deviceID})
		if err != nil {
			log.Warn(ctx, "change notifications disabled", "error", err)
		} else {
			mq = notify.New(mc, cfg.MQTTPrefix, deviceID, clock, log)
			notifier = mq
			closers = append(closers, mq.Close)
		}
	}

	reader := bufio.NewReader(in)
	orch := orchestrator.New(orchestrator.Deps{
		Profiles:      repos.Profiles,
		Sessions:      repos.Sessions,
		Sync:          syncsvc.NewService(rem.store, log),
		Enforcer:      enforcement.NewGuard(enforcement.NewLogEngine(log), log),
		Budget:        budgetManager,
		Policy:        budget.AllowAll{},
		Handoff:       NewPrompter(reader, out),
		Notifier:      notifier,
		Clock:         clock,
		Log:           log,
		DeviceID:      deviceID,
		RemoteTimeout: cfg.RemoteTimeout,
		Callbacks: orchestrator.Callbacks{
			OnErrorMessage: func(msg string) { fmt.Fprintln(out, msg) },
			OnSyncConflict: func(rec models.SessionSyncRecord) {
				log.Info(ctx, "following session owned by another device", "profile", rec.ProfileID, "owner", rec.DeviceID)
			},
		},
	})

	runner := scheduler.New(ctx, orch, scheduler.WithClock(clock), scheduler.WithLogger(log))
	closers = append(closers, runner.Close)
	orch.SetTimers(runner)

	profiles, err := repos.Profiles.List(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("list profiles: %w", err)
	}
	for _, p := range profiles {
		runner.RegisterSchedule(p)
	}

	if err := orch.Hydrate(ctx); err != nil {
		log.Warn(ctx, "restore sessions failed", "error", err)
	}
	if mq != nil {
		if err := mq.Subscribe(ctx, orch); err != nil {
			log.Warn(ctx, "subscribe to session changes failed", "error", err)
		}
	}

	app := NewApp(Deps{
		Engine:    orch,
		Profiles:  repos.Profiles,
		Schedules: runner,
		Budget:    budgetManager,
		Auth:      rem.auth,
		Clock:     clock,
		Log:       log,
		Reader:    reader,
		Out:       out,
	})
	return app, cleanup, nil
}
