package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"tienlen/internal/config"
	"tienlen/internal/domain"
	"tienlen/internal/session"
	"tienlen/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	watch := flag.String("watch", "", "session id to watch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := newLogger(cfg.Server.Mode)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	rules := domain.Rules{
		PairSequences:     cfg.Rules.PairSequences,
		MinPairSequence:   cfg.Rules.MinPairSequence,
		BombBeatsStraight: cfg.Rules.BombBeatsStraight,
	}
	mgr := session.NewManager(st, rules, log, nil)
	mgr.SetMaxRetries(cfg.Session.MaxWriteRetries)

	if *watch != "" {
		cancel, err := mgr.Watch(ctx, *watch, func(g *domain.GameState) {
			if g == nil {
				log.Info("session deleted", zap.String("session", *watch))
				return
			}
			log.Info("snapshot",
				zap.String("session", *watch),
				zap.Int64("version", g.Version),
				zap.String("status", string(g.Status)),
				zap.Int("players", len(g.Players)),
				zap.String("turn", g.CurrentTurn))
		})
		if err != nil {
			log.Fatal("watch session", zap.Error(err))
		}
		defer cancel()
	}

	log.Info("ready",
		zap.String("backend", cfg.Store.Backend), zap.String("mode", cfg.Server.Mode))
	<-ctx.Done()
}

func newLogger(mode string) *zap.Logger {
	var zcfg zap.Config
	if mode == "release" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.OutputPaths = []string{"stdout"}

	log, err := zcfg.Build()
	if err != nil {
		os.Exit(1)
	}
	return log
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		rs, err := store.OpenRedis(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
