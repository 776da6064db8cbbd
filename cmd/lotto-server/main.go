package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lotto-server/common"
	"lotto-server/common/helper"
	"lotto-server/common/logger"
	"lotto-server/internal/account"
	"lotto-server/internal/config"
	infmq "lotto-server/internal/infra/rocketmq"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/infra/sqldb"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/service"
	"lotto-server/internal/worker"
)

var _ service.AccountStore = (*account.Store)(nil)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, source, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config", zap.Error(err))
	}
	config.SetCurrent(cfg)
	logger.SetLevel(cfg.Server.LogLevel)
	logger.Info("config loaded", zap.String("source", source), zap.String("db_driver", cfg.Database.Driver))

	if err := config.StartWatch(ctx, nil); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	db, err := common.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatalf("open database failed", zap.Error(err))
	}
	defer db.Close()
	if err := sqldb.Migrate(ctx, db); err != nil {
		logger.Fatalf("apply schema failed", zap.Error(err))
	}

	accounts := account.NewStore(db)
	if _, err := accounts.EnsureAdmin(ctx, adminSeed(cfg)); err != nil {
		logger.Fatalf("seed admin failed", zap.Error(err))
	}

	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer infrds.Close()
	if err := infrds.Ping(ctx, 2*time.Second); err != nil {
		logger.Warn("redis unreachable, prize cache will miss", zap.Error(err))
	}

	infmq.Init(infmq.Options{
		Endpoint:  cfg.RocketMQ.Endpoint,
		AccessKey: cfg.RocketMQ.AccessKey,
		SecretKey: cfg.RocketMQ.SecretKey,
		Topics:    []string{model.TopicTicketSold, model.TopicLottoDrawn, model.TopicPrizeRedeemed},
	})
	defer infmq.Shutdown()

	opts := service.Options{
		DefaultAmount: cfg.Lotto.DefaultAmount,
		BatchSize:     cfg.Lotto.BatchSize,
		TxTimeout:     cfg.TxTimeout(),
		DrawLockTTL:   cfg.DrawLockTTL(),
		Operator:      cfg.Lotto.Operator,
	}
	if price, ok := helper.ParseAmount(cfg.Lotto.TicketPrice); ok {
		opts.TicketPrice = price
	}
	engine := service.NewEngine(service.Deps{
		DB:       db,
		Accounts: accounts,
		Cache:    infrds.NewCache(infrds.Client(), cfg.PrizeTTL()),
		Options:  opts,
	})

	round, err := engine.CurrentRound(ctx)
	if err != nil {
		logger.Fatalf("read current round failed", zap.Error(err))
	}
	logger.Info("engine ready", zap.Int("current_round", round))

	var wg sync.WaitGroup
	worker.NewOutboxDispatcher(db, infmq.PublisherInstance(), cfg.OutboxInterval(), cfg.Lotto.OutboxBatchSize).Start(ctx, &wg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", metrics.Instrument("healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := infrds.Ping(r.Context(), time.Second); err != nil {
			http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})))

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("ops listener started", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops listener failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops listener shutdown failed", zap.Error(err))
	}
	wg.Wait()
}

// adminSeed overlays configured fields on the built-in seed.
func adminSeed(cfg *config.Config) account.AdminSeed {
	seed := account.DefaultAdminSeed()
	a := cfg.Admin
	for dst, v := range map[*string]string{
		&seed.FullName: a.FullName,
		&seed.Phone:    a.Phone,
		&seed.Email:    a.Email,
		&seed.Password: a.Password,
		&seed.Balance:  a.Balance,
	} {
		if v != "" {
			*dst = v
		}
	}
	return seed
}
