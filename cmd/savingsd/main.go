package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"SavingsDAO/internal/api"
	"SavingsDAO/internal/badge"
	"SavingsDAO/internal/compliance"
	"SavingsDAO/internal/config"
	"SavingsDAO/internal/dao"
	"SavingsDAO/internal/model"
	"SavingsDAO/internal/notifier"
	"SavingsDAO/internal/recorder"
	"SavingsDAO/internal/scheduler"
	"SavingsDAO/internal/token"

	"github.com/spf13/pflag"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := pflag.String("config", "configs/config.yaml", "path to the YAML config file")
	faucet := pflag.StringSlice("faucet", nil, "addresses credited with demo balances in local token mode")
	faucetAmount := pflag.Uint64("faucet-amount", 100_000, "whole tokens of each asset per faucet address")
	pflag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" && !pflag.CommandLine.Changed("config") {
		*cfgPath = v
	}

	log.Println("[INFO] SavingsDAO starting...")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	pool := model.Address(cfg.Pool)

	// Local token mode: both assets live in process.
	stable := token.NewMemory(cfg.Tokens.StableSymbol, cfg.Tokens.StableDecimals)
	reward := token.NewMemory(cfg.Tokens.RewardSymbol, cfg.Tokens.RewardDecimals)
	for _, addr := range *faucet {
		user := model.Address(addr)
		for _, tok := range []*token.Memory{stable, reward} {
			amt := model.Scaled(*faucetAmount, tok.Decimals())
			if err := tok.Mint(user, amt); err != nil {
				log.Fatalf("[FATAL] faucet %s %s: %v", tok.Symbol(), user, err)
			}
			tok.Approve(user, pool, amt)
		}
		log.Printf("[INFO] faucet credited %s with %d %s and %d %s",
			user, *faucetAmount, stable.Symbol(), *faucetAmount, reward.Symbol())
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	regs := recorder.Regulations(rec)
	if err := compliance.SeedDefaults(regs); err != nil {
		log.Printf("[WARN] seed regulation texts: %v", err)
	}

	svc, err := dao.New(dao.Config{
		Owner:      model.Address(cfg.Owner),
		Pool:       pool,
		Unit:       cfg.UnitAmount(),
		Governance: cfg.GovernanceParams(),
		StatePath:  cfg.State.SnapshotFile,
	}, dao.Deps{
		Stable:      stable.As(pool),
		Reward:      reward.As(pool),
		Badge:       badge.NewLogMinter(),
		Recorder:    rec,
		Regulations: regs,
	})
	if err != nil {
		log.Fatalf("[FATAL] init treasury: %v", err)
	}
	backfillPool(svc, pool, stable, reward)
	log.Printf("[INFO] treasury ready: owner=%s pool=%s digest=%s", svc.Owner(), pool, svc.StateDigest())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	units := notifier.Units{
		StableSymbol:   cfg.Tokens.StableSymbol,
		StableDecimals: cfg.Tokens.StableDecimals,
		RewardSymbol:   cfg.Tokens.RewardSymbol,
		RewardDecimals: cfg.Tokens.RewardDecimals,
	}

	var sender notifier.Sender
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
		alerts := notifier.NewAlerts(tn, units, 64)
		svc.Subscribe(alerts)
		go alerts.Run(ctx)
	} else {
		log.Println("[WARN] telegram not configured, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, svc, sender, rec, units)
	if err := sched.RegisterAll(cfg.Schedule.SweepCron, cfg.Schedule.SnapshotCron, cfg.Schedule.ReportCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if cfg.HTTP.AdminToken == "" {
		log.Println("[WARN] http.admin_token not set, owner routes are disabled")
	}
	if cfg.HTTP.GatewayToken == "" {
		log.Printf("[WARN] http.gateway_token not set, %s is trusted from loopback only", api.CallerHeader)
	}
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: api.NewServer(svc, api.Auth{
		AdminToken:   cfg.HTTP.AdminToken,
		GatewayToken: cfg.HTTP.GatewayToken,
	}).Router()}
	go func() {
		log.Printf("[INFO] HTTP API listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] http server: %v", err)
			cancel()
		}
	}()

	log.Println("[INFO] SavingsDAO is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("[INFO] shutdown signal received, stopping...")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] SavingsDAO stopped")
}
