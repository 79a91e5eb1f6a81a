package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/emberforge/realm-gov/src/config"
	"github.com/emberforge/realm-gov/src/data"
	"github.com/emberforge/realm-gov/src/gov"
	"github.com/emberforge/realm-gov/src/jobs"
	"github.com/emberforge/realm-gov/src/notify"
	"github.com/emberforge/realm-gov/src/types"
	"github.com/emberforge/realm-gov/src/webserver"
)

var allModels = []interface{}{
	&types.Community{}, &types.Member{},
	&types.Proposal{}, &types.Vote{},
	&types.Alliance{}, &types.Conflict{}, &types.CurrencyIssue{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)

	rdb := data.MustRedis(cfg.RedisURL)

	sinks := notify.Multi{notify.Log{}, notify.NewStream(rdb)}
	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		dn, err := notify.NewDiscord(cfg.DiscordToken, cfg.DiscordChannelID)
		if err != nil {
			log.Fatalf("discord: %v", err)
		}
		sinks = append(sinks, dn)
	}

	store := data.NewStore(db)
	engine := gov.NewEngine(store, store, sinks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := jobs.NewManager(
		jobs.NewSweep(engine, time.Duration(cfg.SweepIntervalSec)*time.Second),
	)
	if err := manager.Start(ctx); err != nil {
		log.Fatalf("jobs start: %v", err)
	}

	router := webserver.New(cfg, engine, rdb)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("RealmGov API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	manager.Stop(shutCtx)
	_ = httpSrv.Shutdown(shutCtx)
}
