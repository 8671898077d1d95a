package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"festreg/internal/config"
	"festreg/internal/connect"
	"festreg/internal/notify"
	"festreg/internal/remote"
	"festreg/internal/server"
	"festreg/internal/settings"
	"festreg/internal/sheetsync"
	"festreg/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sett, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}
	if sett.SheetURL() == "" && cfg.DefaultSheetURL != "" {
		if err := sett.SetSheetURL(cfg.DefaultSheetURL); err != nil {
			log.Printf("settings: seed sheet url: %v", err)
		}
	}

	notifier := notify.NewLog()
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("telegram notifier: %v", err)
		} else {
			notifier = notify.Multi(notifier, tg)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	var resolver *connect.Resolver
	st := store.New(func(err error) {
		resolver.RemoteError(err)
	})

	auth := func(ctx context.Context, c connect.Config) (string, error) {
		return remote.SignInAnonymously(ctx, c.APIKey)
	}
	dial := func(ctx context.Context, c connect.Config) (remote.Collection, error) {
		return remote.OpenFirestore(ctx, c.ProjectID, cfg.AppID, option.WithoutAuthentication())
	}

	resolver = connect.New(auth, dial, notifier, func(mode connect.Mode, coll remote.Collection) {
		switch mode {
		case connect.ModeConnected:
			if err := st.UseRemote(ctx, coll); err != nil {
				// called from the resolver itself, report from outside
				go resolver.RemoteError(err)
			}
		case connect.ModeLocal:
			st.UseLocal()
		default:
			st.UseNone()
		}
	})

	fb := cfg.Firebase()
	if override, ok := sett.ConfigOverride(); ok {
		fb = override
	}
	go resolver.Apply(ctx, fb)

	bridge := sheetsync.New(sett, st)
	httpSrv := server.New(cfg, st, resolver, bridge, sett, notifier)

	go func() {
		log.Printf("HTTP listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)

	log.Println("bye")
}
