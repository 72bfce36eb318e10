package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/gcottom/go-zaplog"
	"github.com/gcottom/qgin/qgin"
	"github.com/gin-contrib/cors"
	"github.com/telsabots/ytgrab/config"
	"github.com/telsabots/ytgrab/internal/bot"
	"github.com/telsabots/ytgrab/internal/handlers"
	"github.com/telsabots/ytgrab/internal/session"
	"github.com/telsabots/ytgrab/internal/telegram"
	"github.com/telsabots/ytgrab/internal/transfer"
	"github.com/telsabots/ytgrab/pkg/youtube"
	"go.uber.org/zap"
)

func init() {
	c := color.New(color.FgCyan)
	c.Print(`
:::   ::: ::::::::::: ::::::::  :::::::::      :::     :::::::::
:+:   :+:     :+:    :+:    :+: :+:    :+:   :+: :+:   :+:    :+:
 +:+ +:+      +:+    +:+        +:+    +:+  +:+   +:+  +:+    +:+
  +#++:       +#+    :#:        +#++:++#:  +#++:++#++: +#++:++#+
   +#+        +#+    +#+   +#+# +#+    +#+ +#+     +#+ +#+    +#+
   #+#        #+#    #+#    #+# #+#    #+# #+#     #+# #+#    #+#
   ###        ###     ########  ###    ### ###     ### #########
|------------------------------------------------------------------|
|              YouTube Download Relay Bot v1.0.0                   |
|------------------------------------------------------------------|
   `)
}

func main() {
	if err := RunServer(); err != nil {
		panic(err)
	}
}

func RunServer() error {
	ctx := zaplog.CreateAndInject(context.Background())
	zaplog.InfoC(ctx, "starting download relay bot...")

	cfg, err := config.LoadConfigFromFile("")
	if err != nil {
		zaplog.ErrorC(ctx, "failed to load config", zap.Error(err))
		return err
	}

	zaplog.InfoC(ctx, "creating telegram client...")
	transport := telegram.NewClient(cfg.BotToken)
	if cfg.WebhookBaseURL != "" {
		if err = transport.SetWebhook(ctx, cfg.WebhookBaseURL+cfg.WebhookPath, cfg.WebhookSecret); err != nil {
			zaplog.ErrorC(ctx, "failed to register webhook", zap.Error(err))
			return err
		}
		zaplog.InfoC(ctx, "webhook registered", zap.String("url", cfg.WebhookBaseURL+cfg.WebhookPath))
	}

	zaplog.InfoC(ctx, "creating bot service...")
	botService := &bot.Service{
		Store:           session.NewStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		Resolver:        youtube.NewClient(),
		Pipeline:        transfer.NewPipeline(cfg.TempDir, cfg.MaxConcurrentTransfers),
		Transport:       transport,
		Gate:            &bot.ChannelGate{Channels: cfg.RequiredChannels, Admins: cfg.AdminIDs, Checker: transport},
		Config:          cfg,
		ResolveTimeout:  time.Duration(cfg.ResolveTimeoutSeconds) * time.Second,
		TransferTimeout: time.Duration(cfg.TransferTimeoutMinutes) * time.Minute,
	}
	dispatcher := bot.NewDispatcher(botService, 100)

	zaplog.InfoC(ctx, "creating gin engine...")
	ginws := qgin.NewGinEngine(&ctx, &qgin.Config{
		UseContextMW:       true,
		UseLoggingMW:       true,
		UseRequestIDMW:     false,
		InjectRequestIDCTX: false,
		LogRequestID:       false,
		ProdMode:           true,
	})
	ginws.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	zaplog.InfoC(ctx, "setting up routes...")
	handlers.SetupRoutes(ginws, dispatcher, cfg.WebhookPath, cfg.WebhookSecret)

	zaplog.InfoC(ctx, "starting update dispatcher...")
	go dispatcher.Run()

	zaplog.InfoC(ctx, "setup complete, starting server...")
	zaplog.InfoC(ctx, "now listening and serving", zap.Int("port", cfg.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), ginws)
}
