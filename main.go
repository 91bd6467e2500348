package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"AMProject/global"
	"AMProject/logger"
	"AMProject/module/user"
	"AMProject/service/auth"
	"AMProject/service/natsx"
	"AMProject/service/storage"
	mongostore "AMProject/service/storage/mongo"
	redisstore "AMProject/service/storage/redis"
	"AMProject/service/ws"
	"AMProject/tools/ids"
)

func main() {
	cfg, err := global.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	ids.SetNodeID(cfg.NodeID)

	if err := redisstore.Init(redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		logger.Fatalf("init redis: %v", err)
	}
	defer func() {
		if err := redisstore.Close(); err != nil {
			logger.Errorf("close redis: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := mongostore.Init(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	}); err != nil {
		logger.Fatalf("init mongo: %v", err)
	}
	cancel()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongostore.Close(ctx); err != nil {
			logger.Errorf("close mongo: %v", err)
		}
	}()
	db := mongostore.GetDB()

	// NATS is optional plumbing: without it, fallback notifications are
	// still durable, they just miss the immediate live push.
	var pub storage.EventPublisher
	nats, err := natsx.Connect(natsx.Config{Servers: cfg.Nats.Servers, Name: cfg.Nats.Name})
	if err != nil {
		logger.Warnf("nats unavailable, live notification pushes disabled: %v", err)
	} else {
		defer nats.Close()
		pub = nats
	}

	validator := auth.NewValidator([]byte(cfg.JWTSecret))
	presence := storage.NewPresenceStore(redisstore.Get(), cfg.PresenceTTL)
	users := user.NewDirectory(db)
	messages := storage.NewMessageStore(db)
	notifications := storage.NewNotificationStore(db, pub)

	chatReg := ws.NewRegistry("chat")
	notifReg := ws.NewRegistry("notifications")
	defer chatReg.Close()
	defer notifReg.Close()

	chatCh := ws.NewChatChannel(ws.NewGate(validator, chatReg, presence), users, messages, notifications)
	notifCh := ws.NewNotificationChannel(ws.NewGate(validator, notifReg, presence), notifications)

	if nats != nil {
		if _, err := nats.SubscribeUserNotifications(func(n *ws.Notification) {
			if !notifCh.NotifyUser(n) {
				logger.Debugf("[main] no live notification session user=%d", n.RecipientID)
			}
		}); err != nil {
			logger.Errorf("subscribe notifications: %v", err)
		}
	}

	keepalive := ws.NewKeepAlive(cfg.PingPeriod, chatReg, notifReg)
	keepalive.Start()
	defer keepalive.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/chat", chatCh.Handle)
	r.GET("/notifications", notifCh.Handle)

	logger.Infof("[HTTP] listening on %s", cfg.ListenAddr)
	// Errorf, not Fatalf: the deferred teardown above must still run.
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Errorf("http server: %v", err)
	}
}
