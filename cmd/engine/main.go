package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/mdns/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"homecore/auth"
	"homecore/internal/config"
	"homecore/internal/db"
	"homecore/internal/device"
	"homecore/internal/dispatch"
	"homecore/internal/engine"
	"homecore/internal/metrics"
	"homecore/internal/mqtt"
	"homecore/internal/notify"
	"homecore/internal/queue"
	"homecore/internal/ratelimit"
	"homecore/internal/redis"
	"homecore/internal/retry"
	"homecore/internal/scene"
	"homecore/internal/scheduler"
	"homecore/internal/store"
	"homecore/internal/taskqueue"
	"homecore/internal/utils"
	"homecore/internal/web"
	"homecore/internal/web/api"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	utils.InitLogging(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer dbConn.Close()
	if err := dbConn.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create schema")
	}

	redisClient, err := redis.NewRedisClient(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	var st store.Store
	switch cfg.Store.Backend {
	case "postgres":
		pg := store.NewPostgres(dbConn.Pool())
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create store schema")
		}
		st = pg
	default:
		st = store.NewRedis(redisClient, cfg.Store.KeyPrefix)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := mqtt.NewConnectivity(16)
	mqttClient, err := mqtt.NewClient(cfg.MQTT.Broker, cfg.MQTT.ClientID, conn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MQTT")
	}
	defer mqttClient.Disconnect(250)
	writer := mqtt.NewWriter(mqttClient, cfg.MQTT.PublishTimeout)

	states := redis.NewDeviceStates(redisClient, cfg.Redis.StateTTL)
	directory := device.NewDirectory(states, dbConn)

	d := cfg.Dispatch
	limiter := ratelimit.New(ratelimit.Config{
		Limit:       d.RateLimitPerMinute,
		Window:      d.RateWindow,
		BurstLimit:  d.BurstLimit,
		BurstWindow: d.BurstWindow,
	}, nil)
	stats := metrics.New(reg, limiter.CurrentRate)
	rc := retry.New(d.RetryAttempts, d.RetryDelay)

	q := queue.New(queue.Config{Capacity: d.QueueCapacity, Timeout: d.CommandTimeout}, st, rc, nil)
	q.OnChange = stats.SetQueueDepth
	if err := q.Load(ctx); err != nil {
		log.Error().Err(err).Msg("failed to restore offline queue")
	}

	hub := web.NewHub()
	defer hub.Close()
	deliverers := notify.Fanout{notify.NewLogDeliverer(), hub}
	if cfg.Notification.PublishMQTT {
		deliverers = append(deliverers, mqtt.NewNotificationPublisher(mqttClient, cfg.MQTT.PublishTimeout))
	}
	notifications := notify.NewEngine(notify.Config{HistoryLimit: cfg.Notification.HistoryLimit}, st, deliverers, nil)
	notifications.OnFire = stats.NotificationFired
	if err := notifications.Load(ctx); err != nil {
		log.Error().Err(err).Msg("failed to restore notification rules")
	}

	status := scene.NewStatusBoard()
	scenes := scene.NewController(scene.Config{Grace: d.SceneGrace, TerminalTTL: d.StatusFailureTTL}, directory, writer, status)
	scenes.SetRetry(rc)
	scenes.SetPoster(notifications)

	dispatcher := dispatch.New(dispatch.Config{
		ToggleTTL:  d.StatusToggleTTL,
		FailureTTL: d.StatusFailureTTL,
		StaleAfter: d.StaleAfter,
	}, dispatch.Deps{
		Limiter:    limiter,
		Retry:      rc,
		Queue:      q,
		Scenes:     scenes,
		Directory:  directory,
		Writer:     writer,
		Poster:     notifications,
		CommandLog: dbConn,
		Metrics:    stats,
	})
	go func() {
		if err := dispatcher.Run(ctx, conn.Events()); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("dispatcher stopped")
		}
	}()

	eng := engine.NewEngine(mqttClient, states, states, notifications)
	eng.SetFallback(dispatcher)
	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start engine")
	}
	defer eng.Stop()

	taskClient := taskqueue.NewClient(cfg.Redis.Addr)
	defer taskClient.Close()
	worker := taskqueue.NewWorker(cfg.Redis.Addr, cfg.Redis.WorkerCount, dispatcher)
	if err := worker.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start task worker")
	} else {
		defer worker.Stop()
	}

	sched := scheduler.NewScheduler(dbConn, taskClient)
	if err := sched.LoadSchedules(ctx); err != nil {
		log.Error().Err(err).Msg("failed to load schedules")
	}
	sched.Start()
	defer sched.Stop()

	var authModule *auth.AuthModule
	if cfg.JWT.Secret != "" {
		authModule = auth.NewAuthModule(cfg.JWT.Secret)
	} else {
		log.Warn().Msg("jwt.secret is empty, HTTP API is unauthenticated")
	}
	webServer := web.NewWebServer(api.Dependencies{
		Dispatcher:    dispatcher,
		Queue:         q,
		Notifications: notifications,
		CommandLog:    dbConn,
	}, authModule, hub, reg)
	go func() {
		if err := webServer.Start(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			log.Error().Err(err).Msg("web server stopped")
			stop()
		}
	}()

	if cfg.MDNS.Enabled {
		if srv := startMDNSServer(cfg.MDNS.LocalName); srv != nil {
			defer srv.Close()
		}
	}

	log.Info().Int("port", cfg.App.Port).Str("agent_id", cfg.App.AgentID).Msg("homecore started")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("web server shutdown")
	}
	log.Info().Msg("shutdown complete")
}

// startMDNSServer answers mDNS queries for localName so panels can find the API
func startMDNSServer(localName string) *mdns.Conn {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve UDP4 address for mDNS")
		return nil
	}

	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve UDP6 address for mDNS")
		return nil
	}

	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		log.Error().Err(err).Msg("failed to listen on UDP4 for mDNS")
		return nil
	}

	l6, err := net.ListenUDP("udp6", addr6)
	if err != nil {
		log.Error().Err(err).Msg("failed to listen on UDP6 for mDNS")
		l4.Close()
		return nil
	}

	srv, err := mdns.Server(ipv4.NewPacketConn(l4), ipv6.NewPacketConn(l6), &mdns.Config{
		LocalNames: []string{localName},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start mDNS server")
		return nil
	}
	return srv
}
