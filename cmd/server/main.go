package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"estate/internal/calendar"
	"estate/internal/config"
	"estate/internal/db"
	"estate/internal/handlers"
	"estate/internal/jobs"
	"estate/internal/logging"
	"estate/internal/metrics"
	"estate/internal/notify"
	"estate/internal/policy"
	"estate/internal/services"
	"estate/internal/store"
	"estate/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "estate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	users := store.NewUserStore(database)
	properties := store.NewPropertyStore(database)
	contracts := store.NewContractStore(database)
	payments := store.NewPaymentStore(database)
	maintenance := store.NewMaintenanceStore(database)
	audit := store.NewAuditStore(database)
	access := store.NewAccessStore(database)

	hub := websocket.NewHub()
	sinks, natsConn, err := buildSinks(cfg, hub, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(users, sinks, notify.Options{
		Timeout:   cfg.NotifyTimeout(),
		QueueSize: cfg.Notify.QueueSize,
	}, logger.Named("notify"), m)
	dispatcher.Start(ctx)

	clock := calendar.NewClock(cfg.Location(), nil)
	core := services.Core{
		TxRunner: db.NewTxRunner(database, logger),
		Audit:    audit,
		Policy:   policy.New(access),
		Clock:    clock,
		Notifier: dispatcher,
		Metrics:  m,
		Logger:   logger,
	}
	userService := services.NewUserService(core, users, cfg.JWTSecret, cfg.TokenTTL())
	propertyService := services.NewPropertyService(core, properties, users)
	contractService := services.NewContractService(core, contracts, properties, users)
	paymentService := services.NewPaymentService(core, payments, contracts, access)
	maintenanceService := services.NewMaintenanceService(core, maintenance, properties, users)

	scheduler := jobs.NewScheduler(cfg.Location(), logger.Named("jobs"), m)
	reminders := jobs.NewReminders(payments, contracts, maintenance, contractService, dispatcher, clock, jobs.Settings{
		PaymentReminderDays:        cfg.Jobs.PaymentReminderDays,
		ContractRenewalNoticeDays:  cfg.Jobs.ContractRenewalNoticeDays,
		MaintenanceEscalationHours: cfg.Jobs.MaintenanceEscalationHours,
	}, logger.Named("jobs"))
	if err := reminders.Install(scheduler, map[string]string{
		jobs.PaymentReminders:      cfg.Jobs.PaymentRemindersSchedule,
		jobs.ContractRenewals:      cfg.Jobs.ContractRenewalsSchedule,
		jobs.MaintenanceEscalation: cfg.Jobs.EscalationSchedule,
		jobs.ContractExpiry:        cfg.Jobs.ContractExpirySchedule,
	}); err != nil {
		return err
	}
	scheduler.Start(ctx)

	handler := handlers.New(cfg, handlers.Services{
		Users:       userService,
		Properties:  propertyService,
		Contracts:   contractService,
		Payments:    paymentService,
		Maintenance: maintenanceService,
		Audit:       audit,
		Jobs:        scheduler,
	}, hub, m, registry, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("estate API listening", zap.String("addr", server.Addr), zap.String("environment", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	dispatcher.Close()
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn("nats drain failed", zap.Error(err))
		}
	}
	logger.Info("estate API stopped")
	return nil
}

// buildSinks always logs and pushes to websockets; email, SMS and NATS are
// enabled by their settings.
func buildSinks(cfg config.Config, hub *websocket.Hub, logger *zap.Logger) ([]notify.Sink, *nats.Conn, error) {
	sinks := []notify.Sink{notify.NewLogSink(logger.Named("notify")), hub}

	smtpSettings := notify.SMTPSettings{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if err := smtpSettings.Validate(); err == nil {
		sinks = append(sinks, notify.NewEmailSink(smtpSettings))
	} else if cfg.SMTP.Host != "" {
		return nil, nil, fmt.Errorf("smtp settings: %w", err)
	}

	if cfg.SMS.Endpoint != "" {
		sinks = append(sinks, notify.NewSMSSink(notify.SMSSettings{
			Endpoint:   cfg.SMS.Endpoint,
			APIKey:     cfg.SMS.APIKey,
			FromNumber: cfg.SMS.FromNumber,
		}, &http.Client{Timeout: cfg.NotifyTimeout()}))
	}

	var conn *nats.Conn
	if cfg.NATS.URL != "" {
		var err error
		conn, err = notify.ConnectNATS(cfg.NATS.URL, logger.Named("nats"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		sinks = append(sinks, notify.NewNATSSink(conn, cfg.NATS.SubjectPrefix))
	}
	return sinks, conn, nil
}
