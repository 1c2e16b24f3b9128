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

	"hotelpro-backend/config"
	"hotelpro-backend/events"
	"hotelpro-backend/logger"
	"hotelpro-backend/repository"
	"hotelpro-backend/routes"
	"hotelpro-backend/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logger.App().WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging()); err != nil {
		return err
	}
	log := logger.App()

	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	store := repository.NewGormStore(db)

	var publisher events.Publisher = &events.LogPublisher{Logger: logger.Get("events")}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.WithField("topic", cfg.KafkaTopic).Info("publishing domain events to kafka")
	}
	defer publisher.Close()

	var notifier services.Notifier
	if cfg.SMSEnabled() {
		notifier = services.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	}
	alerts := services.NewStockAlertService(store, notifier, services.StockAlertConfig{
		Schedule:   cfg.StockAlertSchedule,
		Recipients: cfg.StockAlertTo,
	}, publisher, log)

	svc := routes.NewServices(store, services.ManualProcessor{}, services.OrderServiceConfig{
		TaxBasisPoints:    cfg.TaxBasisPoints(),
		GuestCustomerName: cfg.GuestName,
	}, publisher, log)

	r := routes.SetupRouter(routes.Options{JWTSecret: cfg.JWTSecret, CORSOrigins: cfg.CORSOrigins}, svc)
	printRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := alerts.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		alerts.Stop()
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
