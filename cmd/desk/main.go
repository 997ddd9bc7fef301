package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"preddesk/internal/calibration"
	"preddesk/internal/config"
	cronrunner "preddesk/internal/cron"
	"preddesk/internal/db"
	"preddesk/internal/debate"
	"preddesk/internal/edge"
	"preddesk/internal/estimator"
	"preddesk/internal/execution"
	"preddesk/internal/handler"
	"preddesk/internal/logger"
	"preddesk/internal/marketdata"
	"preddesk/internal/models"
	"preddesk/internal/pipeline"
	"preddesk/internal/repository"
	gormrepository "preddesk/internal/repository/gorm"
	"preddesk/internal/risk"
	"preddesk/internal/service"

	_ "preddesk/docs"
)

func main() {
	cfgPath := os.Getenv("PD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	ledger := risk.NewLedger(cfg.Risk, logger)
	seedLedger(store, ledger, logger)

	desks := []estimator.Estimator{
		estimator.NewBaseRateDesk(store, logger),
		estimator.NewMarketModelDesk(store, logger),
	}
	research := estimator.NewResearchDesk(cfg.Estimator.Research, logger)
	if research.Enabled() {
		desks = append(desks, research)
	} else {
		logger.Info("research desk disabled (no endpoint configured)")
	}

	fanout := estimator.NewFanout(desks, cfg.Estimator.Timeout, logger)
	machine := debate.NewMachine(cfg.Debate, logger)
	gate := edge.NewGate(cfg.Risk, logger)
	if !cfg.Executor.DryRun {
		logger.Warn("live execution is not implemented, falling back to paper fills")
	}
	executor := execution.NewPaperExecutor(store, ledger, logger)
	pipe := pipeline.New(store, fanout, machine, gate, ledger, executor, cfg.Debate, logger)

	provider := marketdata.NewVenueProvider(cfg.Venue, cfg.Scanner, logger)
	filter := marketdata.NewFilter(cfg.Scanner)
	accumulator := calibration.NewAccumulator(store, logger)

	scanSvc := service.NewScanService(store, provider, filter, pipe, cfg.Scanner, logger)
	resolutionSvc := service.NewResolutionService(store, provider, ledger, accumulator, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Ledger: ledger}
	healthHandler.Register(engine)
	decisionHandler := &handler.DecisionHandler{Repo: store}
	decisionHandler.Register(engine)
	negotiationHandler := &handler.NegotiationHandler{Repo: store}
	negotiationHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store}
	marketHandler.Register(engine)
	ledgerHandler := &handler.LedgerHandler{Repo: store, Ledger: ledger}
	ledgerHandler.Register(engine)
	calibrationHandler := &handler.CalibrationHandler{Repo: store, Accumulator: accumulator}
	calibrationHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("scan-cycle", cfg.Cron.ScanCycle, func(ctx context.Context) {
			if err := scanSvc.RunCycle(ctx); err != nil {
				logger.Warn("cron scan cycle failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register scan cycle failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("resolution-check", cfg.Cron.ResolutionCheck, func(ctx context.Context) {
			if err := resolutionSvc.RunCheck(ctx); err != nil {
				logger.Warn("cron resolution check failed", zap.Error(err))
			}
		}); err != nil {
			logger.Warn("cron register resolution check failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("day-rollover", cfg.Cron.DayRollover, func(ctx context.Context) {
			ledger.RollDay()
		}); err != nil {
			logger.Warn("cron register day rollover failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.Venue.StreamEnabled {
		stream := marketdata.NewPriceStream(marketdata.PriceStreamOptions{
			URL:    cfg.Venue.StreamURL,
			Logger: logger,
			Markets: func(ctx context.Context) ([]string, error) {
				status := models.MarketStatusActive
				markets, err := store.ListMarkets(ctx, repository.ListMarketsParams{
					Limit:  500,
					Status: &status,
				})
				if err != nil {
					return nil, err
				}
				ids := make([]string, 0, len(markets))
				for _, market := range markets {
					ids = append(ids, market.ID)
				}
				return ids, nil
			},
		}, store)
		go func() {
			if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("price stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// seedLedger restores in-memory exposure from persisted open positions so a
// restart does not forget what is already committed.
func seedLedger(store repository.Repository, ledger *risk.Ledger, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := models.PositionStatusOpen
	positions, err := store.ListPositions(ctx, repository.ListPositionsParams{
		Limit:  500,
		Status: &status,
	})
	if err != nil {
		logger.Warn("failed to seed ledger from open positions", zap.Error(err))
		return
	}
	committed := decimal.Zero
	for _, position := range positions {
		committed = committed.Add(position.Cost)
	}
	ledger.SetOpenPositions(len(positions), committed)
	if len(positions) > 0 {
		logger.Info("ledger seeded from open positions",
			zap.Int("positions", len(positions)),
			zap.String("committed", committed.StringFixed(2)))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
