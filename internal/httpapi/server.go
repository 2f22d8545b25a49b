// Package httpapi serves the booking engine as a JSON API over gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run serves the HTTP API until ctx is cancelled.
func Run(ctx context.Context, cfg Config, bookingService *booking.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if bookingService == nil {
		return fmt.Errorf("booking service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: NewRouter(cfg, bookingService, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter builds the gin engine with every booking route mounted.
func NewRouter(cfg Config, bookingService *booking.Service, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := &httpHandler{
		logger:         logger,
		bookingService: bookingService,
		timeout:        cfg.RequestTimeout,
	}

	tenant := router.Group("/api/tenants/:tenantId")
	tenant.POST("/bookings", handler.handleCreateBooking)
	tenant.POST("/bookings/:bookingId/cancel", handler.handleCancelBooking)
	tenant.POST("/bookings/:bookingId/complete", handler.handleCompleteBooking)
	tenant.GET("/courts/available", handler.handleAvailableCourt)
	tenant.GET("/courts/:courtId/slots", handler.handleAvailableSlots)
	tenant.GET("/schedules/available", handler.handleAvailableSchedules)
	tenant.GET("/students/:studentId/balance", handler.handleBalance)
	tenant.GET("/students/:studentId/balance/validation", handler.handleValidateBalance)
	tenant.POST("/payments", handler.handleRecordPayment)

	return router
}
