package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/middlewares"
	"github.com/rajendraambati/leaf-trace-ai-sub002/models"
	"github.com/rajendraambati/leaf-trace-ai-sub002/models/reports"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
	"github.com/rajendraambati/leaf-trace-ai-sub002/workflow"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("leaf-trace")

// PubSubPushEnvelope is the push-delivery wrapper Google sends to HTTP
// endpoints. Message.Data unmarshals from base64 automatically.
type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.Request.Header.Get("X-Correlation-Id"))
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-Id", cid)
		c.Next()
	}
}

func changeEventPushHandler(service *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "server.go", "changeEventPushHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusNoContent)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			config.LogError(logger, "server.go", "changeEventPushHandler", "Unmarshal body", body, err)
			c.Status(http.StatusNoContent)
			return
		}

		var m config.ChangeEventMessage
		if err := json.Unmarshal(envelope.Message.Data, &m); err != nil {
			config.LogError(logger, "server.go", "changeEventPushHandler", "Unmarshal pubsub message", envelope.Message.Data, err)
			c.Status(http.StatusNoContent)
			return
		}

		// Basic validation to avoid retry loops on poisoned messages.
		if m.BusinessId == "" {
			config.LogError(logger, "server.go", "changeEventPushHandler", "Invalid pubsub message (missing business_id)", m, fmt.Errorf("business_id required"))
			c.Status(http.StatusNoContent)
			return
		}

		service.NotifyChange(m.BusinessId)
		c.Status(http.StatusNoContent)
	}
}

func requireBusinessId(c *gin.Context) (string, bool) {
	businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context())
	if !ok || businessId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "business scope required"})
		return "", false
	}
	return businessId, true
}

func createProcurementOrderHandler(c *gin.Context) {
	var input models.NewProcurementOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := models.CreateProcurementOrder(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, order)
}

func createDispatchScheduleHandler(c *gin.Context) {
	var input models.NewDispatchSchedule
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dispatch, err := models.CreateDispatchSchedule(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dispatch)
}

func createShipmentHandler(c *gin.Context) {
	var input models.NewShipment
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shipment, err := models.CreateShipment(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, shipment)
}

func createInvoiceHandler(c *gin.Context) {
	var input models.NewInvoice
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invoice, err := models.CreateInvoice(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func createDeliveryConfirmationHandler(c *gin.Context) {
	var input models.NewDeliveryConfirmation
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delivery, err := models.CreateDeliveryConfirmation(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, delivery)
}

func getReconciliationHandler(service *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := requireBusinessId(c)
		if !ok {
			return
		}
		result, loading := service.Latest(businessId)
		if result == nil {
			c.JSON(http.StatusOK, gin.H{
				"records": []workflow.Record{},
				"stats":   workflow.Summary{},
				"loading": loading,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"records":        result.Records,
			"stats":          result.Stats,
			"loading":        loading,
			"correlation_id": result.CorrelationId,
			"generated_at":   result.GeneratedAt,
		})
	}
}

func refreshReconciliationHandler(service *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := requireBusinessId(c)
		if !ok {
			return
		}
		service.Refetch(businessId)
		c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled"})
	}
}

func exportReconciliationHandler(service *workflow.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := requireBusinessId(c)
		if !ok {
			return
		}
		_, span := tracer.Start(c.Request.Context(), "reconciliation-export")
		defer span.End()

		result, _ := service.Latest(businessId)
		if result == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no reconciliation result available yet"})
			return
		}
		f, err := reports.BuildReconciliationWorkbook(result.Records, result.Stats)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="reconciliation.xlsx"`)
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "exportReconciliationHandler", "Writing workbook", businessId, err)
		}
	}
}

func debounceFromEnv() time.Duration {
	v := strings.TrimSpace(os.Getenv("RECON_DEBOUNCE_MS"))
	if v == "" {
		return 500 * time.Millisecond
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

func corsConfig() cors.Config {
	corsCfg := cors.DefaultConfig()
	origins := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS"))
	if origins == "" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = strings.Split(origins, ",")
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Correlation-Id")
	return corsCfg
}

func main() {
	logger := config.GetLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	service := workflow.NewService(debounceFromEnv())

	r := gin.Default()
	r.Use(cors.New(corsConfig()))
	r.Use(requestContextMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/pubsub/change-events", changeEventPushHandler(service))

	authed := r.Group("/", middlewares.AuthMiddleware(), middlewares.RequireBusiness())
	authed.POST("/erp/procurement-orders", createProcurementOrderHandler)
	authed.POST("/erp/dispatch-schedules", createDispatchScheduleHandler)
	authed.POST("/erp/shipments", createShipmentHandler)
	authed.POST("/erp/invoices", createInvoiceHandler)
	authed.POST("/erp/delivery-confirmations", createDeliveryConfirmationHandler)
	authed.GET("/reconciliation", getReconciliationHandler(service))
	authed.POST("/reconciliation/refresh", refreshReconciliationHandler(service))
	authed.GET("/reconciliation/export", exportReconciliationHandler(service))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Connect AFTER the server is listening (Cloud Run needs the port open fast).
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	dispatcher := NewOutboxDispatcher(config.GetDB(), logger, service)
	go dispatcher.Run(workerCtx)

	if pubSubConfigured() && os.Getenv("PUBSUB_SUBSCRIPTION") != "" {
		go func() {
			if err := RunChangeEventWorker(workerCtx, service); err != nil {
				config.LogError(logger, "server.go", "main", "Change event worker stopped", nil, err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	workerCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	service.Close()
}
