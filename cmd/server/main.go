package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/kfujiwara/orderdesk/internal/catalog"
	"github.com/kfujiwara/orderdesk/internal/delivery"
	"github.com/kfujiwara/orderdesk/internal/messaging"
	"github.com/kfujiwara/orderdesk/internal/orders"
	"github.com/kfujiwara/orderdesk/internal/payments"
	"github.com/kfujiwara/orderdesk/internal/refs"
	"github.com/kfujiwara/orderdesk/internal/shipments"
	"github.com/kfujiwara/orderdesk/internal/store"
	"github.com/kfujiwara/orderdesk/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orderdesk", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orderdesk", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := store.Open("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		producer = messaging.NewProducer(strings.Split(kafkaBrokers, ","))
		defer func() { _ = producer.Close() }()
	}

	validator := refs.NewValidator(db)

	orderHandler := orders.NewHandler(orders.NewOrderRepository(db, validator), producer, logger)
	paymentHandler := payments.NewHandler(
		payments.NewPaymentRepository(db, validator),
		payments.NewMethodRepository(db),
		logger,
	)
	shipmentHandler := shipments.NewHandler(
		shipments.NewShipmentRepository(db),
		shipments.NewAddressRepository(db),
		logger,
	)
	deliveryHandler := delivery.NewHandler(delivery.NewRepository(db), logger)
	catalogHandler := catalog.NewHandler(catalog.NewRepository(db), logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleUpdate))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("DELETE /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleDelete))
	mux.HandleFunc("GET /orders/{id}/status-log", telemetry.WithHTTPRoute(orderHandler.HandleStatusLog))

	mux.HandleFunc("POST /payments", telemetry.WithHTTPRoute(paymentHandler.HandleCreate))
	mux.HandleFunc("GET /payments", telemetry.WithHTTPRoute(paymentHandler.HandleList))
	mux.HandleFunc("GET /payments/{id}", telemetry.WithHTTPRoute(paymentHandler.HandleGet))
	mux.HandleFunc("PATCH /payments/{id}/status", telemetry.WithHTTPRoute(paymentHandler.HandleUpdateStatus))
	mux.HandleFunc("POST /payments/{id}/refund", telemetry.WithHTTPRoute(paymentHandler.HandleRefund))
	mux.HandleFunc("DELETE /payments/{id}", telemetry.WithHTTPRoute(paymentHandler.HandleDelete))

	mux.HandleFunc("POST /payment-methods", telemetry.WithHTTPRoute(paymentHandler.HandleCreateMethod))
	mux.HandleFunc("GET /payment-methods", telemetry.WithHTTPRoute(paymentHandler.HandleListMethods))
	mux.HandleFunc("GET /payment-methods/{id}", telemetry.WithHTTPRoute(paymentHandler.HandleGetMethod))
	mux.HandleFunc("GET /payment-methods/code/{code}", telemetry.WithHTTPRoute(paymentHandler.HandleGetMethodByCode))
	mux.HandleFunc("PATCH /payment-methods/{id}", telemetry.WithHTTPRoute(paymentHandler.HandleUpdateMethod))
	mux.HandleFunc("DELETE /payment-methods/{id}", telemetry.WithHTTPRoute(paymentHandler.HandleDeleteMethod))

	mux.HandleFunc("GET /shipments", telemetry.WithHTTPRoute(shipmentHandler.HandleList))
	mux.HandleFunc("GET /shipments/{id}", telemetry.WithHTTPRoute(shipmentHandler.HandleGet))
	mux.HandleFunc("PATCH /shipments/{id}/status", telemetry.WithHTTPRoute(shipmentHandler.HandleUpdateStatus))
	mux.HandleFunc("DELETE /shipments/{id}", telemetry.WithHTTPRoute(shipmentHandler.HandleDelete))

	mux.HandleFunc("POST /shipping-addresses", telemetry.WithHTTPRoute(shipmentHandler.HandleCreateAddress))
	mux.HandleFunc("GET /shipping-addresses", telemetry.WithHTTPRoute(shipmentHandler.HandleListAddresses))
	mux.HandleFunc("GET /shipping-addresses/{id}", telemetry.WithHTTPRoute(shipmentHandler.HandleGetAddress))
	mux.HandleFunc("PATCH /shipping-addresses/{id}", telemetry.WithHTTPRoute(shipmentHandler.HandleUpdateAddress))
	mux.HandleFunc("DELETE /shipping-addresses/{id}", telemetry.WithHTTPRoute(shipmentHandler.HandleDeleteAddress))

	mux.HandleFunc("POST /delivery-methods", telemetry.WithHTTPRoute(deliveryHandler.HandleCreateMethod))
	mux.HandleFunc("GET /delivery-methods", telemetry.WithHTTPRoute(deliveryHandler.HandleListMethods))
	mux.HandleFunc("GET /delivery-methods/{id}", telemetry.WithHTTPRoute(deliveryHandler.HandleGetMethod))
	mux.HandleFunc("GET /delivery-methods/code/{code}", telemetry.WithHTTPRoute(deliveryHandler.HandleGetMethodByCode))
	mux.HandleFunc("PATCH /delivery-methods/{id}", telemetry.WithHTTPRoute(deliveryHandler.HandleUpdateMethod))
	mux.HandleFunc("DELETE /delivery-methods/{id}", telemetry.WithHTTPRoute(deliveryHandler.HandleDeleteMethod))
	mux.HandleFunc("POST /delivery-methods/{id}/slots", telemetry.WithHTTPRoute(deliveryHandler.HandleCreateSlot))
	mux.HandleFunc("GET /delivery-methods/{id}/slots", telemetry.WithHTTPRoute(deliveryHandler.HandleListSlots))
	mux.HandleFunc("GET /delivery-slots/{id}", telemetry.WithHTTPRoute(deliveryHandler.HandleGetSlot))
	mux.HandleFunc("PATCH /delivery-slots/{id}", telemetry.WithHTTPRoute(deliveryHandler.HandleUpdateSlot))
	mux.HandleFunc("DELETE /delivery-slots/{id}", telemetry.WithHTTPRoute(deliveryHandler.HandleDeleteSlot))

	mux.HandleFunc("POST /shops", telemetry.WithHTTPRoute(catalogHandler.HandleCreateShop))
	mux.HandleFunc("GET /shops", telemetry.WithHTTPRoute(catalogHandler.HandleListShops))
	mux.HandleFunc("GET /shops/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGetShop))
	mux.HandleFunc("GET /shops/code/{code}", telemetry.WithHTTPRoute(catalogHandler.HandleGetShopByCode))
	mux.HandleFunc("PATCH /shops/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleUpdateShop))
	mux.HandleFunc("DELETE /shops/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleDeleteShop))
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleListProducts))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGetProduct))
	mux.HandleFunc("GET /sites/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGetSite))
	mux.HandleFunc("GET /users/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGetUser))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "orderdesk",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orderdesk server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
