package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/incridea/fest-backend/internal/auth"
	"github.com/incridea/fest-backend/internal/config"
	"github.com/incridea/fest-backend/internal/db"
	"github.com/incridea/fest-backend/internal/gateway"
	"github.com/incridea/fest-backend/internal/handlers"
	"github.com/incridea/fest-backend/internal/metrics"
	"github.com/incridea/fest-backend/internal/receipt"
	"github.com/incridea/fest-backend/internal/search"
	"github.com/incridea/fest-backend/internal/services"
	"github.com/incridea/fest-backend/internal/store"
	"github.com/incridea/fest-backend/internal/workers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	pg := db.Connect(cfg.PostgresDSN)
	db.Migrate(pg)
	db.Seed(pg)

	metrics.Register()

	st := store.NewGorm(pg)
	pids := services.NewPIDService(st)
	registration := services.NewRegistrationService(st, cfg.CrossCollegeExempt)
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret)
	payments := services.NewPaymentService(st, gw, pids, registration, cfg)

	receiptWorker := workers.NewReceiptWorker(
		st,
		receipt.HTMLRenderer{},
		receipt.NewHTTPStorage(cfg.StorageBaseURL),
		receipt.LogNotifier{},
		cfg.VerifyBaseURL,
	)

	es := search.Connect(cfg.ElasticURL)
	syncWorker := &search.SyncWorker{DB: pg, ES: es}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go receiptWorker.Run(ctx)
	go syncWorker.Run(ctx)
	go syncWorker.RetryDLQ(ctx)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r := gin.Default()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		reg := api.Group("/registration", auth.Middleware(cfg.JWTSecret))
		{
			reg.POST("/solo", handlers.RegisterSolo(registration))
			reg.POST("/create-team", handlers.CreateTeam(registration))
			reg.POST("/join-team", handlers.JoinTeam(registration))
			reg.POST("/confirm-team", handlers.ConfirmTeam(registration))
			reg.POST("/leave-team", handlers.LeaveTeam(registration))
			reg.POST("/delete-team", handlers.DeleteTeam(registration))
			reg.GET("/my-team/:eventId", handlers.MyTeam(registration))
		}

		pay := api.Group("/payment")
		{
			pay.POST("/initiate", auth.Middleware(cfg.JWTSecret), handlers.InitiatePayment(payments))
			pay.POST("/initiate-event", auth.Middleware(cfg.JWTSecret), handlers.InitiateEventPayment(payments))
			pay.POST("/webhook", handlers.PaymentWebhook(payments))
			pay.GET("/receipt/:orderId/verify", handlers.VerifyReceipt(payments))
		}

		admin := api.Group("/admin", auth.Middleware(cfg.JWTSecret), auth.RequireAdmin())
		{
			admin.GET("/receipt-dlq", handlers.ListReceiptDLQ(st))
			admin.POST("/receipt-dlq/:id/retry", handlers.RetryReceiptDLQ(receiptWorker))
			admin.GET("/search", handlers.AdminSearch(es))
		}
	}

	log.Printf("🧭 API running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, corsMiddleware.Handler(r)); err != nil {
		log.Fatalf("listener failed: %v", err)
	}
}
