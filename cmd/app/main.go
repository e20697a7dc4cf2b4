package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"opstower/cmd/fx/db_fx"
	"opstower/cmd/fx/gateways_fx"
	"opstower/cmd/fx/logger_fx"
	"opstower/cmd/fx/payments_fx"
	"opstower/cmd/fx/sweeper_fx"
	"opstower/internal/api/controllers"
	"opstower/pkg/middleware"
)

func main() {
	_ = godotenv.Load()

	app := fx.New(
		logger_fx.Module,
		db_fx.Module,
		gateways_fx.Module,
		payments_fx.Module,
		sweeper_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Println("Starting HTTP server at ${PORT}")
				if err := engine.Run(":" + os.Getenv("PORT")); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(paymentController *controllers.PaymentController) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, paymentController)

	return r
}

func RegisterRoutes(r *gin.Engine, paymentController *controllers.PaymentController) {
	payments := r.Group("/payments")
	payments.POST("/initiate", paymentController.InitiatePayment)
	payments.GET("/status/:transactionId", paymentController.GetPaymentStatus)
	payments.POST("/webhook", paymentController.HandleWebhook)

	// Refunds move money back out; operator credentials required.
	payments.POST("/refund",
		middleware.JWTAuthMiddleware(),
		middleware.RoleMiddleware("ops"),
		paymentController.ProcessRefund)
}
