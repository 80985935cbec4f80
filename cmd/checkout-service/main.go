package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/stondral/marketplace-checkout/internal/address"
	"github.com/stondral/marketplace-checkout/internal/checkout"
	"github.com/stondral/marketplace-checkout/internal/config"
	"github.com/stondral/marketplace-checkout/internal/db"
	"github.com/stondral/marketplace-checkout/internal/events"
	"github.com/stondral/marketplace-checkout/internal/gateway"
	"github.com/stondral/marketplace-checkout/internal/httpx"
	"github.com/stondral/marketplace-checkout/internal/valuation"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if err := db.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool := db.MustOpen(ctx, cfg.PostgresDSN)
	defer pool.Close()

	repo := checkout.NewPGRepo(pool)
	stock := checkout.NewPGStockStore(pool)
	addresses := address.NewPGRepo(pool)
	valuator := valuation.NewClient(cfg.ValuatorBaseURL)
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewaySecret)

	var pub checkout.Publisher
	if cfg.RabbitURL != "" {
		conn, err := events.Dial(cfg.RabbitURL)
		if err != nil {
			log.Printf("[events] rabbitmq unavailable, continuing without publisher: %v", err)
		} else {
			defer conn.Close()
			p, err := events.NewPublisher(conn)
			if err != nil {
				log.Printf("[events] publisher init failed, continuing without: %v", err)
			} else {
				defer p.Close()
				pub = p
			}
		}
	}

	svc := checkout.NewService(repo, stock, addresses, valuator, gw, pub, cfg.Currency)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.POST("/checkout", createCheckoutHandler(svc))
	r.POST("/checkout/payment-intent", createPaymentIntentHandler(svc))
	r.POST("/checkout/payment-finalize", finalizePaymentHandler(svc))

	log.Printf("checkout-service listening on %s", cfg.ListenAddr)
	log.Fatal(r.Run(cfg.ListenAddr))
}
