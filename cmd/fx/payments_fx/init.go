package payments_fx

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"opstower/internal/api/controllers"
	"opstower/internal/gateways"
	"opstower/internal/models/db_models"
	"opstower/internal/repositories"
	"opstower/internal/services"
	mem "opstower/pkg/memcache"
)

var Module = fx.Provide(
	provideTransactionRepository,
	provideRefundRepository,
	provideWebhookLogRepository,
	provideProviderHealth,
	provideAlertService,
	provideOrchestrator,
	provideWebhookRouter,
	providePaymentController,
)

func provideTransactionRepository(db *gorm.DB) repositories.TransactionRepositoryInterface {
	return repositories.NewTransactionRepository(db)
}

func provideRefundRepository(db *gorm.DB) repositories.RefundRepositoryInterface {
	return repositories.NewRefundRepository(db)
}

func provideWebhookLogRepository(db *gorm.DB) repositories.WebhookLogRepositoryInterface {
	return repositories.NewWebhookLogRepository(db)
}

func provideProviderHealth() mem.ProviderHealthStore {
	return mem.NewProviderHealth()
}

func provideAlertService(logger *zap.Logger) services.IAlertService {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	return services.NewSMTPAlertService(services.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		OpsAddr:  os.Getenv("OPS_ALERT_EMAIL"),
		AppName:  "opstower",
	}, logger)
}

func provideOrchestrator(
	gws []gateways.Gateway,
	txns repositories.TransactionRepositoryInterface,
	refunds repositories.RefundRepositoryInterface,
	webhookLogs repositories.WebhookLogRepositoryInterface,
	health mem.ProviderHealthStore,
	alerts services.IAlertService,
	logger *zap.Logger,
) services.PaymentOrchestrator {
	return services.NewPaymentOrchestrator(gws, txns, refunds, webhookLogs, health, alerts, orchestratorConfig(), logger)
}

func orchestratorConfig() services.OrchestratorConfig {
	cfg := services.OrchestratorConfig{
		DefaultProvider: db_models.ProviderMaya,
		DefaultCurrency: "PHP",
	}

	if p := db_models.PaymentProvider(os.Getenv("PAYMENT_DEFAULT_PROVIDER")); p.Valid() {
		cfg.DefaultProvider = p
	}
	for _, raw := range strings.Split(os.Getenv("PAYMENT_FALLBACK_ORDER"), ",") {
		if p := db_models.PaymentProvider(strings.TrimSpace(raw)); p.Valid() {
			cfg.FallbackOrder = append(cfg.FallbackOrder, p)
		}
	}
	if cfg.FallbackOrder == nil {
		cfg.FallbackOrder = []db_models.PaymentProvider{db_models.ProviderMaya, db_models.ProviderGCash}
	}
	if maxAmount, err := decimal.NewFromString(os.Getenv("PAYMENT_MAX_AMOUNT")); err == nil {
		cfg.MaxAmount = maxAmount
	}
	if v, err := strconv.Atoi(os.Getenv("PAYMENT_PROVIDER_COOLDOWN_SECONDS")); err == nil && v > 0 {
		cfg.ProviderCooldown = time.Duration(v) * time.Second
	}
	return cfg
}

func provideWebhookRouter(orchestrator services.PaymentOrchestrator, logger *zap.Logger) services.WebhookRouter {
	return services.NewWebhookRouter(orchestrator, logger)
}

func providePaymentController(orchestrator services.PaymentOrchestrator, router services.WebhookRouter) *controllers.PaymentController {
	return controllers.NewPaymentController(orchestrator, router)
}
