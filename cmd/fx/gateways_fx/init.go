package gateways_fx

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"

	"opstower/internal/gateways"
	"opstower/internal/gateways/gcash"
	"opstower/internal/gateways/maya"
)

var Module = fx.Provide(
	provideGateways,
)

func provideGateways() []gateways.Gateway {
	mayaAdapter := maya.NewAdapter(maya.Config{
		BaseURL:       os.Getenv("MAYA_BASE_URL"),
		PublicKey:     os.Getenv("MAYA_PUBLIC_KEY"),
		SecretKey:     os.Getenv("MAYA_SECRET_KEY"),
		WebhookSecret: os.Getenv("MAYA_WEBHOOK_SECRET"),
		Timeout:       envSeconds("MAYA_TIMEOUT_SECONDS"),
	})

	gcashAdapter := gcash.NewAdapter(gcash.Config{
		BaseURL:        os.Getenv("EBANX_BASE_URL"),
		IntegrationKey: os.Getenv("EBANX_INTEGRATION_KEY"),
		WebhookSecret:  os.Getenv("EBANX_WEBHOOK_SECRET"),
		Timeout:        envSeconds("EBANX_TIMEOUT_SECONDS"),
	})

	return []gateways.Gateway{mayaAdapter, gcashAdapter}
}

func envSeconds(key string) time.Duration {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}
