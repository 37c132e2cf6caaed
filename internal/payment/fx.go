package payment

import (
	"github.com/somagouache/gouache/internal/clock"
	"github.com/somagouache/gouache/internal/config"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/payment/intent"
	"github.com/somagouache/gouache/internal/payment/notify"
	"github.com/somagouache/gouache/internal/payment/receipt"
	"github.com/somagouache/gouache/internal/payment/replay"
	"github.com/somagouache/gouache/internal/payment/repository"
	"github.com/somagouache/gouache/internal/payment/settlement"
	"github.com/somagouache/gouache/internal/payment/stripe"
	"github.com/somagouache/gouache/internal/payment/verification"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) paymentdomain.Provider {
		return stripe.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.APIBase)
	}),
	fx.Provide(func(cfg config.Config, clk clock.Clock) paymentdomain.WebhookAdapter {
		return stripe.NewWebhookAdapter(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance, clk)
	}),
	fx.Provide(notify.New),
	fx.Provide(intent.NewService),
	fx.Provide(settlement.NewService),
	fx.Provide(verification.NewService),
	fx.Provide(receipt.NewService),
	replay.Module,
)
