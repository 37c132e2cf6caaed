package notify

import (
	"context"
	"strings"

	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const templateSaleCompleted = "sale_completed"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Catalog catalogdomain.Repository
	Email   email.Provider
}

// SellerNotifier emails the seller once a sale has settled.
type SellerNotifier struct {
	db      *gorm.DB
	log     *zap.Logger
	catalog catalogdomain.Repository
	email   email.Provider
}

func New(p Params) paymentdomain.SaleNotifier {
	return &SellerNotifier{
		db:      p.DB,
		log:     p.Log.Named("payment.notify"),
		catalog: p.Catalog,
		email:   p.Email,
	}
}

func (n *SellerNotifier) NotifySale(ctx context.Context, sale paymentdomain.Sale) error {
	seller, err := n.catalog.FindSeller(ctx, n.db, sale.ArtistID)
	if err != nil {
		return err
	}
	if seller == nil || strings.TrimSpace(seller.Email) == "" {
		n.log.Debug("seller has no email address; skipping sale notification", zap.String("artist_id", sale.ArtistID))
		return nil
	}

	name := strings.TrimSpace(seller.DisplayName)
	if name == "" {
		name = "there"
	}
	title := sale.ItemTitle
	if strings.TrimSpace(title) == "" {
		title = sale.ItemID
	}

	return n.email.SendTemplate(ctx, []string{seller.Email}, templateSaleCompleted, map[string]interface{}{
		"seller_name":       name,
		"item_title":        title,
		"amount":            paymentdomain.FormatAmount(sale.Amount, sale.Currency),
		"fee":               paymentdomain.FormatAmount(sale.ApplicationFeeAmount, sale.Currency),
		"payout":            paymentdomain.FormatAmount(sale.ArtistPayout, sale.Currency),
		"payment_intent_id": sale.PaymentIntentID,
	})
}
