package receipt

import (
	"context"
	"io"
	"strings"
	"time"

	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	"github.com/somagouache/gouache/internal/config"
	obscontext "github.com/somagouache/gouache/internal/observability/context"
	obslogger "github.com/somagouache/gouache/internal/observability/logger"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/somagouache/gouache/internal/providers/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    paymentdomain.Repository
	Catalog catalogdomain.Repository
	PDF     pdf.Provider
	Config  config.Config
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         paymentdomain.Repository
	catalog      catalogdomain.Repository
	pdf          pdf.Provider
	storeTimeout time.Duration
}

func NewService(p Params) paymentdomain.ReceiptService {
	storeTimeout := p.Config.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.receipt"),
		repo:         p.Repo,
		catalog:      p.Catalog,
		pdf:          p.PDF,
		storeTimeout: storeTimeout,
	}
}

func (s *Service) Render(ctx context.Context, paymentIntentID string) ([]byte, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sale, err := s.repo.FindSale(storeCtx, s.db, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, paymentdomain.ErrSaleNotFound
	}

	seller, err := s.catalog.FindSeller(storeCtx, s.db, sale.ArtistID)
	if err != nil {
		return nil, err
	}

	doc, err := s.pdf.GenerateReceipt(ctx, BuildReceiptData(sale, seller))
	if err != nil {
		obslogger.WithContext(obscontext.WithPaymentIntentID(ctx, paymentIntentID), s.log).
			Error("receipt rendering failed", zap.Error(err))
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return io.ReadAll(doc)
}

// BuildReceiptData formats a settled sale for the receipt template. seller may be nil.
func BuildReceiptData(sale *paymentdomain.Sale, seller *catalogdomain.Seller) pdf.ReceiptData {
	total := paymentdomain.FormatAmount(sale.Amount, sale.Currency)
	title := sale.ItemTitle
	if strings.TrimSpace(title) == "" {
		title = sale.ItemID
	}

	data := pdf.ReceiptData{
		ReceiptNumber:   sale.ID.String(),
		PaymentIntentID: sale.PaymentIntentID,
		DatePaid:        sale.CompletedAt.UTC().Format("January 2, 2006"),
		SellerName:      sale.ArtistID,
		BuyerID:         sale.BuyerID,
		Items: []pdf.ReceiptItem{{
			Description: title,
			Kind:        string(sale.ItemType),
			Qty:         1,
			UnitPrice:   total,
			Amount:      total,
		}},
		Subtotal:     total,
		PlatformFee:  paymentdomain.FormatAmount(sale.ApplicationFeeAmount, sale.Currency),
		SellerPayout: paymentdomain.FormatAmount(sale.ArtistPayout, sale.Currency),
		Total:        total,
	}
	if seller != nil {
		if name := strings.TrimSpace(seller.DisplayName); name != "" {
			data.SellerName = name
		}
		data.SellerEmail = seller.Email
	}
	return data
}
