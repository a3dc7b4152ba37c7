package sepay

import (
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/shopline-labs/payment-reconciliation/internal/config"
)

// Provider builds SEPay QR image URLs. The image service renders a bank
// transfer QR with the reference code pre-filled as the transfer memo, which
// is what the matcher later extracts from the webhook description.
type Provider struct {
	accountNumber string
	bankName      string
	baseURL       string
}

// NewProvider creates a new SEPay QR provider
func NewProvider(cfg config.QRConfig) *Provider {
	return &Provider{
		accountNumber: cfg.AccountNumber,
		bankName:      cfg.BankName,
		baseURL:       cfg.BaseURL,
	}
}

// QRImageURL returns the image URL for a transfer of amount carrying
// referenceCode as the memo.
func (p *Provider) QRImageURL(amount decimal.Decimal, referenceCode string) string {
	q := url.Values{}
	q.Set("acc", p.accountNumber)
	q.Set("bank", p.bankName)
	q.Set("amount", amount.String())
	q.Set("des", referenceCode)
	return p.baseURL + "?" + q.Encode()
}

// GetProviderName returns the provider name
func (p *Provider) GetProviderName() string {
	return "sepay"
}
