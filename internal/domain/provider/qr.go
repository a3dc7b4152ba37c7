package provider

import "github.com/shopspring/decimal"

// QRProvider turns an amount plus reference code into a scannable payment
// payload. It is a pure function boundary: image rendering happens on the
// provider's side, the core only assembles the request.
type QRProvider interface {
	// QRImageURL returns the URL of a QR image encoding a transfer of
	// amount with the reference code as the memo.
	QRImageURL(amount decimal.Decimal, referenceCode string) string

	// GetProviderName returns the provider name
	GetProviderName() string
}
