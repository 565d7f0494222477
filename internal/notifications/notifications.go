package notifications

import "fmt"

// ProductShare is what every publish backend sends about a shared product.
type ProductShare struct {
	ProductID string
	Name      string
	Price     float64
	StockQty  int
	Category  string
	URL       string
	Text      string // ready-to-send share message
	QRCode    []byte // PNG, may be empty
}

// formatPrice renders a rupee amount without trailing zeros.
func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("₹%d", int64(p))
	}
	return fmt.Sprintf("₹%.2f", p)
}
