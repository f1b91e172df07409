package gateway

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// upiLink builds a upi://pay intent understood by every UPI app. The same
// string doubles as the QR payload.
func upiLink(payeeVPA, payeeName, reference string, amount decimal.Decimal, currency string) string {
	params := []string{
		"pa=" + url.QueryEscape(payeeVPA),
		"pn=" + url.QueryEscape(payeeName),
		"tr=" + url.QueryEscape(reference),
		"am=" + amount.StringFixed(2),
		"cu=" + url.QueryEscape(currency),
	}
	return fmt.Sprintf("upi://pay?%s", strings.Join(params, "&"))
}
