package pages

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

type CheckoutPageProps struct {
	Title         string
	TransactionID string
	OrderID       string
	Amount        string
	Currency      string
	Status        string
	FailureReason string
	QRCode        string
	DeepLink      string
	ExpiresAt     time.Time
	StatusURL     string
}

// CheckoutPage shows the UPI payload for a pending payment and polls its
// status until it settles or expires.
func CheckoutPage(props CheckoutPageProps) templ.Component {
	return publicLayout(props.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		parts := []templ.Component{
			orderSummary(props.OrderID, props.Currency, props.Amount),
			statusBadge(props.Status),
		}
		switch props.Status {
		case "PENDING":
			parts = append(parts,
				text("<p class=\"muted\">Scan or open in any UPI app to pay.</p>"),
				qrBlock(props.QRCode),
				deepLinkButton(props.DeepLink),
				countdown(props.ExpiresAt),
				statusPoller(props.StatusURL),
			)
		case "SUCCESS":
			parts = append(parts, text("<p>Payment received. Thank you!</p>"))
		case "FAILED":
			parts = append(parts, failureMessage(props.FailureReason))
		}
		parts = append(parts, reference(props.TransactionID))

		for _, part := range parts {
			if err := part.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	}))
}

// text renders trusted static markup.
func text(html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	})
}

func orderSummary(orderID, currency, amount string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<h1>Order %s</h1><div class=\"amount\">%s %s</div>",
			templ.EscapeString(orderID), templ.EscapeString(currency), templ.EscapeString(amount))
		return err
	})
}

func statusBadge(status string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		s := templ.EscapeString(status)
		_, err := fmt.Fprintf(w, "<span id=\"status\" class=\"status status-%s\">%s</span>", s, s)
		return err
	})
}

func qrBlock(payload string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if payload == "" {
			return nil
		}
		p := templ.EscapeString(payload)
		_, err := fmt.Fprintf(w, "<div class=\"qr\" id=\"qr\" data-payload=\"%s\">%s</div>", p, p)
		return err
	})
}

// deepLinkButton takes a upi:// link, which templ.URL would reject as an
// unsafe scheme, so the value is only attribute-escaped.
func deepLinkButton(link string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if link == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, "<a class=\"btn\" href=\"%s\">Pay with UPI app</a>", templ.EscapeString(link))
		return err
	})
}

func countdown(expiresAt time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p class=\"muted\">Expires in <span id=\"countdown\" data-expires=\"%s\"></span></p>",
			expiresAt.UTC().Format(time.RFC3339))
		return err
	})
}

func statusPoller(statusURL string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<script>%s</script>", pollScript(statusURL))
		return err
	})
}

func failureMessage(reason string) templ.Component {
	msg := "This payment attempt did not complete."
	if reason == "expired" {
		msg = "This payment window has expired."
	}
	return text("<p>" + templ.EscapeString(msg) + "</p>")
}

func reference(transactionID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p class=\"muted\">Reference %s</p>", templ.EscapeString(transactionID))
		return err
	})
}

func pollScript(statusURL string) string {
	return fmt.Sprintf(`(function(){
var el=document.getElementById("countdown");var end=new Date(el.dataset.expires).getTime();
function tick(){var s=Math.max(0,Math.floor((end-Date.now())/1000));el.textContent=Math.floor(s/60)+"m "+(s%%60)+"s";}
tick();setInterval(tick,1000);
setInterval(function(){fetch(%q).then(function(r){return r.json()}).then(function(d){if(d.status&&d.status!=="PENDING"){location.reload()}})},5000);
})();`, statusURL)
}
