package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"storefront-service/internal/models"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h1>Purchase Confirmed</h1>
      <p>Thank you for your purchase{{if .CustomerName}}, {{.CustomerName}}{{end}}!</p>
      <p>Your order has been processed. Here are your items with instant access:</p>
      {{range .Items}}
      <div style="background: #f9f9f9; padding: 16px; margin: 12px 0; border-radius: 8px;">
        <h3>{{.Title}}</h3>
        {{if gt .Quantity 1}}<p><strong>Quantity:</strong> {{.Quantity}}</p>{{end}}
        <p><strong>Price:</strong> {{.AmountDisplay}}</p>
        <a href="{{.AccessURL}}">Access your product</a>
      </div>
      {{end}}
      <h3>Order Details</h3>
      <p><strong>Order ID:</strong> {{.OrderID}}</p>
      <p><strong>Email:</strong> {{.CustomerEmail}}</p>
      <p><strong>Total:</strong> {{.TotalDisplay}}</p>
      <p><strong>Date:</strong> {{.Date}}</p>
    </div>
  </body>
</html>`))

type confirmationItem struct {
	Title         string
	Quantity      int
	AmountDisplay string
	AccessURL     string
}

type confirmationData struct {
	CustomerName  string
	CustomerEmail string
	Items         []confirmationItem
	OrderID       string
	TotalDisplay  string
	Date          string
}

// BuildPurchaseConfirmation renders the subject and HTML body of a purchase
// confirmation email. Access links point back at the storefront's gated
// content pages.
func BuildPurchaseConfirmation(event *models.PurchaseRecordedEvent, baseURL string) (string, string, error) {
	data := confirmationData{
		CustomerName:  event.CustomerName,
		CustomerEmail: event.CustomerEmail,
		OrderID:       orderID(event.SessionID),
		TotalDisplay:  formatAmount(event.AmountTotal, event.Currency),
		Date:          time.Now().Format("January 2, 2006"),
	}

	for _, item := range event.Items {
		data.Items = append(data.Items, confirmationItem{
			Title:         item.Title,
			Quantity:      item.Quantity,
			AmountDisplay: formatAmount(item.Amount, event.Currency),
			AccessURL:     fmt.Sprintf("%s/products/%s", baseURL, item.ProductID),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render confirmation email: %w", err)
	}

	subject := fmt.Sprintf("Purchase Confirmation - Order %s", data.OrderID)
	return subject, buf.String(), nil
}

// orderID derives a short human-facing order id from the gateway session id
func orderID(sessionID string) string {
	if len(sessionID) > 8 {
		sessionID = sessionID[len(sessionID)-8:]
	}
	return strings.ToUpper(sessionID)
}

func formatAmount(minor int64, currency string) string {
	if currency == "" {
		currency = "usd"
	}
	return fmt.Sprintf("%.2f %s", float64(minor)/100, strings.ToUpper(currency))
}
