package notifier

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPurchaseConfirmation(t *testing.T) {
	event := &models.PurchaseRecordedEvent{
		SessionID:     "cs_test_a1b2c3d4",
		CustomerEmail: "reader@example.com",
		CustomerName:  "Pat Reader",
		AmountTotal:   5899,
		Currency:      "usd",
		Items: []models.PurchasedItem{
			{ProductID: "ebook-a", Title: "Ebook A", Quantity: 1, Amount: 999},
			{ProductID: "course-b", Title: "Course B", Quantity: 1, Amount: 4900},
		},
	}

	subject, html, err := BuildPurchaseConfirmation(event, "https://store.example")
	require.NoError(t, err)

	assert.Equal(t, "Purchase Confirmation - Order A1B2C3D4", subject)
	assert.Contains(t, html, "Pat Reader")
	assert.Contains(t, html, "reader@example.com")
	assert.Contains(t, html, "Ebook A")
	assert.Contains(t, html, "https://store.example/products/course-b")
	assert.Contains(t, html, "58.99 USD")
}

func TestOrderID(t *testing.T) {
	assert.Equal(t, "A1B2C3D4", orderID("cs_test_a1b2c3d4"))
	assert.Equal(t, "SHORT", orderID("short"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "9.99 USD", formatAmount(999, "usd"))
	assert.Equal(t, "0.00 USD", formatAmount(0, ""))
	assert.Equal(t, "49.00 EUR", formatAmount(4900, "eur"))
}
