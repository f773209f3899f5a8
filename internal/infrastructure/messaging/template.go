package messaging

import (
	"digimart/internal/domain"
	"strconv"
	"strings"
)

// Template is message text with named substitution points:
// {productTitle}, {orderNumber}, {amount}, {contact} and {accessURL}.
type Template string

const (
	AdminPurchaseRequest Template = "🚀 *DIGIMART PURCHASE REQUEST*\n\n" +
		"📦 *Item:* {productTitle}\n" +
		"💰 *Price:* ${amount}\n" +
		"🆔 *Order ID:* {orderNumber}\n" +
		"📱 *Customer:* {contact}\n\n" +
		"_Hello! I want to purchase this. Please provide payment details._"

	CustomerPaymentVerified Template = "✅ *Payment Verified*\n" +
		"Order ID: {orderNumber}\n\n" +
		"Your digital files for {productTitle} are now UNLOCKED! Access them here: {accessURL}"

	AdminPendingReminder Template = "⏰ *ORDER STILL PENDING*\n\n" +
		"🆔 *Order ID:* {orderNumber}\n" +
		"📦 *Item:* {productTitle}\n" +
		"💰 *Amount:* ${amount}\n" +
		"📱 *Customer:* {contact}"
)

// Composer fills templates. BaseURL is the storefront root used for {accessURL}.
type Composer struct {
	BaseURL string
}

func (c Composer) Compose(t Template, o domain.Order) string {
	return strings.NewReplacer(
		"{productTitle}", o.ProductName,
		"{orderNumber}", o.OrderNumber,
		"{amount}", FormatAmount(o.Amount),
		"{contact}", o.Contact,
		"{accessURL}", c.AccessURL(o.OrderNumber),
	).Replace(string(t))
}

// AccessURL is where a customer views an order's entitlement.
func (c Composer) AccessURL(orderNumber string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/orders/" + orderNumber
}

func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
