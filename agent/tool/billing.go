package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

const billingUnavailableMessage = "Billing information is currently unavailable. Please try again later or contact support."

type priceEntry struct {
	key   string
	price decimal.Decimal
}

// priceTable is ordered so the unknown-product message lists keys stably.
var priceTable = []priceEntry{
	{key: "basic_plan", price: decimal.RequireFromString("9.99")},
	{key: "pro_plan", price: decimal.RequireFromString("29.99")},
	{key: "enterprise_plan", price: decimal.RequireFromString("99.99")},
	{key: "addon_storage", price: decimal.RequireFromString("5.00")},
	{key: "addon_users", price: decimal.RequireFromString("10.00")},
}

func (g *Gateway) searchBillingInfo(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return contractx.ToolResult{Error: err.Error()}, nil
	}
	if g.deps.Billing == nil {
		return contractx.ToolResult{Result: billingUnavailableMessage}, nil
	}

	sessionID, _ := contractx.SessionIDFrom(ctx)
	text, err := g.deps.Billing.Resolve(ctx, sessionID, query)
	if err != nil {
		if errors.Is(err, contractx.ErrUnavailable) {
			return contractx.ToolResult{Result: billingUnavailableMessage}, nil
		}
		return contractx.ToolResult{}, fmt.Errorf("error retrieving billing information: %w", err)
	}
	return contractx.ToolResult{Result: text}, nil
}

func calculatePrice(args map[string]any) (contractx.ToolResult, error) {
	product, err := stringArg(args, "product")
	if err != nil {
		return contractx.ToolResult{Error: err.Error()}, nil
	}
	quantity, err := intArg(args, "quantity", 1)
	if err != nil {
		return contractx.ToolResult{Error: err.Error()}, nil
	}
	return contractx.ToolResult{Result: PriceQuote(product, quantity)}, nil
}

// PriceQuote prices quantity units of product from the fixed price table.
func PriceQuote(product string, quantity int) string {
	if quantity < 1 {
		return fmt.Sprintf("Quantity must be at least 1, got %d.", quantity)
	}

	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(product)), " ", "_")
	for _, entry := range priceTable {
		if entry.key != key {
			continue
		}
		total := entry.price.Mul(decimal.NewFromInt(int64(quantity)))
		return fmt.Sprintf("Price for %dx %s: $%s ($%s per unit)",
			quantity, product, total.StringFixed(2), entry.price.StringFixed(2))
	}

	keys := make([]string, 0, len(priceTable))
	for _, entry := range priceTable {
		keys = append(keys, entry.key)
	}
	return fmt.Sprintf("Product '%s' not found. Available products: %s", product, strings.Join(keys, ", "))
}
