package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/utafrali/storefront/internal/domain"
)

// FormatMoney renders an amount in minor units using the currency's standard
// scale, e.g. 250000 USD as "2500.00 USD". Unknown codes fall back to two
// decimal places.
func FormatMoney(amount int64, code string) string {
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	return decimal.New(amount, -int32(scale)).StringFixed(int32(scale)) + " " + strings.ToUpper(code)
}

var templates = template.Must(template.New("notify").Funcs(template.FuncMap{
	"money": FormatMoney,
	"mul": func(price int64, qty int) int64 {
		return price * int64(qty)
	},
}).Parse(`
{{- define "placed" -}}
Hello {{.Name}},

Thank you for your order {{.Order.ID}}. We received the following items:
{{range .Lines}}
  - {{.Name}}{{if .Size}} ({{.Size}}){{end}} x {{.Quantity}}
{{- end}}

Order total: {{money .Order.TotalAmount .Order.Currency}}
Payment method: {{.Order.PaymentMethod}}
{{- end}}

{{- define "cancelled" -}}
Hello {{.Name}},

Your order {{.Summary.OrderID}} has been cancelled.
Reason: {{.Summary.Reason}}
{{range .Summary.Lines}}
  - {{.Name}} x {{.Quantity}} @ {{money .UnitPrice $.Summary.Currency}} = {{money (mul .UnitPrice .Quantity) $.Summary.Currency}}
{{- end}}

Total at current prices: {{money .Summary.Total .Summary.Currency}}
{{- end}}
`))

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func greeting(p domain.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return "customer"
}

// OrderPlaced renders the confirmation sent after checkout.
func OrderPlaced(to domain.Principal, o *domain.Order, lines []domain.OrderItemView) (Message, error) {
	body, err := execute("placed", struct {
		Name  string
		Order *domain.Order
		Lines []domain.OrderItemView
	}{greeting(to), o, lines})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:      KindOrderPlaced,
		OrderID:   o.ID,
		Recipient: to.Email,
		Subject:   fmt.Sprintf("Order %s confirmed", o.ID),
		Body:      body,
	}, nil
}

// OrderCancelled renders the cancellation summary.
func OrderCancelled(to domain.Principal, s domain.CancellationSummary) (Message, error) {
	body, err := execute("cancelled", struct {
		Name    string
		Summary domain.CancellationSummary
	}{greeting(to), s})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:      KindOrderCancelled,
		OrderID:   s.OrderID,
		Recipient: to.Email,
		Subject:   fmt.Sprintf("Order %s cancelled", s.OrderID),
		Body:      body,
	}, nil
}
