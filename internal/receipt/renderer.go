// Package receipt renders and stores payment receipt artifacts.
package receipt

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

// Data carries everything a rendered receipt shows. VerifyURL is the
// machine-verifiable link embedded on the artifact (QR payload).
type Data struct {
	OrderID       string
	PaymentID     string
	Name          string
	Email         string
	College       string
	PIDCode       string
	Amount        int64 // paise
	AmountInWords string
	VerifyURL     string
	IssuedAt      time.Time
}

// Renderer produces the artifact bytes for one receipt.
type Renderer interface {
	Render(ctx context.Context, data Data) ([]byte, error)
}

// Storage persists an artifact and returns its public URL.
type Storage interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Notifier tells the user their receipt is ready. Delivery mechanics
// (email, realtime channel) live behind this interface.
type Notifier interface {
	ReceiptReady(ctx context.Context, email, url string) error
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Receipt {{.OrderID}}</title></head>
<body>
  <h1>Incridea Payment Receipt</h1>
  <table>
    <tr><td>Order</td><td>{{.OrderID}}</td></tr>
    <tr><td>Payment</td><td>{{.PaymentID}}</td></tr>
    <tr><td>Name</td><td>{{.Name}}</td></tr>
    <tr><td>Email</td><td>{{.Email}}</td></tr>
    {{if .College}}<tr><td>College</td><td>{{.College}}</td></tr>{{end}}
    {{if .PIDCode}}<tr><td>Participant ID</td><td>{{.PIDCode}}</td></tr>{{end}}
    <tr><td>Amount</td><td>{{.Rupees}}</td></tr>
    <tr><td>Amount in words</td><td>{{.AmountInWords}}</td></tr>
    <tr><td>Issued</td><td>{{.IssuedAt.Format "02 Jan 2006 15:04 MST"}}</td></tr>
  </table>
  <p>Verify this receipt: <a href="{{.VerifyURL}}" class="qr-payload">{{.VerifyURL}}</a></p>
</body>
</html>
`))

// HTMLRenderer renders the receipt as a standalone HTML document.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(ctx context.Context, data Data) ([]byte, error) {
	if data.AmountInWords == "" {
		data.AmountInWords = AmountInWords(data.Amount)
	}
	var buf bytes.Buffer
	view := struct {
		Data
		Rupees string
	}{Data: data, Rupees: FormatRupees(data.Amount)}
	if err := receiptTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", data.OrderID, err)
	}
	return buf.Bytes(), nil
}

// FormatRupees renders paise as a rupee string, e.g. 35050 -> "₹350.50".
func FormatRupees(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
