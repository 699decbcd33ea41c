package payment

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var pages = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Payment successful</title></head>
<body>
<main>
<h1>Thank you for your order!</h1>
{{- if .Found}}
<p>Your payment of <strong>{{.Amount}} {{.Currency}}</strong> is {{.PaymentStatus}}.</p>
{{- if .Email}}
<p>A receipt will be sent to {{.Email}}.</p>
{{- end}}
<p>Reference: <code>{{.SessionID}}</code></p>
{{- else}}
<p>Your payment was received. A confirmation will follow by email.</p>
{{- end}}
<p><a href="{{.HomeURL}}">Back to the store</a></p>
</main>
</body>
</html>
`))

func init() {
	template.Must(pages.New("cancel").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Payment cancelled</title></head>
<body>
<main>
<h1>Payment cancelled</h1>
<p>Your order was not completed and you have not been charged.</p>
<p><a href="{{.HomeURL}}">Return to the store</a></p>
</main>
</body>
</html>
`))
}

type successView struct {
	Found         bool
	SessionID     string
	Amount        string
	Currency      string
	PaymentStatus string
	Email         string
	HomeURL       string
}

// Pages renders the post-checkout confirmation pages.
type Pages struct {
	Svc     *Service
	HomeURL string
}

// Success handles GET /success. A failed lookup is logged and the page
// renders without session details.
func (p Pages) Success(w http.ResponseWriter, r *http.Request) {
	view := successView{HomeURL: p.home()}
	if id := strings.TrimSpace(r.URL.Query().Get("session_id")); id != "" && p.Svc != nil {
		session, err := p.Svc.LookupSession(r.Context(), id)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("session_id", id).Msg("checkout session lookup failed")
		} else {
			view.Found = true
			view.SessionID = session.ID
			view.Amount = FormatAmount(session.AmountTotal)
			view.Currency = strings.ToUpper(session.Currency)
			view.PaymentStatus = strings.ReplaceAll(session.PaymentStatus, "_", " ")
			view.Email = session.CustomerEmail
		}
	}
	render(w, r, "success", view)
}

// Cancel handles GET /cancel.
func (p Pages) Cancel(w http.ResponseWriter, r *http.Request) {
	render(w, r, "cancel", struct{ HomeURL string }{HomeURL: p.home()})
}

func (p Pages) home() string {
	if p.HomeURL == "" {
		return "/"
	}
	return p.HomeURL
}

func render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", name).Msg("render page")
	}
}

// FormatAmount renders minor units as a two-decimal major amount.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
