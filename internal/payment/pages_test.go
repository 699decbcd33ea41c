package payment

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-checkout/internal/pricing"
)

func TestSuccessPageShowsSession(t *testing.T) {
	fp := &fakeProvider{session: SessionResult{
		ID:            "cs_ok",
		AmountTotal:   45000,
		Currency:      "usd",
		PaymentStatus: "paid",
		CustomerEmail: "<b>buyer@example.com</b>",
	}}
	p := Pages{Svc: newTestService(fp, pricing.PolicyStrict), HomeURL: "https://shop.example"}

	rr := httptest.NewRecorder()
	p.Success(rr, httptest.NewRequest(http.MethodGet, "/success?session_id=cs_ok", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	require.Contains(t, body, "450.00 USD")
	require.Contains(t, body, "&lt;b&gt;buyer@example.com&lt;/b&gt;")
	require.NotContains(t, body, "<b>buyer")
	require.Equal(t, []string{"cs_ok"}, fp.lookups)
}

func TestSuccessPageRendersWhenLookupFails(t *testing.T) {
	fp := &fakeProvider{err: errors.New("no such session")}
	p := Pages{Svc: newTestService(fp, pricing.PolicyStrict)}

	rr := httptest.NewRecorder()
	p.Success(rr, httptest.NewRequest(http.MethodGet, "/success?session_id=cs_missing", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Your payment was received.")

	rr = httptest.NewRecorder()
	p.Success(rr, httptest.NewRequest(http.MethodGet, "/success", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, fp.lookups, 1)
}

func TestCancelPage(t *testing.T) {
	rr := httptest.NewRecorder()
	Pages{}.Cancel(rr, httptest.NewRequest(http.MethodGet, "/cancel", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Payment cancelled")
	require.Contains(t, rr.Body.String(), `href="/"`)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "0.05", FormatAmount(5))
	require.Equal(t, "1999.00", FormatAmount(199900))
}
