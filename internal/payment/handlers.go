package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-checkout/internal/common"
	"github.com/noah-isme/backend-checkout/internal/pricing"
	"github.com/noah-isme/backend-checkout/internal/security"
)

// Handler exposes the storefront checkout endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// cartReq is the storefront cart body. Unknown fields, including any
// client-supplied amount, are ignored; the charge is always recomputed.
type cartReq struct {
	Items []pricing.Item `json:"items" validate:"dive"`
}

type serviceReq struct {
	ServiceID string `json:"service_id" validate:"max=255"`
}

type intentResp struct {
	ClientSecret string `json:"clientSecret"`
}

type sessionResp struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreatePaymentIntent handles POST /create-payment-intent.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Svc.CreateIntent(r.Context(), req.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, intentResp{ClientSecret: res.ClientSecret})
}

// CreateCheckoutSession handles POST /create-checkout-session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req cartReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Svc.CreateSession(r.Context(), req.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, sessionResp{ID: res.ID, URL: res.URL})
}

// CreateServiceCheckoutSession handles POST /create-service-checkout-session.
func (h *Handler) CreateServiceCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req serviceReq
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Svc.CreateServiceSession(r.Context(), req.ServiceID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, sessionResp{ID: res.ID, URL: res.URL})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if security.IsTooLarge(err) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return false
		}
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("decode request body")
		common.JSONError(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	v := h.Validate
	if v == nil {
		v = defaultValidator
	}
	if err := v.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, describeValidation(err))
		return false
	}
	return true
}

var defaultValidator = NewValidator()

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body."
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
