package storefront

import (
	"net/http"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/handler"
	"github.com/dukerupert/boutique/internal/middleware"
	"github.com/dukerupert/boutique/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	handler.RegisterStructValidation(checkoutRequestValidation, checkoutRequest{})
}

// CheckoutHandler starts payment for the acting principal's cart.
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	successURL      string
	cancelURL       string
}

// NewCheckoutHandler creates a new checkout handler. successURL and cancelURL
// are where the hosted payment page sends the customer back to.
func NewCheckoutHandler(checkoutService service.CheckoutService, successURL, cancelURL string) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		successURL:      successURL,
		cancelURL:       cancelURL,
	}
}

type checkoutRequest struct {
	BillingEntity  string `json:"billing_entity" form:"billing_entity" validate:"omitempty,oneof=personal organization"`
	OrganizationID string `json:"organization_id" form:"organization_id" validate:"omitempty,uuid"`
}

// checkoutRequestValidation requires an organization id exactly when an
// organization is billed.
func checkoutRequestValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(checkoutRequest)

	switch {
	case req.BillingEntity == string(domain.BillingOrganization) && req.OrganizationID == "":
		sl.ReportError(req.OrganizationID, "organization_id", "OrganizationID", "required", "")
	case req.BillingEntity != string(domain.BillingOrganization) && req.OrganizationID != "":
		sl.ReportError(req.OrganizationID, "organization_id", "OrganizationID", "excluded_unless", "")
	}
}

func (req checkoutRequest) billingEntity() domain.BillingEntity {
	if req.BillingEntity == string(domain.BillingOrganization) {
		// Validated as a UUID above.
		return domain.OrganizationBilling(uuid.MustParse(req.OrganizationID))
	}
	return domain.PersonalBilling()
}

type checkoutResponse struct {
	URL       string          `json:"url"`
	SessionID string          `json:"session_id"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Create handles POST /api/checkout
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := handler.DecodeJSON(r, "checkout.create", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.run(r, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, checkoutResponse{
		URL:       result.RedirectURL,
		SessionID: result.SessionID,
		Subtotal:  result.Subtotal,
	})
}

// Submit handles POST /checkout from a plain HTML form and redirects the
// browser to the hosted payment page.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("checkout.submit", "Invalid form data"))
		return
	}

	req := checkoutRequest{
		BillingEntity:  r.PostFormValue("billing_entity"),
		OrganizationID: r.PostFormValue("organization_id"),
	}
	if err := handler.Validate("checkout.submit", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.run(r, req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	http.Redirect(w, r, result.RedirectURL, http.StatusSeeOther)
}

func (h *CheckoutHandler) run(r *http.Request, req checkoutRequest) (*service.CheckoutResult, error) {
	owner, err := principal(r)
	if err != nil {
		return nil, err
	}

	result, err := h.checkoutService.RunCheckout(r.Context(), service.CheckoutParams{
		Owner:         owner,
		BillingEntity: req.billingEntity(),
		SuccessURL:    h.successURL,
		CancelURL:     h.cancelURL,
	})
	if err != nil {
		return nil, err
	}

	middleware.GetLogger(r.Context()).Info("checkout redirect issued",
		"session_id", result.SessionID,
		"subtotal", result.Subtotal.StringFixed(2))
	return result, nil
}
