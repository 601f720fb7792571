package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dukerupert/boutique/internal/domain"
	"github.com/dukerupert/boutique/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	successURL = "https://shop.example.com/dashboard/orders?checkout=success"
	cancelURL  = "https://shop.example.com/panier"
)

func TestCheckoutHandler_Create(t *testing.T) {
	svc := &mockCheckoutService{}
	h := NewCheckoutHandler(svc, successURL, cancelURL)

	rec := httptest.NewRecorder()
	h.Create(rec, withPrincipal(newJSONRequest(http.MethodPost, "/api/checkout", `{}`), guestPrincipal))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp checkoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://pay.example.com/session/cs_1", resp.URL)
	assert.Equal(t, "cs_1", resp.SessionID)

	require.Len(t, svc.calls, 1)
	assert.Equal(t, guestPrincipal, svc.calls[0].Owner)
	assert.Equal(t, domain.PersonalBilling(), svc.calls[0].BillingEntity)
	assert.Equal(t, successURL, svc.calls[0].SuccessURL)
	assert.Equal(t, cancelURL, svc.calls[0].CancelURL)
}

func TestCheckoutHandler_Create_Organization(t *testing.T) {
	orgID := uuid.New()
	svc := &mockCheckoutService{}
	h := NewCheckoutHandler(svc, successURL, cancelURL)

	body := `{"billing_entity":"organization","organization_id":"` + orgID.String() + `"}`
	rec := httptest.NewRecorder()
	h.Create(rec, withPrincipal(newJSONRequest(http.MethodPost, "/api/checkout", body), userPrincipal))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.calls, 1)
	assert.Equal(t, domain.OrganizationBilling(orgID), svc.calls[0].BillingEntity)
}

func TestCheckoutHandler_Create_InvalidRequests(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "organization without id", body: `{"billing_entity":"organization"}`, field: "organization_id"},
		{name: "id without organization", body: `{"organization_id":"` + uuid.NewString() + `"}`, field: "organization_id"},
		{name: "bad id", body: `{"billing_entity":"organization","organization_id":"acme"}`, field: "organization_id"},
		{name: "unknown entity", body: `{"billing_entity":"company"}`, field: "billing_entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{}
			h := NewCheckoutHandler(svc, successURL, cancelURL)

			rec := httptest.NewRecorder()
			h.Create(rec, withPrincipal(newJSONRequest(http.MethodPost, "/api/checkout", tt.body), userPrincipal))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.calls)

			var resp struct {
				Error struct {
					Fields map[string]string `json:"fields"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Contains(t, resp.Error.Fields, tt.field)
		})
	}
}

func TestCheckoutHandler_Create_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name: "stock conflict",
			err: domain.ValidationFailed([]domain.Violation{
				{Kind: domain.ViolationInsufficientStock, ProductID: "p1", Title: "Mug", Requested: 2, Available: 1},
			}),
			wantStatus: http.StatusConflict,
			wantKind:   "validation_failed",
		},
		{
			name:       "empty cart",
			err:        domain.ValidationFailed([]domain.Violation{{Kind: domain.ViolationInvalidTotal}}),
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation_failed",
		},
		{
			name:       "payment processor down",
			err:        domain.NewCheckoutError(domain.KindPaymentSessionFailed, context.DeadlineExceeded),
			wantStatus: http.StatusPaymentRequired,
			wantKind:   "payment_session_creation_failed",
		},
		{
			name:       "not a member",
			err:        domain.NewCheckoutError(domain.KindForbiddenBillingEntity, nil),
			wantStatus: http.StatusForbidden,
			wantKind:   "forbidden_billing_entity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCheckoutService{
				runCheckoutFunc: func(context.Context, service.CheckoutParams) (*service.CheckoutResult, error) {
					return nil, tt.err
				},
			}
			h := NewCheckoutHandler(svc, successURL, cancelURL)

			rec := httptest.NewRecorder()
			h.Create(rec, withPrincipal(newJSONRequest(http.MethodPost, "/api/checkout", `{}`), guestPrincipal))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp struct {
				Error struct {
					Kind string `json:"kind"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantKind, resp.Error.Kind)
		})
	}
}

func TestCheckoutHandler_Submit(t *testing.T) {
	t.Run("redirects to the payment page", func(t *testing.T) {
		svc := &mockCheckoutService{}
		h := NewCheckoutHandler(svc, successURL, cancelURL)

		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(url.Values{"billing_entity": {"personal"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.Submit(rec, withPrincipal(req, guestPrincipal))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://pay.example.com/session/cs_1", rec.Header().Get("Location"))
	})

	t.Run("failure is plain text", func(t *testing.T) {
		svc := &mockCheckoutService{
			runCheckoutFunc: func(context.Context, service.CheckoutParams) (*service.CheckoutResult, error) {
				return nil, domain.ValidationFailed([]domain.Violation{{Kind: domain.ViolationInvalidTotal}})
			},
		}
		h := NewCheckoutHandler(svc, successURL, cancelURL)

		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.Submit(rec, withPrincipal(req, guestPrincipal))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Your cart is empty")
	})

	t.Run("no principal", func(t *testing.T) {
		svc := &mockCheckoutService{}
		h := NewCheckoutHandler(svc, successURL, cancelURL)

		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.Submit(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.calls)
	})
}
