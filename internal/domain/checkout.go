package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// BILLING ENTITY
// =============================================================================

// BillingKind distinguishes who pays for a checkout.
type BillingKind string

const (
	BillingPersonal     BillingKind = "personal"
	BillingOrganization BillingKind = "organization"
)

// BillingEntity is the party billed for a checkout: the acting principal
// personally, or an organization the principal belongs to.
type BillingEntity struct {
	Kind           BillingKind
	OrganizationID uuid.UUID
}

// PersonalBilling bills the acting principal.
func PersonalBilling() BillingEntity {
	return BillingEntity{Kind: BillingPersonal}
}

// OrganizationBilling bills the given organization.
func OrganizationBilling(id uuid.UUID) BillingEntity {
	return BillingEntity{Kind: BillingOrganization, OrganizationID: id}
}

// IsOrganization reports whether an organization is billed.
func (b BillingEntity) IsOrganization() bool {
	return b.Kind == BillingOrganization
}

func (b BillingEntity) String() string {
	if b.IsOrganization() {
		return "organization:" + b.OrganizationID.String()
	}
	return string(BillingPersonal)
}

// =============================================================================
// CHECKOUT REQUEST / SESSION
// =============================================================================

// CheckoutRequest is what the initiator hands to the payment processor.
// Every line carries a server-resolved unit price.
type CheckoutRequest struct {
	Owner         Principal
	LineItems     []LineItem
	BillingEntity BillingEntity
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the processor's answer: a session id and the hosted
// payment page the customer is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// =============================================================================
// CHECKOUT ERRORS
// =============================================================================

// CheckoutErrorKind classifies a failed checkout attempt.
type CheckoutErrorKind string

const (
	KindMalformedCart          CheckoutErrorKind = "malformed_cart"
	KindValidationFailed       CheckoutErrorKind = "validation_failed"
	KindCartLookupFailed       CheckoutErrorKind = "cart_lookup_failed"
	KindCatalogLookupFailed    CheckoutErrorKind = "catalog_lookup_failed"
	KindPaymentSessionFailed   CheckoutErrorKind = "payment_session_creation_failed"
	KindForbiddenBillingEntity CheckoutErrorKind = "forbidden_billing_entity"
)

// ViolationKind classifies one reason a cart failed validation.
type ViolationKind string

const (
	ViolationProductsUnavailable ViolationKind = "products_unavailable"
	ViolationInsufficientStock   ViolationKind = "insufficient_stock"
	ViolationInvalidTotal        ViolationKind = "empty_or_invalid_total"
)

// Violation is one validation failure. Which fields are set depends on Kind.
type Violation struct {
	Kind ViolationKind

	// ProductIDs is set for products_unavailable.
	ProductIDs []string

	// ProductID, Title, Requested and Available are set for insufficient_stock.
	ProductID string
	Title     string
	Requested int
	Available int
}

// Message renders the violation for customers.
func (v Violation) Message() string {
	switch v.Kind {
	case ViolationProductsUnavailable:
		return fmt.Sprintf("Some products are no longer available: %s", strings.Join(v.ProductIDs, ", "))
	case ViolationInsufficientStock:
		return fmt.Sprintf("Only %d left in stock for %s (requested %d)", v.Available, v.Title, v.Requested)
	case ViolationInvalidTotal:
		return "Your cart is empty"
	default:
		return string(v.Kind)
	}
}

// CheckoutError is returned by every stage of the checkout pipeline.
type CheckoutError struct {
	Kind       CheckoutErrorKind
	Violations []Violation
	Detail     string
	Err        error
}

func (e *CheckoutError) Error() string {
	var b strings.Builder
	b.WriteString("checkout: ")
	b.WriteString(string(e.Kind))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Violations) > 0 {
		kinds := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			kinds[i] = string(v.Kind)
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(kinds, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// ErrorCode maps the kind onto the application error codes.
func (e *CheckoutError) ErrorCode() string {
	switch e.Kind {
	case KindValidationFailed:
		if onlyInvalidTotal(e.Violations) {
			return EINVALID
		}
		return ECONFLICT
	case KindMalformedCart:
		return EINTERNAL
	case KindCartLookupFailed, KindCatalogLookupFailed:
		return EUNAVAILABLE
	case KindPaymentSessionFailed:
		return EPAYMENT
	case KindForbiddenBillingEntity:
		return EFORBIDDEN
	default:
		return EINTERNAL
	}
}

// UserMessage is safe to show to customers.
func (e *CheckoutError) UserMessage() string {
	switch e.Kind {
	case KindValidationFailed:
		if len(e.Violations) == 1 {
			return e.Violations[0].Message()
		}
		return "Some items in your cart need your attention"
	case KindCartLookupFailed:
		return "Your cart could not be loaded. Please try again."
	case KindCatalogLookupFailed:
		return "Products could not be loaded. Please try again."
	case KindPaymentSessionFailed:
		return "Payment could not be started. Please try again."
	case KindForbiddenBillingEntity:
		return "You cannot bill this organization"
	default:
		return genericInternalMessage
	}
}

func onlyInvalidTotal(vs []Violation) bool {
	if len(vs) == 0 {
		return false
	}
	for _, v := range vs {
		if v.Kind != ViolationInvalidTotal {
			return false
		}
	}
	return true
}

// NewCheckoutError wraps err under kind.
func NewCheckoutError(kind CheckoutErrorKind, err error) *CheckoutError {
	return &CheckoutError{Kind: kind, Err: err}
}

// ValidationFailed builds the single error carrying every violation.
func ValidationFailed(violations []Violation) *CheckoutError {
	return &CheckoutError{Kind: KindValidationFailed, Violations: violations}
}

func malformedCart(format string, args ...any) *CheckoutError {
	return &CheckoutError{Kind: KindMalformedCart, Detail: fmt.Sprintf(format, args...)}
}

// IsCheckoutKind reports whether err is a CheckoutError of the given kind.
func IsCheckoutKind(err error, kind CheckoutErrorKind) bool {
	var ce *CheckoutError
	return errors.As(err, &ce) && ce.Kind == kind
}

// CheckoutViolations returns the violations carried by err, if any.
func CheckoutViolations(err error) []Violation {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Violations
	}
	return nil
}

// =============================================================================
// CHECKOUT STATE
// =============================================================================

// CheckoutState tracks one checkout attempt. Attempts are never retried;
// a Failed attempt is final and the customer starts a new one.
type CheckoutState string

const (
	StateDraft            CheckoutState = "draft"
	StateAggregated       CheckoutState = "aggregated"
	StateValidated        CheckoutState = "validated"
	StateSessionRequested CheckoutState = "session_requested"
	StateRedirected       CheckoutState = "redirected"
	StateFailed           CheckoutState = "failed"
)

var checkoutTransitions = map[CheckoutState]CheckoutState{
	StateDraft:            StateAggregated,
	StateAggregated:       StateValidated,
	StateValidated:        StateSessionRequested,
	StateSessionRequested: StateRedirected,
}

// IsTerminal reports whether no further transition is possible.
func (s CheckoutState) IsTerminal() bool {
	return s == StateRedirected || s == StateFailed
}

// CanTransitionTo reports whether next may follow s.
func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return checkoutTransitions[s] == next
}

// Transition returns next, or an error if the move is illegal.
func (s CheckoutState) Transition(next CheckoutState) (CheckoutState, error) {
	if !s.CanTransitionTo(next) {
		return s, Errorf(EINTERNAL, "checkout.transition", "illegal checkout transition %s -> %s", s, next)
	}
	return next, nil
}
