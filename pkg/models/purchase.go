package models

import "time"

// Entitlement is the subscription status mirrored from the billing platform.
type Entitlement string

const (
	EntitlementFree    Entitlement = "free"
	EntitlementTrial   Entitlement = "trial"
	EntitlementPremium Entitlement = "premium"
)

// Valid reports whether e is a known entitlement value.
func (e Entitlement) Valid() bool {
	switch e {
	case EntitlementFree, EntitlementTrial, EntitlementPremium:
		return true
	}
	return false
}

// PurchaseEvent is a platform purchase notification. The platform delivers
// these at-least-once: restored transactions and redeliveries arrive with the
// same TransactionID and must not be applied twice.
type PurchaseEvent struct {
	TransactionID string      // Platform transaction identifier, stable across redeliveries
	UserID        string      // User the purchase belongs to
	ProductID     string      // Purchased product/subscription SKU
	Entitlement   Entitlement // Entitlement granted by this purchase
	PurchasedAt   time.Time   // Platform purchase timestamp
	ExpiresAt     *time.Time  // Subscription expiry, nil for non-expiring products
}

// Validate checks the minimal integrity constraints on a purchase event.
func (p *PurchaseEvent) Validate() error {
	if p.TransactionID == "" {
		return ErrMissingTransactionID
	}
	if p.UserID == "" {
		return ErrMissingUserID
	}
	if !p.Entitlement.Valid() {
		return ErrInvalidEntitlement
	}
	return nil
}
