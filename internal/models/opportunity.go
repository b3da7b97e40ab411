package models

import "time"

// CanonicalType is the closed vocabulary for solicitation types.
type CanonicalType string

// Canonical solicitation types.
const (
	TypeRFP   CanonicalType = "RFP - Request for Proposal"
	TypeRFB   CanonicalType = "RFB - Request for Bids"
	TypeRFQ   CanonicalType = "RFQ - Request for Quote"
	TypeRFI   CanonicalType = "RFI - Request for Information"
	TypeIFB   CanonicalType = "IFB - Invitation for Bid"
	TypeRFT   CanonicalType = "RFT - Request for Tender"
	TypeOther CanonicalType = "Other"
)

// CategoryOther is the category assigned when no keyword matches.
const CategoryOther = "Other"

// CanonicalOpportunity is the normalized record ready for synchronization.
// SolicitationNumber is the natural key: non-empty, unique within one run's
// output set, and the dedup fingerprint against the record store.
type CanonicalOpportunity struct {
	SolicitationNumber string        `json:"solicitationNumber"`
	Title              string        `json:"title"`
	Type               CanonicalType `json:"type"`
	Category           string        `json:"category"`
	Department         string        `json:"department"`
	BuyerName          string        `json:"buyerName,omitempty"`
	BuyerEmail         string        `json:"buyerEmail,omitempty"`
	BuyerPhone         string        `json:"buyerPhone,omitempty"`
	CloseDate          time.Time     `json:"closeDate"`
	PortalURL          string        `json:"portalUrl"`
	Jurisdiction       string        `json:"jurisdiction"`
	Description        string        `json:"description"`
}
