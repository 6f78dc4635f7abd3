package entities

import "time"

// Advertisement is a paid placement created by a viewer
type Advertisement struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TargetURL   string    `json:"targetUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	TokensSpent int64     `json:"tokensSpent"`
	Impressions int64     `json:"impressions"`
	PaymentID   string    `json:"paymentId,omitempty"` // ID of the debit that paid for the ad
}

// Paid reports whether the ad's charge has been recorded
func (a Advertisement) Paid() bool {
	return a.PaymentID != ""
}

// AdDraft is the viewer-supplied part of an advertisement
type AdDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetURL   string `json:"targetUrl"`
}
