package entity

import "time"

// OfferItem is one product a party puts on the table in an offer.
type OfferItem struct {
	ID          string    `json:"id" firestore:"id"`
	OfferID     string    `json:"offer_id" firestore:"offerId"`
	ItemID      string    `json:"item_id" firestore:"itemId"`
	OfferedBy   string    `json:"offered_by" firestore:"offeredBy"`
	Quantity    int       `json:"quantity" firestore:"quantity"`
	Qty         int       `json:"qty,omitempty" firestore:"qty,omitempty"` // legacy rows
	DateCreated time.Time `json:"date_created" firestore:"dateCreated"`
}
