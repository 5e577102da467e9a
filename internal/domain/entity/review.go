package entity

import (
	"time"
)

// Review is the rating one party leaves the other after a completed offer.
type Review struct {
	ID          string    `json:"id" firestore:"id"`
	OfferID     string    `json:"offer_id" firestore:"offerId"`
	ReviewerID  string    `json:"reviewer_id" firestore:"reviewerId"`
	TargetID    string    `json:"target_id" firestore:"targetId"`
	Rating      int       `json:"rating" firestore:"rating"` // 1-5
	Comment     string    `json:"comment" firestore:"comment"`
	DateCreated time.Time `json:"date_created" firestore:"dateCreated"`
}
