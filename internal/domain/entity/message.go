package entity

import "time"

type Message struct {
	ID          string    `json:"id" firestore:"id"`
	OfferID     string    `json:"offer_id" firestore:"offerId"`
	FromUserID  string    `json:"from_user_id" firestore:"fromUserId"`
	ToUserID    string    `json:"to_user_id" firestore:"toUserId"`
	Message     string    `json:"message" firestore:"message"`
	DateCreated time.Time `json:"date_created" firestore:"dateCreated"`
}
