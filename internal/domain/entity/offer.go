package entity

import "time"

type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferCompleted OfferStatus = "completed"
)

// offerTransitions lists every status an offer may move to from a given status.
var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferPending:  {OfferAccepted, OfferRejected},
	OfferAccepted: {OfferCompleted, OfferRejected},
}

// CanTransition reports whether an offer may move from one status to another.
func CanTransition(from, to OfferStatus) bool {
	for _, next := range offerTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OfferStatus) IsTerminal() bool {
	return s == OfferRejected || s == OfferCompleted
}

func (s OfferStatus) IsActive() bool {
	return s == OfferPending || s == OfferAccepted
}

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferPending, OfferAccepted, OfferRejected, OfferCompleted:
		return true
	}
	return false
}

// Side is the role a user plays in one offer.
type Side string

const (
	SideSender   Side = "sender"
	SideReceiver Side = "receiver"
)

type Offer struct {
	ID                string      `json:"id" firestore:"id"`
	FromUserID        string      `json:"from_user_id" firestore:"fromUserId"`
	ToUserID          string      `json:"to_user_id" firestore:"toUserId"`
	Status            OfferStatus `json:"status_offer" firestore:"statusOffer"`
	CashAdjustment    float64     `json:"cash_adjustment" firestore:"cashAdjustment"`
	DeletedBySender   bool        `json:"deleted_by_sender" firestore:"deletedBySender"`
	DeletedByReceiver bool        `json:"deleted_by_receiver" firestore:"deletedByReceiver"`
	DateCreated       time.Time   `json:"date_created" firestore:"dateCreated"`
	DateUpdated       time.Time   `json:"date_updated" firestore:"dateUpdated"`
}

// SideOf returns the side userID plays in the offer, or false when userID is not a party.
func (o *Offer) SideOf(userID string) (Side, bool) {
	switch userID {
	case o.FromUserID:
		return SideSender, true
	case o.ToUserID:
		return SideReceiver, true
	}
	return "", false
}

// PartnerOf returns the other party's id.
func (o *Offer) PartnerOf(userID string) string {
	if userID == o.FromUserID {
		return o.ToUserID
	}
	return o.FromUserID
}

// HiddenFor reports whether userID removed the offer from their view.
func (o *Offer) HiddenFor(userID string) bool {
	switch userID {
	case o.FromUserID:
		return o.DeletedBySender
	case o.ToUserID:
		return o.DeletedByReceiver
	}
	return false
}
