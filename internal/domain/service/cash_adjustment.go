package service

import (
	"fmt"
	"math"

	"swapmarket/internal/domain/entity"
)

// PricedLine is one offer line reduced to what the cash adjustment needs.
type PricedLine struct {
	OfferedBy         string
	Price             float64
	Quantity          int
	Qty               int
	AvailableQuantity int
}

// EffectiveQuantity picks the first positive of quantity, qty and the
// product's available quantity. A line without any of them counts once.
func EffectiveQuantity(quantity, qty, available int) int {
	switch {
	case quantity > 0:
		return quantity
	case qty > 0:
		return qty
	case available > 0:
		return available
	}
	return 1
}

func (l PricedLine) Total() float64 {
	return l.Price * float64(EffectiveQuantity(l.Quantity, l.Qty, l.AvailableQuantity))
}

// SideTotals sums the lines of each party. Lines offered by neither party are ignored.
func SideTotals(lines []PricedLine, fromUserID, toUserID string) (senderTotal, receiverTotal float64) {
	for _, l := range lines {
		switch l.OfferedBy {
		case fromUserID:
			senderTotal += l.Total()
		case toUserID:
			receiverTotal += l.Total()
		}
	}
	return roundCents(senderTotal), roundCents(receiverTotal)
}

// CalculateCashAdjustment returns sum(receiver lines) - sum(sender lines).
// A positive value is what the sender owes the receiver; a negative value is
// what the receiver owes the sender.
func CalculateCashAdjustment(lines []PricedLine, fromUserID, toUserID string) float64 {
	senderTotal, receiverTotal := SideTotals(lines, fromUserID, toUserID)
	return roundCents(receiverTotal - senderTotal)
}

// CountBySide counts offer lines per party.
func CountBySide(items []*entity.OfferItem, fromUserID, toUserID string) (sender, receiver int) {
	for _, it := range items {
		switch it.OfferedBy {
		case fromUserID:
			sender++
		case toUserID:
			receiver++
		}
	}
	return sender, receiver
}

type CashDirection string

const (
	YouGetPaid CashDirection = "you_get_paid"
	YouPay     CashDirection = "you_pay"
	PriceEqual CashDirection = "equal"
)

// CashView is the cash adjustment as one party reads it.
type CashView struct {
	Direction CashDirection `json:"direction"`
	Amount    float64       `json:"amount"`
	Label     string        `json:"label"`
}

// DescribeCashAdjustment interprets a stored cash adjustment for the viewer's
// side. The receiver gets paid when the value is positive; the sender reads
// the same value mirrored.
func DescribeCashAdjustment(value float64, side entity.Side) CashView {
	value = roundCents(value)
	if value == 0 {
		return CashView{Direction: PriceEqual, Amount: 0, Label: "price is equal"}
	}

	amount := math.Abs(value)
	receiverGetsPaid := value > 0
	direction := YouPay
	if (side == entity.SideReceiver) == receiverGetsPaid {
		direction = YouGetPaid
	}

	label := fmt.Sprintf("you pay %.2f", amount)
	if direction == YouGetPaid {
		label = fmt.Sprintf("you get paid %.2f", amount)
	}
	return CashView{Direction: direction, Amount: amount, Label: label}
}

func roundCents(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
