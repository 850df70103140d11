package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the unit of work in the ledger. Money fields are decimals; the
// ledger keeps ItemPrice consistent with COD, DeliveryFee and AdditionalCost
// after every edit.
type Order struct {
	ID             string      `db:"id" json:"id"`
	OrderNumber    int64       `db:"order_number" json:"order_number"`
	Source         string      `db:"source" json:"source,omitempty"`
	Status         OrderStatus `db:"status" json:"status"`
	PreviousStatus OrderStatus `db:"previous_status" json:"previous_status,omitempty"`

	Merchant  string `db:"merchant" json:"merchant"`
	Driver    string `db:"driver" json:"driver,omitempty"`
	Recipient string `db:"recipient" json:"recipient"`
	Phone     string `db:"phone" json:"phone,omitempty"`
	Address   string `db:"address" json:"address,omitempty"`
	Region    string `db:"region" json:"region,omitempty"`
	City      string `db:"city" json:"city,omitempty"`

	COD                  decimal.Decimal `db:"cod" json:"cod"`
	ItemPrice            decimal.Decimal `db:"item_price" json:"item_price"`
	DeliveryFee          decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	AdditionalCost       decimal.Decimal `db:"additional_cost" json:"additional_cost"`
	DriverFee            decimal.Decimal `db:"driver_fee" json:"driver_fee"`
	DriverAdditionalFare decimal.Decimal `db:"driver_additional_fare" json:"driver_additional_fare"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RecomputeItemPrice re-derives the merchant payable from the three
// contributing fields: itemPrice = cod - (deliveryFee + additionalCost).
func (o *Order) RecomputeItemPrice() {
	o.ItemPrice = o.COD.Sub(o.DeliveryFee.Add(o.AdditionalCost))
}

// CloneOrders returns frozen value copies of the given orders, in order.
// Slips snapshot their members with this so later ledger edits or deletes
// cannot rewrite settlement history.
func CloneOrders(orders []*Order) []Order {
	snapshot := make([]Order, 0, len(orders))

	for _, o := range orders {
		snapshot = append(snapshot, *o)
	}

	return snapshot
}
