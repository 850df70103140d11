package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SlipDateLayout is the display form slip dates are recorded in. Slips
// imported from outside may carry arbitrary strings here; date-bounded
// queries exclude what they cannot parse instead of failing.
const SlipDateLayout = "2006-01-02"

// ParseSlipDate parses a slip date in the display layout.
func ParseSlipDate(date string) (time.Time, error) {
	return time.Parse(SlipDateLayout, date)
}

// CollectionSlip records a driver handing collected COD cash to the branch
// for a batch of orders. Immutable after creation.
type CollectionSlip struct {
	ID         string  `db:"id" json:"id"`
	DriverName string  `db:"driver_name" json:"driver_name"`
	Date       string  `db:"date" json:"date"`
	ItemCount  int     `db:"item_count" json:"item_count"`
	Orders     []Order `db:"-" json:"orders"`

	TotalCOD        decimal.Decimal `db:"total_cod" json:"total_cod"`
	TotalDriverFare decimal.Decimal `db:"total_driver_fare" json:"total_driver_fare"`
	NetPayable      decimal.Decimal `db:"net_payable" json:"net_payable"`
}

// DriverReturnSlip records returned merchandise handed from a driver to the
// branch. Immutable after creation.
type DriverReturnSlip struct {
	ID         string  `db:"id" json:"id"`
	DriverName string  `db:"driver_name" json:"driver_name"`
	Date       string  `db:"date" json:"date"`
	ItemCount  int     `db:"item_count" json:"item_count"`
	Orders     []Order `db:"-" json:"orders"`
}

// MerchantSlipStatus is the delivery state of a merchant return slip, the
// only slip type whose state changes after creation.
type MerchantSlipStatus string

const (
	MerchantSlipReadyForDelivery MerchantSlipStatus = "ready_for_delivery"
	MerchantSlipDelivered        MerchantSlipStatus = "delivered"
)

// MerchantSlip is a package of returned merchandise prepared at the branch
// for a single merchant.
type MerchantSlip struct {
	ID        string             `db:"id" json:"id"`
	Merchant  string             `db:"merchant" json:"merchant"`
	Date      string             `db:"date" json:"date"`
	ItemCount int                `db:"item_count" json:"item_count"`
	Status    MerchantSlipStatus `db:"status" json:"status"`
	Orders    []Order            `db:"-" json:"orders"`
}

// ContainsOrder reports whether the slip snapshotted the given order id.
func (s *MerchantSlip) ContainsOrder(orderID string) bool {
	for _, o := range s.Orders {
		if o.ID == orderID {
			return true
		}
	}
	return false
}
