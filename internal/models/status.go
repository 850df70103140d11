package models

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	StatusPending           OrderStatus = "pending"
	StatusOutForDelivery    OrderStatus = "out_for_delivery"
	StatusDelivered         OrderStatus = "delivered"
	StatusPostponed         OrderStatus = "postponed"
	StatusNoResponse        OrderStatus = "no_response"
	StatusRejectedFeePaid   OrderStatus = "rejected_fee_paid"
	StatusRejectedFeeUnpaid OrderStatus = "rejected_fee_unpaid"
	StatusCancelled         OrderStatus = "cancelled"
	StatusExchanged         OrderStatus = "exchanged"
	StatusReturned          OrderStatus = "returned"
	StatusReturnedToBranch  OrderStatus = "returned_to_branch"
	StatusCashCollected     OrderStatus = "cash_collected"
)

func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusOutForDelivery, StatusDelivered, StatusPostponed,
		StatusNoResponse, StatusRejectedFeePaid, StatusRejectedFeeUnpaid,
		StatusCancelled, StatusExchanged, StatusReturned,
		StatusReturnedToBranch, StatusCashCollected:
		return true
	}
	return false
}

// IsCollectible reports whether an order in this status represents COD cash
// still sitting with the driver, i.e. eligible for a collection slip.
func (s OrderStatus) IsCollectible() bool {
	switch s {
	case StatusDelivered, StatusExchanged, StatusRejectedFeePaid,
		StatusRejectedFeeUnpaid, StatusNoResponse:
		return true
	case StatusPending, StatusOutForDelivery, StatusPostponed, StatusCancelled,
		StatusReturned, StatusReturnedToBranch, StatusCashCollected:
		return false
	}
	return false
}

// IsSettled reports whether the order's cash has already been handed to the
// branch. Settled orders never re-enter the collectible pool.
func (s OrderStatus) IsSettled() bool {
	return s == StatusCashCollected
}

// IsReturnable reports whether an order in this status carries merchandise
// that has to travel back toward the merchant.
func (s OrderStatus) IsReturnable() bool {
	switch s {
	case StatusReturned, StatusCancelled, StatusRejectedFeePaid,
		StatusRejectedFeeUnpaid, StatusExchanged:
		return true
	case StatusPending, StatusOutForDelivery, StatusDelivered, StatusPostponed,
		StatusNoResponse, StatusReturnedToBranch, StatusCashCollected:
		return false
	}
	return false
}

// IsDriverHeldReturn reports whether the merchandise for this status is still
// with the driver. Postponed orders count: the goods ride along until the
// retry, so branch intake has to be able to pull them back.
func (s OrderStatus) IsDriverHeldReturn() bool {
	return s.IsReturnable() || s == StatusPostponed
}

// IsOpen reports whether the order is still in flight: not terminal, not
// settled, not part of the returns flow.
func (s OrderStatus) IsOpen() bool {
	switch s {
	case StatusPending, StatusOutForDelivery, StatusPostponed, StatusNoResponse:
		return true
	case StatusDelivered, StatusRejectedFeePaid, StatusRejectedFeeUnpaid,
		StatusCancelled, StatusExchanged, StatusReturned,
		StatusReturnedToBranch, StatusCashCollected:
		return false
	}
	return false
}
