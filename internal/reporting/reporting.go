package reporting

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vaidashi/courier-ledger/internal/models"
)

// Column describes one table column. Only financial columns participate in
// totals rows.
type Column struct {
	Key       string
	Financial bool
}

// DefaultColumns is the standard order-table column set.
func DefaultColumns() []Column {
	return []Column{
		{Key: "order_number"},
		{Key: "merchant"},
		{Key: "driver"},
		{Key: "recipient"},
		{Key: "city"},
		{Key: "status"},
		{Key: "cod", Financial: true},
		{Key: "item_price", Financial: true},
		{Key: "delivery_fee", Financial: true},
		{Key: "additional_cost", Financial: true},
		{Key: "driver_fee", Financial: true},
		{Key: "driver_additional_fare", Financial: true},
	}
}

// FinancialValue returns the decimal value of a financial column for one
// order. Non-financial keys report false.
func FinancialValue(o *models.Order, key string) (decimal.Decimal, bool) {
	switch key {
	case "cod":
		return o.COD, true
	case "item_price":
		return o.ItemPrice, true
	case "delivery_fee":
		return o.DeliveryFee, true
	case "additional_cost":
		return o.AdditionalCost, true
	case "driver_fee":
		return o.DriverFee, true
	case "driver_additional_fare":
		return o.DriverAdditionalFare, true
	default:
		return decimal.Zero, false
	}
}

// Totals sums every financial column over the given orders. Full-list totals
// and selection totals are the same function applied to different inputs;
// there is deliberately no second implementation to drift.
func Totals(orders []models.Order, columns []Column) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)

	for _, col := range columns {
		if !col.Financial {
			continue
		}

		sum := decimal.Zero

		for i := range orders {
			v, _ := FinancialValue(&orders[i], col.Key)
			sum = sum.Add(v)
		}

		totals[col.Key] = sum
	}

	return totals
}

// Group is one named bucket of a grouped order list.
type Group struct {
	Key          string
	Orders       []models.Order
	Totals       map[string]decimal.Decimal
	PendingCount int
}

// GroupBy partitions orders into buckets keyed by the given field, in order
// of first appearance. Each bucket carries its own financial totals and a
// count of still-open orders.
func GroupBy(orders []models.Order, field string, columns []Column) []Group {
	index := make(map[string]int)
	var groups []Group

	for i := range orders {
		key := groupKey(&orders[i], field)

		gi, ok := index[key]

		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{Key: key})
		}

		groups[gi].Orders = append(groups[gi].Orders, orders[i])
	}

	for i := range groups {
		groups[i].Totals = Totals(groups[i].Orders, columns)

		for j := range groups[i].Orders {
			if groups[i].Orders[j].Status.IsOpen() {
				groups[i].PendingCount++
			}
		}
	}

	return groups
}

func groupKey(o *models.Order, field string) string {
	switch field {
	case "merchant":
		return o.Merchant
	case "driver":
		return o.Driver
	case "status":
		return o.Status.String()
	case "region":
		return o.Region
	case "city":
		return o.City
	case "source":
		return o.Source
	case "date":
		return o.CreatedAt.Format(models.SlipDateLayout)
	default:
		return ""
	}
}

// Direction is a sort direction. None means original insertion order.
type Direction int

const (
	None Direction = iota
	Ascending
	Descending
)

// SortState tracks the current sort key and cycles it the way a table header
// click does: ascending, then descending, then back to unsorted.
type SortState struct {
	Field     string
	Direction Direction
}

// Toggle advances the state for a click on the given field. A new field
// always starts ascending.
func (s *SortState) Toggle(field string) {
	if s.Field != field {
		s.Field = field
		s.Direction = Ascending
		return
	}

	switch s.Direction {
	case None:
		s.Direction = Ascending
	case Ascending:
		s.Direction = Descending
	case Descending:
		s.Direction = None
		s.Field = ""
	}
}

// Sort returns a sorted copy of orders. The sort is stable; None returns the
// input order untouched.
func Sort(orders []models.Order, field string, direction Direction) []models.Order {
	out := make([]models.Order, len(orders))
	copy(out, orders)

	if direction == None || field == "" {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compareField(&out[i], &out[j], field)

		if direction == Descending {
			return c > 0
		}

		return c < 0
	})

	return out
}

func compareField(a, b *models.Order, field string) int {
	if av, ok := FinancialValue(a, field); ok {
		bv, _ := FinancialValue(b, field)
		return av.Cmp(bv)
	}

	switch field {
	case "order_number":
		switch {
		case a.OrderNumber < b.OrderNumber:
			return -1
		case a.OrderNumber > b.OrderNumber:
			return 1
		default:
			return 0
		}
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(stringField(a, field), stringField(b, field))
	}
}

func stringField(o *models.Order, field string) string {
	switch field {
	case "id":
		return o.ID
	case "merchant":
		return o.Merchant
	case "driver":
		return o.Driver
	case "recipient":
		return o.Recipient
	case "phone":
		return o.Phone
	case "address":
		return o.Address
	case "region":
		return o.Region
	case "city":
		return o.City
	case "source":
		return o.Source
	case "status":
		return o.Status.String()
	default:
		return ""
	}
}
