package reporting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/courier-ledger/internal/models"
)

func sampleOrders() []models.Order {
	return []models.Order{
		{ID: "ORD-4", Merchant: "A", Region: "North", Status: models.StatusPending, COD: decimal.NewFromInt(10), DeliveryFee: decimal.NewFromInt(1), ItemPrice: decimal.NewFromInt(9)},
		{ID: "ORD-3", Merchant: "B", Region: "North", Status: models.StatusDelivered, COD: decimal.NewFromInt(20), DeliveryFee: decimal.NewFromInt(2), ItemPrice: decimal.NewFromInt(18)},
		{ID: "ORD-2", Merchant: "A", Region: "South", Status: models.StatusOutForDelivery, COD: decimal.NewFromInt(30), DeliveryFee: decimal.NewFromInt(3), ItemPrice: decimal.NewFromInt(27)},
		{ID: "ORD-1", Merchant: "B", Region: "South", Status: models.StatusCancelled, COD: decimal.NewFromInt(40), DeliveryFee: decimal.NewFromInt(4), ItemPrice: decimal.NewFromInt(36)},
	}
}

func TestTotalsOnlySumFinancialColumns(t *testing.T) {
	totals := Totals(sampleOrders(), DefaultColumns())

	assert.True(t, totals["cod"].Equal(decimal.NewFromInt(100)))
	assert.True(t, totals["delivery_fee"].Equal(decimal.NewFromInt(10)))
	assert.True(t, totals["item_price"].Equal(decimal.NewFromInt(90)))

	_, hasMerchant := totals["merchant"]
	assert.False(t, hasMerchant, "non-financial columns have no totals")
}

func TestSelectionTotalsUseSameFunction(t *testing.T) {
	orders := sampleOrders()

	selection := orders[:2]
	selectionTotals := Totals(selection, DefaultColumns())

	assert.True(t, selectionTotals["cod"].Equal(decimal.NewFromInt(30)))
}

func TestGroupByPreservesFirstAppearanceOrder(t *testing.T) {
	groups := GroupBy(sampleOrders(), "merchant", DefaultColumns())

	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].Key)
	assert.Equal(t, "B", groups[1].Key)
	assert.Len(t, groups[0].Orders, 2)
	assert.Len(t, groups[1].Orders, 2)
}

func TestGroupTotalsSumToUngroupedTotal(t *testing.T) {
	orders := sampleOrders()
	columns := DefaultColumns()

	ungrouped := Totals(orders, columns)

	for _, field := range []string{"merchant", "status", "region"} {
		groups := GroupBy(orders, field, columns)

		counted := 0
		sum := decimal.Zero

		for _, g := range groups {
			counted += len(g.Orders)
			sum = sum.Add(g.Totals["cod"])
		}

		assert.Equal(t, len(orders), counted, "grouping by %s dropped or duplicated orders", field)
		assert.True(t, sum.Equal(ungrouped["cod"]), "grouping by %s: %s != %s", field, sum, ungrouped["cod"])
	}
}

func TestGroupPendingCounts(t *testing.T) {
	groups := GroupBy(sampleOrders(), "region", DefaultColumns())

	require.Len(t, groups, 2)

	// North: pending + delivered -> one open. South: out-for-delivery +
	// cancelled -> one open.
	assert.Equal(t, 1, groups[0].PendingCount)
	assert.Equal(t, 1, groups[1].PendingCount)
}

func TestSortByFinancialField(t *testing.T) {
	sorted := Sort(sampleOrders(), "cod", Ascending)

	require.Len(t, sorted, 4)
	assert.Equal(t, "ORD-4", sorted[0].ID)
	assert.Equal(t, "ORD-1", sorted[3].ID)

	descending := Sort(sampleOrders(), "cod", Descending)
	assert.Equal(t, "ORD-1", descending[0].ID)
}

func TestSortNoneKeepsInsertionOrder(t *testing.T) {
	orders := sampleOrders()
	sorted := Sort(orders, "cod", None)

	for i := range orders {
		assert.Equal(t, orders[i].ID, sorted[i].ID)
	}
}

func TestSortIsStable(t *testing.T) {
	orders := []models.Order{
		{ID: "a", Merchant: "Same", COD: decimal.NewFromInt(5)},
		{ID: "b", Merchant: "Same", COD: decimal.NewFromInt(5)},
		{ID: "c", Merchant: "Same", COD: decimal.NewFromInt(1)},
	}

	sorted := Sort(orders, "merchant", Ascending)

	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "b", sorted[1].ID)
}

func TestSortStateToggleCycle(t *testing.T) {
	var s SortState

	s.Toggle("cod")
	assert.Equal(t, "cod", s.Field)
	assert.Equal(t, Ascending, s.Direction)

	s.Toggle("cod")
	assert.Equal(t, Descending, s.Direction)

	s.Toggle("cod")
	assert.Equal(t, None, s.Direction)
	assert.Empty(t, s.Field)

	// Switching fields resets to ascending.
	s.Toggle("merchant")
	s.Toggle("cod")
	assert.Equal(t, "cod", s.Field)
	assert.Equal(t, Ascending, s.Direction)
}
