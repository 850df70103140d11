package settlement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/courier-ledger/internal/config"
	"github.com/vaidashi/courier-ledger/internal/ledger"
	"github.com/vaidashi/courier-ledger/internal/models"
	apperrors "github.com/vaidashi/courier-ledger/pkg/errors"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, *ledger.Ledger) {
	t.Helper()

	l := ledger.New(config.LedgerConfig{
		OrderPrefix:      "ORD",
		DefaultStatus:    "pending",
		DefaultDriverFee: decimal.NewFromInt(2),
	}, nil, logger.NewNopLogger())

	return NewEngine(l, logger.NewNopLogger()), l
}

func createDelivered(t *testing.T, l *ledger.Ledger, driver string, cod int64) *models.Order {
	t.Helper()

	order, err := l.Create(ledger.CreateInput{
		Merchant:  "Lana Store",
		Recipient: "Ali",
		Driver:    driver,
		COD:       decimal.NewFromInt(cod),
	})
	require.NoError(t, err)
	require.NoError(t, l.UpdateStatus(order.ID, models.StatusDelivered))

	return order
}

func TestOrdersOwedBy(t *testing.T) {
	e, l := newTestEngine(t)

	delivered := createDelivered(t, l, "Omar", 20)

	pending, err := l.Create(ledger.CreateInput{Merchant: "M", Recipient: "R", Driver: "Omar"})
	require.NoError(t, err)

	otherDriver := createDelivered(t, l, "Khaled", 30)

	owed := e.OrdersOwedBy("Omar")
	require.Len(t, owed, 1)
	assert.Equal(t, delivered.ID, owed[0].ID)

	_ = pending
	_ = otherDriver
}

func TestComputeTotalsSameForSubsetAndFullList(t *testing.T) {
	orders := []models.Order{
		{COD: decimal.NewFromInt(20), DriverFee: decimal.NewFromInt(2)},
		{COD: decimal.NewFromInt(30), DriverFee: decimal.NewFromInt(2)},
		{COD: decimal.NewFromInt(25), DriverFee: decimal.NewFromInt(2), DriverAdditionalFare: decimal.NewFromInt(1)},
	}

	full := ComputeTotals(orders)
	assert.True(t, full.TotalCOD.Equal(decimal.NewFromInt(75)))
	assert.True(t, full.TotalDriverFare.Equal(decimal.NewFromInt(7)))
	assert.True(t, full.NetPayable.Equal(decimal.NewFromInt(68)))

	subset := ComputeTotals(orders[:1])
	assert.True(t, subset.NetPayable.Equal(decimal.NewFromInt(18)))
}

func TestConfirmCollection(t *testing.T) {
	e, l := newTestEngine(t)

	a := createDelivered(t, l, "Omar", 20)
	b := createDelivered(t, l, "Omar", 30)
	c := createDelivered(t, l, "Omar", 25)

	slip, err := e.ConfirmCollection("Omar", []string{a.ID, b.ID, c.ID})
	require.NoError(t, err)

	// driverFee defaults to 2 per order: netPayable = 75 - 6 = 69.
	assert.True(t, slip.NetPayable.Equal(decimal.NewFromInt(69)), "got %s", slip.NetPayable)
	assert.Equal(t, 3, slip.ItemCount)
	assert.Equal(t, "Omar", slip.DriverName)
	assert.True(t, slip.TotalCOD.Sub(slip.TotalDriverFare).Equal(slip.NetPayable))

	// Settled orders leave the collectible pool.
	assert.Empty(t, e.OrdersOwedBy("Omar"))

	for _, id := range []string{a.ID, b.ID, c.ID} {
		got, err := l.Get(id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCashCollected, got.Status)
		assert.Equal(t, models.StatusDelivered, got.PreviousStatus)
	}

	slips := e.Slips()
	require.Len(t, slips, 1)
	assert.Equal(t, slip.ID, slips[0].ID)
}

func TestConfirmCollectionValidation(t *testing.T) {
	e, l := newTestEngine(t)
	a := createDelivered(t, l, "Omar", 20)

	_, err := e.ConfirmCollection("", []string{a.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = e.ConfirmCollection("Omar", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmptySelection))

	// Failed calls leave the order collectible and create no slip.
	assert.Len(t, e.OrdersOwedBy("Omar"), 1)
	assert.Empty(t, e.Slips())
}

func TestConfirmCollectionSkipsIneligible(t *testing.T) {
	e, l := newTestEngine(t)

	a := createDelivered(t, l, "Omar", 20)
	foreign := createDelivered(t, l, "Khaled", 30)

	slip, err := e.ConfirmCollection("Omar", []string{a.ID, foreign.ID, "ORD-404"})
	require.NoError(t, err)
	assert.Equal(t, 1, slip.ItemCount)

	// The other driver's order is untouched.
	got, err := l.Get(foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
}

func TestConfirmCollectionAllIneligibleFails(t *testing.T) {
	e, l := newTestEngine(t)
	a := createDelivered(t, l, "Omar", 20)

	_, err := e.ConfirmCollection("Omar", []string{a.ID})
	require.NoError(t, err)

	// The same selection cannot be settled twice.
	_, err = e.ConfirmCollection("Omar", []string{a.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Len(t, e.Slips(), 1)
}

func TestDriverReport(t *testing.T) {
	e, l := newTestEngine(t)

	a := createDelivered(t, l, "Omar", 20)
	b := createDelivered(t, l, "Omar", 30)
	createDelivered(t, l, "Omar", 25)

	_, err := l.Create(ledger.CreateInput{Merchant: "M", Recipient: "R", Driver: "Omar"})
	require.NoError(t, err)

	report := e.Report("Omar")
	assert.Equal(t, 4, report.TotalOrders)
	assert.Equal(t, 3, report.DeliveredOrders)
	assert.Equal(t, 3, report.PendingCollection)
	assert.True(t, report.TotalCOD.Equal(decimal.NewFromInt(75)))
	assert.True(t, report.OutstandingAmount.Equal(decimal.NewFromInt(75)))

	_, err = e.ConfirmCollection("Omar", []string{a.ID, b.ID})
	require.NoError(t, err)

	report = e.Report("Omar")
	assert.Equal(t, 3, report.DeliveredOrders, "settled orders still count as delivered")
	assert.Equal(t, 2, report.CollectedOrders)
	assert.Equal(t, 1, report.PendingCollection)
	assert.True(t, report.CollectedAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, report.OutstandingAmount.Equal(decimal.NewFromInt(25)))
	assert.False(t, report.OutstandingAmount.IsNegative())
}

func TestAllReportsCoversEveryDriver(t *testing.T) {
	e, l := newTestEngine(t)

	createDelivered(t, l, "Omar", 20)
	createDelivered(t, l, "Khaled", 30)

	reports := e.AllReports()
	require.Len(t, reports, 2)

	names := []string{reports[0].DriverName, reports[1].DriverName}
	assert.Contains(t, names, "Omar")
	assert.Contains(t, names, "Khaled")
}

func TestSlipsByDriver(t *testing.T) {
	e, l := newTestEngine(t)

	a := createDelivered(t, l, "Omar", 20)
	b := createDelivered(t, l, "Khaled", 30)

	_, err := e.ConfirmCollection("Omar", []string{a.ID})
	require.NoError(t, err)
	_, err = e.ConfirmCollection("Khaled", []string{b.ID})
	require.NoError(t, err)

	slips := e.SlipsByDriver("Omar")
	require.Len(t, slips, 1)
	assert.Equal(t, "Omar", slips[0].DriverName)
}
