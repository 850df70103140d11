package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/vaidashi/courier-ledger/internal/ledger"
	"github.com/vaidashi/courier-ledger/internal/models"
	apperrors "github.com/vaidashi/courier-ledger/pkg/errors"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

// Totals is the financial summary of a set of orders from the driver
// settlement point of view.
type Totals struct {
	TotalCOD        decimal.Decimal `json:"total_cod"`
	TotalDriverFare decimal.Decimal `json:"total_driver_fare"`
	NetPayable      decimal.Decimal `json:"net_payable"`
}

// ComputeTotals sums COD and driver fares over the given orders. The same
// function serves full collectible lists and arbitrary caller selections, so
// the two can never disagree.
func ComputeTotals(orders []models.Order) Totals {
	t := Totals{
		TotalCOD:        decimal.Zero,
		TotalDriverFare: decimal.Zero,
	}

	for i := range orders {
		t.TotalCOD = t.TotalCOD.Add(orders[i].COD)
		t.TotalDriverFare = t.TotalDriverFare.Add(orders[i].DriverFee.Add(orders[i].DriverAdditionalFare))
	}

	t.NetPayable = t.TotalCOD.Sub(t.TotalDriverFare)

	return t
}

// DriverReport is the per-driver settlement aggregate.
type DriverReport struct {
	DriverName        string          `json:"driver_name"`
	TotalOrders       int             `json:"total_orders"`
	DeliveredOrders   int             `json:"delivered_orders"`
	CollectedOrders   int             `json:"collected_orders"`
	PendingCollection int             `json:"pending_collection"`
	TotalCOD          decimal.Decimal `json:"total_cod"`
	TotalDriverFees   decimal.Decimal `json:"total_driver_fees"`
	CollectedAmount   decimal.Decimal `json:"collected_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
}

// Engine derives which orders represent cash in a driver's hand and converts
// selections of them into permanent collection slips.
type Engine struct {
	ledger *ledger.Ledger
	logger logger.Logger

	// Guarded by the ledger lock: every access happens inside Atomically, so
	// slip creation and member status transitions are one observable step.
	slips []*models.CollectionSlip
}

// NewEngine creates a settlement engine over the given ledger.
func NewEngine(l *ledger.Ledger, log logger.Logger) *Engine {
	return &Engine{
		ledger: l,
		logger: log,
		slips:  make([]*models.CollectionSlip, 0),
	}
}

// OrdersOwedBy returns frozen copies of the orders whose COD is still with
// the given driver. Computed live; settled orders never reappear here.
func (e *Engine) OrdersOwedBy(driverName string) []models.Order {
	var owed []models.Order

	e.ledger.Atomically(func(tx *ledger.Tx) {
		matches := tx.Filter(func(o *models.Order) bool {
			return o.Driver == driverName && o.Status.IsCollectible()
		})
		owed = models.CloneOrders(matches)
	})

	return owed
}

// ConfirmCollection snapshots the selected orders into a new collection slip
// and advances them to the settled status in the same critical section: both
// effects happen or neither does.
func (e *Engine) ConfirmCollection(driverName string, orderIDs []string) (*models.CollectionSlip, error) {
	if driverName == "" {
		return nil, apperrors.NewValidationError("confirm collection: driver is required")
	}

	if len(orderIDs) == 0 {
		return nil, apperrors.NewEmptySelectionError("confirm collection")
	}

	var (
		slip    *models.CollectionSlip
		slipErr error
	)

	e.ledger.Atomically(func(tx *ledger.Tx) {
		eligible := make([]*models.Order, 0, len(orderIDs))
		eligibleIDs := make([]string, 0, len(orderIDs))
		var skipped []string

		for _, id := range orderIDs {
			o, ok := tx.Get(id)

			if !ok || o.Driver != driverName || !o.Status.IsCollectible() {
				skipped = append(skipped, id)
				continue
			}

			eligible = append(eligible, o)
			eligibleIDs = append(eligibleIDs, id)
		}

		if len(skipped) > 0 {
			e.logger.Warn("Collection selection skipped ineligible orders",
				"driver", driverName, "skipped", skipped)
		}

		if len(eligible) == 0 {
			slipErr = apperrors.NewValidationError("confirm collection: no collectible orders in selection")
			return
		}

		snapshot := models.CloneOrders(eligible)
		totals := ComputeTotals(snapshot)

		slip = &models.CollectionSlip{
			ID:              models.GenerateID("slp"),
			DriverName:      driverName,
			Date:            models.GetCurrentTime().Format(models.SlipDateLayout),
			ItemCount:       len(snapshot),
			Orders:          snapshot,
			TotalCOD:        totals.TotalCOD,
			TotalDriverFare: totals.TotalDriverFare,
			NetPayable:      totals.NetPayable,
		}

		tx.BulkUpdateStatus(eligibleIDs, models.StatusCashCollected)
		e.slips = append(e.slips, slip)

		tx.Record(models.NewEvent(models.EventCollectionSlipCreated, "collection_slip", slip.ID, slip))
	})

	if slipErr != nil {
		return nil, slipErr
	}

	e.logger.Info("Collection slip created",
		"slip_id", slip.ID,
		"driver", driverName,
		"items", slip.ItemCount,
		"net_payable", slip.NetPayable)

	out := *slip
	return &out, nil
}

// Slips returns value copies of all collection slips, oldest first.
func (e *Engine) Slips() []models.CollectionSlip {
	var out []models.CollectionSlip

	e.ledger.Atomically(func(tx *ledger.Tx) {
		out = make([]models.CollectionSlip, 0, len(e.slips))

		for _, s := range e.slips {
			out = append(out, *s)
		}
	})

	return out
}

// SlipsByDriver returns the collection slips for one driver, oldest first.
func (e *Engine) SlipsByDriver(driverName string) []models.CollectionSlip {
	var out []models.CollectionSlip

	e.ledger.Atomically(func(tx *ledger.Tx) {
		for _, s := range e.slips {
			if s.DriverName == driverName {
				out = append(out, *s)
			}
		}
	})

	return out
}

// Report computes the settlement aggregate for one driver. "Delivered" here
// includes settled orders: an order whose cash was collected at the branch
// was necessarily delivered first, and counting it keeps the outstanding
// amount non-negative under normal data.
func (e *Engine) Report(driverName string) DriverReport {
	var report DriverReport

	e.ledger.Atomically(func(tx *ledger.Tx) {
		report = e.reportLocked(tx, driverName)
	})

	return report
}

// AllReports computes reports for every driver present in the ledger, in
// order of first appearance.
func (e *Engine) AllReports() []DriverReport {
	var reports []DriverReport

	e.ledger.Atomically(func(tx *ledger.Tx) {
		seen := make(map[string]bool)

		for _, o := range tx.Filter(func(o *models.Order) bool { return o.Driver != "" }) {
			if seen[o.Driver] {
				continue
			}

			seen[o.Driver] = true
			reports = append(reports, e.reportLocked(tx, o.Driver))
		}
	})

	return reports
}

func (e *Engine) reportLocked(tx *ledger.Tx, driverName string) DriverReport {
	report := DriverReport{
		DriverName:        driverName,
		TotalCOD:          decimal.Zero,
		TotalDriverFees:   decimal.Zero,
		CollectedAmount:   decimal.Zero,
		OutstandingAmount: decimal.Zero,
	}

	for _, o := range tx.Filter(func(o *models.Order) bool { return o.Driver == driverName }) {
		report.TotalOrders++

		delivered := o.Status == models.StatusDelivered || o.Status.IsSettled()

		if delivered {
			report.DeliveredOrders++
			report.TotalCOD = report.TotalCOD.Add(o.COD)
			report.TotalDriverFees = report.TotalDriverFees.Add(o.DriverFee.Add(o.DriverAdditionalFare))
		}

		if o.Status.IsSettled() {
			report.CollectedOrders++
			report.CollectedAmount = report.CollectedAmount.Add(o.COD)
		}
	}

	report.PendingCollection = report.DeliveredOrders - report.CollectedOrders
	report.OutstandingAmount = report.TotalCOD.Sub(report.CollectedAmount)

	// Negative outstanding is surfaced, not corrected: it means someone edited
	// money fields after settlement and operators need to see it.
	if report.OutstandingAmount.IsNegative() {
		e.logger.Warn("Negative outstanding amount",
			"driver", driverName, "outstanding", report.OutstandingAmount)
	}

	return report
}
