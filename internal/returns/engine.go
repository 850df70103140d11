package returns

import (
	"fmt"
	"time"

	"github.com/vaidashi/courier-ledger/internal/ledger"
	"github.com/vaidashi/courier-ledger/internal/models"
	apperrors "github.com/vaidashi/courier-ledger/pkg/errors"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

// Engine tracks merchandise moving driver -> branch -> merchant. It mirrors
// the settlement engine's shape, with the added constraint that a merchant
// slip can only hold one merchant's orders.
type Engine struct {
	ledger *ledger.Ledger
	logger logger.Logger

	// Guarded by the ledger lock via Atomically.
	driverSlips   []*models.DriverReturnSlip
	merchantSlips []*models.MerchantSlip
	yearSeq       map[int]int
}

// NewEngine creates a returns engine over the given ledger.
func NewEngine(l *ledger.Ledger, log logger.Logger) *Engine {
	return &Engine{
		ledger:        l,
		logger:        log,
		driverSlips:   make([]*models.DriverReturnSlip, 0),
		merchantSlips: make([]*models.MerchantSlip, 0),
		yearSeq:       make(map[int]int),
	}
}

// OrdersWithDriver returns frozen copies of the orders whose merchandise is
// still with the given driver, postponed orders included.
func (e *Engine) OrdersWithDriver(driverName string) []models.Order {
	var held []models.Order

	e.ledger.Atomically(func(tx *ledger.Tx) {
		matches := tx.Filter(func(o *models.Order) bool {
			return o.Driver == driverName && o.Status.IsDriverHeldReturn()
		})
		held = models.CloneOrders(matches)
	})

	return held
}

// MarkReceivedAtBranch moves orders from the driver-held pool into the
// branch-held pool. This is the only transition that does so. Missing ids
// are skipped, never fatal.
func (e *Engine) MarkReceivedAtBranch(orderIDs []string) (updated int, missing []string) {
	return e.ledger.BulkUpdateStatus(orderIDs, models.StatusReturnedToBranch)
}

// CreateDriverReturnSlip snapshots the selected driver-held orders into an
// immutable driver return slip and marks them received at the branch, both
// in one critical section.
func (e *Engine) CreateDriverReturnSlip(driverName string, orderIDs []string) (*models.DriverReturnSlip, error) {
	if driverName == "" {
		return nil, apperrors.NewValidationError("driver return slip: driver is required")
	}

	if len(orderIDs) == 0 {
		return nil, apperrors.NewEmptySelectionError("driver return slip")
	}

	var (
		slip    *models.DriverReturnSlip
		slipErr error
	)

	e.ledger.Atomically(func(tx *ledger.Tx) {
		eligible := make([]*models.Order, 0, len(orderIDs))
		eligibleIDs := make([]string, 0, len(orderIDs))
		var skipped []string

		for _, id := range orderIDs {
			o, ok := tx.Get(id)

			if !ok || o.Driver != driverName || !o.Status.IsDriverHeldReturn() {
				skipped = append(skipped, id)
				continue
			}

			eligible = append(eligible, o)
			eligibleIDs = append(eligibleIDs, id)
		}

		if len(skipped) > 0 {
			e.logger.Warn("Driver return selection skipped ineligible orders",
				"driver", driverName, "skipped", skipped)
		}

		if len(eligible) == 0 {
			slipErr = apperrors.NewValidationError("driver return slip: no returnable orders in selection")
			return
		}

		slip = &models.DriverReturnSlip{
			ID:         models.GenerateID("drs"),
			DriverName: driverName,
			Date:       models.GetCurrentTime().Format(models.SlipDateLayout),
			ItemCount:  len(eligible),
			Orders:     models.CloneOrders(eligible),
		}

		tx.BulkUpdateStatus(eligibleIDs, models.StatusReturnedToBranch)
		e.driverSlips = append(e.driverSlips, slip)

		tx.Record(models.NewEvent(models.EventDriverReturnSlipCreated, "driver_return_slip", slip.ID, slip))
	})

	if slipErr != nil {
		return nil, slipErr
	}

	e.logger.Info("Driver return slip created",
		"slip_id", slip.ID, "driver", driverName, "items", slip.ItemCount)

	out := *slip
	return &out, nil
}

// OrdersAwaitingMerchantPackaging returns the orders that have reached the
// branch (or are otherwise returnable) and are not yet referenced by any
// merchant slip. Recomputed live on every call.
func (e *Engine) OrdersAwaitingMerchantPackaging() []models.Order {
	var awaiting []models.Order

	e.ledger.Atomically(func(tx *ledger.Tx) {
		awaiting = models.CloneOrders(e.awaitingLocked(tx))
	})

	return awaiting
}

func (e *Engine) awaitingLocked(tx *ledger.Tx) []*models.Order {
	packaged := make(map[string]bool)

	for _, s := range e.merchantSlips {
		for i := range s.Orders {
			packaged[s.Orders[i].ID] = true
		}
	}

	return tx.Filter(func(o *models.Order) bool {
		if packaged[o.ID] {
			return false
		}

		return o.Status.IsReturnable() || o.Status == models.StatusReturnedToBranch
	})
}

// CreateMerchantSlip packages awaiting orders for a single merchant. A
// cross-merchant selection fails naming the mismatch and creates nothing;
// order statuses are untouched either way (pool membership is derived from
// slip contents, not status).
func (e *Engine) CreateMerchantSlip(orderIDs []string) (*models.MerchantSlip, error) {
	if len(orderIDs) == 0 {
		return nil, apperrors.NewEmptySelectionError("merchant slip")
	}

	var (
		slip    *models.MerchantSlip
		slipErr error
	)

	e.ledger.Atomically(func(tx *ledger.Tx) {
		awaiting := make(map[string]*models.Order)

		for _, o := range e.awaitingLocked(tx) {
			awaiting[o.ID] = o
		}

		selected := make([]*models.Order, 0, len(orderIDs))
		merchant := ""
		var skipped []string

		for _, id := range orderIDs {
			o, ok := awaiting[id]

			if !ok {
				skipped = append(skipped, id)
				continue
			}

			if merchant == "" {
				merchant = o.Merchant
			} else if o.Merchant != merchant {
				slipErr = apperrors.NewMerchantMismatchError(merchant, o.Merchant)
				return
			}

			selected = append(selected, o)
		}

		if len(skipped) > 0 {
			e.logger.Warn("Merchant slip selection skipped orders not awaiting packaging", "skipped", skipped)
		}

		if len(selected) == 0 {
			slipErr = apperrors.NewValidationError("merchant slip: no orders awaiting packaging in selection")
			return
		}

		slip = &models.MerchantSlip{
			ID:        e.nextMerchantSlipIDLocked(),
			Merchant:  merchant,
			Date:      models.GetCurrentTime().Format(models.SlipDateLayout),
			ItemCount: len(selected),
			Status:    models.MerchantSlipReadyForDelivery,
			Orders:    models.CloneOrders(selected),
		}

		e.merchantSlips = append(e.merchantSlips, slip)

		tx.Record(models.NewEvent(models.EventMerchantSlipCreated, "merchant_slip", slip.ID, slip))
	})

	if slipErr != nil {
		return nil, slipErr
	}

	e.logger.Info("Merchant slip created",
		"slip_id", slip.ID, "merchant", slip.Merchant, "items", slip.ItemCount)

	out := *slip
	return &out, nil
}

// nextMerchantSlipIDLocked issues ids scoped per calendar year with a
// zero-padded sequence unique within that year, e.g. RTM-2026-0007.
func (e *Engine) nextMerchantSlipIDLocked() string {
	year := models.GetCurrentTime().Year()
	e.yearSeq[year]++

	return fmt.Sprintf("RTM-%d-%04d", year, e.yearSeq[year])
}

// ConfirmMerchantSlipDelivered marks a slip as handed over to the merchant.
// Unknown or already-delivered slips are a no-op: confirming twice is not an
// error.
func (e *Engine) ConfirmMerchantSlipDelivered(slipID string) {
	e.ledger.Atomically(func(tx *ledger.Tx) {
		for _, s := range e.merchantSlips {
			if s.ID != slipID || s.Status != models.MerchantSlipReadyForDelivery {
				continue
			}

			s.Status = models.MerchantSlipDelivered
			tx.Record(models.NewEvent(models.EventMerchantSlipDelivered, "merchant_slip", s.ID, map[string]interface{}{
				"slip_id":  s.ID,
				"merchant": s.Merchant,
			}))
			e.logger.Info("Merchant slip delivered", "slip_id", s.ID, "merchant", s.Merchant)
			return
		}
	})
}

// SlipFilter narrows merchant slip listings. Zero values leave a dimension
// unbounded.
type SlipFilter struct {
	Merchant string
	Status   models.MerchantSlipStatus
	From     time.Time
	To       time.Time
}

// MerchantSlips returns value copies of the merchant slips matching the
// filter, oldest first. Slips whose date does not parse are excluded from
// date-bounded queries rather than failing the listing.
func (e *Engine) MerchantSlips(filter SlipFilter) []models.MerchantSlip {
	var out []models.MerchantSlip

	e.ledger.Atomically(func(tx *ledger.Tx) {
		for _, s := range e.merchantSlips {
			if filter.Merchant != "" && s.Merchant != filter.Merchant {
				continue
			}

			if filter.Status != "" && s.Status != filter.Status {
				continue
			}

			if !filter.From.IsZero() || !filter.To.IsZero() {
				date, err := models.ParseSlipDate(s.Date)

				if err != nil {
					e.logger.Warn("Merchant slip excluded from date filter: unparseable date",
						"slip_id", s.ID, "date", s.Date)
					continue
				}

				if !filter.From.IsZero() && date.Before(filter.From) {
					continue
				}

				if !filter.To.IsZero() && date.After(filter.To) {
					continue
				}
			}

			out = append(out, *s)
		}
	})

	return out
}

// DriverReturnSlips returns value copies of all driver return slips, oldest
// first.
func (e *Engine) DriverReturnSlips() []models.DriverReturnSlip {
	var out []models.DriverReturnSlip

	e.ledger.Atomically(func(tx *ledger.Tx) {
		out = make([]models.DriverReturnSlip, 0, len(e.driverSlips))

		for _, s := range e.driverSlips {
			out = append(out, *s)
		}
	})

	return out
}

// RestoreMerchantSlips seeds the engine with previously persisted slips and
// rebuilds the per-year id sequence so new ids never collide. Used by the
// sync layer on startup.
func (e *Engine) RestoreMerchantSlips(slips []models.MerchantSlip) {
	e.ledger.Atomically(func(tx *ledger.Tx) {
		for i := range slips {
			s := slips[i]
			e.merchantSlips = append(e.merchantSlips, &s)

			var year, seq int

			if n, err := fmt.Sscanf(s.ID, "RTM-%d-%d", &year, &seq); err == nil && n == 2 {
				if seq > e.yearSeq[year] {
					e.yearSeq[year] = seq
				}
			}
		}
	})
}
