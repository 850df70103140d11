package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vaidashi/courier-ledger/internal/config"
	"github.com/vaidashi/courier-ledger/internal/models"
	apperrors "github.com/vaidashi/courier-ledger/pkg/errors"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

// Ledger is the canonical owner of the order collection. All mutations go
// through its methods; each one is a single critical section, so no caller
// ever observes a half-applied change. The settlement and returns engines
// compose multi-step transactions with Atomically.
type Ledger struct {
	mu         sync.Mutex
	orders     []*models.Order // head = most recently created
	nextNumber int64

	cfg      config.LedgerConfig
	recorder models.Recorder
	logger   logger.Logger
}

// New creates an empty ledger. A nil recorder disables event emission.
func New(cfg config.LedgerConfig, recorder models.Recorder, log logger.Logger) *Ledger {
	if recorder == nil {
		recorder = models.NopRecorder{}
	}

	if cfg.OrderPrefix == "" {
		cfg.OrderPrefix = "ORD"
	}

	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = models.StatusPending.String()
	}

	return &Ledger{
		orders:     make([]*models.Order, 0),
		nextNumber: 1,
		cfg:        cfg,
		recorder:   recorder,
		logger:     log,
	}
}

// Tx is a view of the ledger state valid only inside an Atomically callback.
type Tx struct {
	l *Ledger
}

// Atomically runs fn while holding the ledger lock. Everything done through
// the Tx is observed by other callers as one step. The callback must not
// call the ledger's public methods (the lock is not reentrant).
func (l *Ledger) Atomically(fn func(tx *Tx)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn(&Tx{l: l})
}

// CreateInput carries the caller-supplied fields for a new order.
type CreateInput struct {
	Source    string
	Status    models.OrderStatus // optional; falls back to the configured default
	Merchant  string
	Driver    string
	Recipient string
	Phone     string
	Address   string
	Region    string
	City      string

	COD                  decimal.Decimal
	DeliveryFee          decimal.Decimal
	AdditionalCost       decimal.Decimal
	DriverAdditionalFare decimal.Decimal
}

// Create assigns identity and derived fields to a new order and inserts it
// at the head of the collection. It fails only when a required identity
// field is missing.
func (l *Ledger) Create(input CreateInput) (*models.Order, error) {
	if strings.TrimSpace(input.Merchant) == "" {
		return nil, apperrors.NewValidationError("create order: merchant is required")
	}

	if strings.TrimSpace(input.Recipient) == "" {
		return nil, apperrors.NewValidationError("create order: recipient is required")
	}

	status := input.Status

	if status == "" {
		status = models.OrderStatus(l.cfg.DefaultStatus)
	}

	if !status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("create order: unknown status %q", status))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	number := l.nextNumber
	l.nextNumber++

	now := models.GetCurrentTime()
	order := &models.Order{
		ID:             fmt.Sprintf("%s-%d", l.cfg.OrderPrefix, number),
		OrderNumber:    number,
		Source:         input.Source,
		Status:         status,
		PreviousStatus: "",
		Merchant:       input.Merchant,
		Driver:         input.Driver,
		Recipient:      input.Recipient,
		Phone:          input.Phone,
		Address:        input.Address,
		Region:         input.Region,
		City:           input.City,

		COD:                  input.COD,
		DeliveryFee:          input.DeliveryFee,
		AdditionalCost:       input.AdditionalCost,
		DriverFee:            l.driverFeeFor(input.City),
		DriverAdditionalFare: input.DriverAdditionalFare,

		CreatedAt: now,
		UpdatedAt: now,
	}
	order.RecomputeItemPrice()

	l.orders = append([]*models.Order{order}, l.orders...)

	l.recorder.Record(models.NewEvent(models.EventOrderCreated, "order", order.ID, order))
	l.logger.Info("Order created", "order_id", order.ID, "order_number", number, "merchant", order.Merchant)

	out := *order
	return &out, nil
}

// driverFeeFor applies the destination-city fee rule.
func (l *Ledger) driverFeeFor(city string) decimal.Decimal {
	if l.cfg.HomeCity != "" && strings.EqualFold(strings.TrimSpace(city), l.cfg.HomeCity) {
		return l.cfg.HomeCityDriverFee
	}

	return l.cfg.DefaultDriverFee
}

// SetAll replaces the whole collection. Orders without a number are assigned
// sequential numbers in input order; the counter becomes max(number)+1. This
// is the sole bulk-import entry point, so external sync layers cannot break
// the numbering invariant.
func (l *Ledger) SetAll(orders []models.Order) error {
	seenIDs := make(map[string]bool, len(orders))

	for i := range orders {
		id := orders[i].ID

		if id == "" {
			continue
		}

		if seenIDs[id] {
			return apperrors.NewValidationError(fmt.Sprintf("set all: duplicate order id %q", id))
		}

		seenIDs[id] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var maxNumber int64
	seenNumbers := make(map[int64]bool, len(orders))

	for i := range orders {
		n := orders[i].OrderNumber

		if n > 0 && !seenNumbers[n] {
			seenNumbers[n] = true

			if n > maxNumber {
				maxNumber = n
			}
		}
	}

	replacement := make([]*models.Order, 0, len(orders))

	for i := range orders {
		o := orders[i] // copy

		// Missing and colliding numbers both get a fresh one.
		if o.OrderNumber <= 0 || replacementHasNumber(replacement, o.OrderNumber) {
			maxNumber++
			o.OrderNumber = maxNumber
		}

		if o.ID == "" {
			o.ID = fmt.Sprintf("%s-%d", l.cfg.OrderPrefix, o.OrderNumber)
		}

		replacement = append(replacement, &o)
	}

	l.orders = replacement
	l.nextNumber = maxNumber + 1

	l.recorder.Record(models.NewEvent(models.EventOrdersReplaced, "ledger", "ledger", map[string]interface{}{
		"count": len(replacement),
	}))
	l.logger.Info("Ledger replaced", "count", len(replacement), "next_number", l.nextNumber)

	return nil
}

func replacementHasNumber(orders []*models.Order, n int64) bool {
	for _, o := range orders {
		if o.OrderNumber == n {
			return true
		}
	}
	return false
}

// UpdateStatus records the current status as previous and applies the new
// one. A missing id is reported as not found, which batch callers treat as
// non-fatal.
func (l *Ledger) UpdateStatus(id string, newStatus models.OrderStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return (&Tx{l: l}).UpdateStatus(id, newStatus)
}

// UpdateField applies a single-field mutation. Writing "status" behaves
// exactly like UpdateStatus; writing any of the three price components
// recomputes the merchant payable afterwards.
func (l *Ledger) UpdateField(id, field string, value interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{l: l}

	if field == "status" {
		status, err := coerceStatus(value)

		if err != nil {
			return err
		}

		return tx.UpdateStatus(id, status)
	}

	order, ok := tx.Get(id)

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %q not found", id))
	}

	if err := applyField(order, field, value); err != nil {
		return err
	}

	switch field {
	case "cod", "delivery_fee", "additional_cost":
		order.RecomputeItemPrice()
	}

	order.UpdatedAt = models.GetCurrentTime()

	l.recorder.Record(models.NewEvent(models.EventOrderUpdated, "order", order.ID, map[string]interface{}{
		"order_id": order.ID,
		"field":    field,
	}))

	return nil
}

// BulkUpdateStatus applies UpdateStatus to every id. Missing ids are skipped
// and returned; they never abort the rest of the batch.
func (l *Ledger) BulkUpdateStatus(ids []string, newStatus models.OrderStatus) (updated int, missing []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return (&Tx{l: l}).BulkUpdateStatus(ids, newStatus)
}

// Delete removes matching orders and reports how many were removed. Orders
// referenced by slips are not protected: slips hold frozen copies, so the
// settlement history survives the live record.
func (l *Ledger) Delete(ids []string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	idSet := make(map[string]bool, len(ids))

	for _, id := range ids {
		idSet[id] = true
	}

	kept := l.orders[:0]
	deleted := 0
	deletedIDs := make([]string, 0, len(ids))

	for _, o := range l.orders {
		if idSet[o.ID] {
			deleted++
			deletedIDs = append(deletedIDs, o.ID)
			continue
		}

		kept = append(kept, o)
	}

	l.orders = kept

	if deleted > 0 {
		l.recorder.Record(models.NewEvent(models.EventOrdersDeleted, "ledger", "ledger", map[string]interface{}{
			"order_ids": deletedIDs,
		}))
		l.logger.Info("Orders deleted", "count", deleted)
	}

	return deleted
}

// Get returns a value copy of the order with the given id.
func (l *Ledger) Get(id string) (models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if o, ok := (&Tx{l: l}).Get(id); ok {
		return *o, nil
	}

	return models.Order{}, apperrors.NewNotFoundError(fmt.Sprintf("order %q not found", id))
}

// Snapshot returns value copies of all orders in display order (most recent
// first).
func (l *Ledger) Snapshot() []models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Order, 0, len(l.orders))

	for _, o := range l.orders {
		out = append(out, *o)
	}

	return out
}

// Count returns the number of live orders.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.orders)
}

// Get returns the live order for id, or false. Valid only inside the
// enclosing critical section.
func (tx *Tx) Get(id string) (*models.Order, bool) {
	for _, o := range tx.l.orders {
		if o.ID == id {
			return o, true
		}
	}

	return nil, false
}

// Filter returns the live orders matching pred, preserving display order.
func (tx *Tx) Filter(pred func(*models.Order) bool) []*models.Order {
	var out []*models.Order

	for _, o := range tx.l.orders {
		if pred(o) {
			out = append(out, o)
		}
	}

	return out
}

// UpdateStatus is the in-transaction form of Ledger.UpdateStatus.
func (tx *Tx) UpdateStatus(id string, newStatus models.OrderStatus) error {
	order, ok := tx.Get(id)

	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %q not found", id))
	}

	oldStatus := order.Status
	order.PreviousStatus = oldStatus
	order.Status = newStatus
	order.UpdatedAt = models.GetCurrentTime()

	tx.l.recorder.Record(models.NewOrderStatusChangedEvent(order, oldStatus))

	return nil
}

// BulkUpdateStatus is the in-transaction form of Ledger.BulkUpdateStatus.
func (tx *Tx) BulkUpdateStatus(ids []string, newStatus models.OrderStatus) (updated int, missing []string) {
	for _, id := range ids {
		if err := tx.UpdateStatus(id, newStatus); err != nil {
			missing = append(missing, id)
			continue
		}

		updated++
	}

	if len(missing) > 0 {
		tx.l.logger.Warn("Bulk status update skipped unknown orders", "missing", missing, "new_status", newStatus)
	}

	return updated, missing
}

// Record queues an event from inside a transaction.
func (tx *Tx) Record(e models.Event) {
	tx.l.recorder.Record(e)
}

func coerceStatus(value interface{}) (models.OrderStatus, error) {
	var status models.OrderStatus

	switch v := value.(type) {
	case models.OrderStatus:
		status = v
	case string:
		status = models.OrderStatus(v)
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("status value has unsupported type %T", value))
	}

	if !status.IsValid() {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}

	return status, nil
}

// coerceDecimal converts the loosely-typed field values callers send into a
// decimal, treating missing or unparseable input as zero.
func coerceDecimal(value interface{}) decimal.Decimal {
	switch v := value.(type) {
	case decimal.Decimal:
		return v
	case string:
		d, err := decimal.NewFromString(v)

		if err != nil {
			return decimal.Zero
		}

		return d
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case nil:
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

func applyField(order *models.Order, field string, value interface{}) error {
	asString := func() string {
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", value)
	}

	switch field {
	case "cod":
		order.COD = coerceDecimal(value)
	case "delivery_fee":
		order.DeliveryFee = coerceDecimal(value)
	case "additional_cost":
		order.AdditionalCost = coerceDecimal(value)
	case "driver_fee":
		order.DriverFee = coerceDecimal(value)
	case "driver_additional_fare":
		order.DriverAdditionalFare = coerceDecimal(value)
	case "source":
		order.Source = asString()
	case "merchant":
		order.Merchant = asString()
	case "driver":
		order.Driver = asString()
	case "recipient":
		order.Recipient = asString()
	case "phone":
		order.Phone = asString()
	case "address":
		order.Address = asString()
	case "region":
		order.Region = asString()
	case "city":
		order.City = asString()
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown field %q", field))
	}

	return nil
}
