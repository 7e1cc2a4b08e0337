// Package inventory implements the availability rules of the three
// fulfillment models and the periodic restoration of capacity.
package inventory

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/validation"
)

// Updatable inventory fields, keyed by their JSON name.
const (
	FieldStock             = "stock"
	FieldLowStockThreshold = "lowStockThreshold"
	FieldTotalCapacity     = "totalCapacity"
	FieldRemainingCapacity = "remainingCapacity"
	FieldCapacityPeriod    = "capacityPeriod"
	FieldAvailableQuantity = "availableQuantity"
	FieldNextAvailableDate = "nextAvailableDate"
)

// Low-availability cut-offs for the capacity based models.
const (
	LowCapacityThreshold  = 1
	LowAvailableThreshold = 5
)

var applicableFields = map[models.FulfillmentType][]string{
	models.ReadyToShip:    {FieldStock, FieldLowStockThreshold},
	models.MadeToOrder:    {FieldTotalCapacity, FieldRemainingCapacity, FieldCapacityPeriod},
	models.ScheduledOrder: {FieldAvailableQuantity, FieldNextAvailableDate, FieldCapacityPeriod, FieldTotalCapacity},
}

// PeriodDuration returns the fixed length of a capacity period.
func PeriodDuration(p models.CapacityPeriod) (time.Duration, bool) {
	switch p {
	case models.PeriodDaily:
		return 24 * time.Hour, true
	case models.PeriodWeekly:
		return 7 * 24 * time.Hour, true
	case models.PeriodMonthly:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// ValidationResult is the outcome of ValidateInventoryUpdate. Value holds
// the normalized value (int, models.CapacityPeriod or time.Time) when valid.
type ValidationResult struct {
	IsValid bool                `json:"isValid"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Value   interface{}         `json:"-"`
}

// Err returns the result as an *apperr.ValidationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &apperr.ValidationError{Fields: r.Errors}
}

// CapacityResult is the outcome of CalculateRemainingCapacity.
type CapacityResult struct {
	TotalCapacity     int `json:"totalCapacity"`
	RemainingCapacity int `json:"remainingCapacity"`
}

// DisplayData is what a storefront shows for a product's availability.
type DisplayData struct {
	Current           int                    `json:"current"`
	Total             *int                   `json:"total,omitempty"`
	Unit              string                 `json:"unit"`
	Period            *models.CapacityPeriod `json:"period,omitempty"`
	NextAvailableDate *time.Time             `json:"nextAvailableDate,omitempty"`
	IsLow             bool                   `json:"isLow"`
	LowMessage        string                 `json:"lowMessage,omitempty"`
}

// RestorationCheck is a due refill for one product. Only the fields of the
// product's fulfillment type are meaningful.
type RestorationCheck struct {
	ProductID       string                 `json:"productId"`
	FulfillmentType models.FulfillmentType `json:"fulfillmentType"`

	// made_to_order
	RemainingCapacity int        `json:"remainingCapacity,omitempty"`
	LastRestoredAt    *time.Time `json:"lastRestoredAt,omitempty"`

	// scheduled_order
	AvailableQuantity int        `json:"availableQuantity,omitempty"`
	NextAvailableDate *time.Time `json:"nextAvailableDate,omitempty"`

	// Snapshot values the refill was computed from. The store only applies
	// the refill while the row still holds them.
	PreviousRestoredAt    *time.Time `json:"-"`
	PreviousAvailableDate *time.Time `json:"-"`
}

// Model computes over one product snapshot. It never persists anything.
type Model struct {
	p models.Product
}

// NewModel wraps a product snapshot.
func NewModel(p models.Product) Model {
	return Model{p: p}
}

// Product returns the wrapped snapshot.
func (m Model) Product() models.Product { return m.p }

// ValidateInventoryUpdate checks that value can be written to field on this
// product. Failures are returned in the result.
func (m Model) ValidateInventoryUpdate(field string, value interface{}) ValidationResult {
	fail := func(msg string) ValidationResult {
		return ValidationResult{Errors: []apperr.FieldError{{Field: field, Message: msg}}}
	}

	allowed, known := applicableFields[m.p.FulfillmentType]
	if !known {
		return fail(fmt.Sprintf("product has unknown fulfillment type %q", m.p.FulfillmentType))
	}
	if !contains(allowed, field) {
		if !isInventoryField(field) {
			return fail("is not an inventory field")
		}
		return fail(fmt.Sprintf("does not apply to %s products", m.p.FulfillmentType))
	}

	switch field {
	case FieldCapacityPeriod:
		s, ok := value.(string)
		if !ok {
			return fail("must be a string")
		}
		if err := validation.Var(field, s, "required,oneof=daily weekly monthly"); err != nil {
			return resultFrom(err)
		}
		return ValidationResult{IsValid: true, Value: models.CapacityPeriod(s)}

	case FieldNextAvailableDate:
		s, ok := value.(string)
		if !ok {
			return fail("must be an RFC 3339 date string")
		}
		if err := validation.Var(field, s, "required,datetime="+time.RFC3339); err != nil {
			return resultFrom(err)
		}
		t, _ := time.Parse(time.RFC3339, s)
		return ValidationResult{IsValid: true, Value: t.UTC()}
	}

	n, err := toInt(value)
	if err != nil {
		return fail(err.Error())
	}
	if n < 0 {
		return fail("must not be negative")
	}
	if field == FieldRemainingCapacity && n > m.p.TotalCapacity {
		return fail(fmt.Sprintf("must not exceed totalCapacity (%d)", m.p.TotalCapacity))
	}
	return ValidationResult{IsValid: true, Value: n}
}

// CalculateRemainingCapacity keeps the used amount constant across a change
// of total capacity.
func (m Model) CalculateRemainingCapacity(newTotal int) CapacityResult {
	if newTotal < 0 {
		newTotal = 0
	}
	used := m.p.TotalCapacity - m.p.RemainingCapacity
	if used < 0 {
		used = 0
	}
	remaining := newTotal - used
	if remaining < 0 {
		remaining = 0
	}
	if remaining > newTotal {
		remaining = newTotal
	}
	return CapacityResult{TotalCapacity: newTotal, RemainingCapacity: remaining}
}

// ApplyUpdate validates and applies a single field change, returning the
// updated snapshot. The receiver is not modified.
func (m Model) ApplyUpdate(field string, value interface{}) (models.Product, ValidationResult) {
	res := m.ValidateInventoryUpdate(field, value)
	if !res.IsValid {
		return m.p, res
	}

	p := m.p
	switch field {
	case FieldStock:
		p.Stock = res.Value.(int)
	case FieldLowStockThreshold:
		n := res.Value.(int)
		p.LowStockThreshold = &n
	case FieldTotalCapacity:
		if p.FulfillmentType == models.MadeToOrder {
			c := m.CalculateRemainingCapacity(res.Value.(int))
			p.TotalCapacity, p.RemainingCapacity = c.TotalCapacity, c.RemainingCapacity
		} else {
			p.TotalCapacity = res.Value.(int)
		}
	case FieldRemainingCapacity:
		p.RemainingCapacity = res.Value.(int)
	case FieldCapacityPeriod:
		period := res.Value.(models.CapacityPeriod)
		p.CapacityPeriod = &period
	case FieldAvailableQuantity:
		p.AvailableQuantity = res.Value.(int)
	case FieldNextAvailableDate:
		t := res.Value.(time.Time)
		p.NextAvailableDate = &t
	}
	return p, res
}

// GetInventoryDisplayData derives what the storefront should show.
func (m Model) GetInventoryDisplayData() DisplayData {
	p := m.p
	switch p.FulfillmentType {
	case models.MadeToOrder:
		total := p.TotalCapacity
		d := DisplayData{Current: p.RemainingCapacity, Total: &total, Unit: "slots", Period: p.CapacityPeriod}
		if p.RemainingCapacity <= LowCapacityThreshold {
			d.IsLow = true
			d.LowMessage = capacityMessage(p.RemainingCapacity, p.Period())
		}
		return d

	case models.ScheduledOrder:
		d := DisplayData{Current: p.AvailableQuantity, Unit: "available", Period: p.CapacityPeriod, NextAvailableDate: p.NextAvailableDate}
		if p.TotalCapacity > 0 {
			total := p.TotalCapacity
			d.Total = &total
		}
		if p.AvailableQuantity <= LowAvailableThreshold {
			d.IsLow = true
			d.LowMessage = fmt.Sprintf("Only %d left in this batch", p.AvailableQuantity)
			if p.AvailableQuantity == 0 {
				d.LowMessage = "Sold out until the next batch"
			}
		}
		return d

	default:
		d := DisplayData{Current: p.Stock, Unit: "in stock"}
		if p.Stock <= p.Threshold() {
			d.IsLow = true
			d.LowMessage = fmt.Sprintf("Only %d left in stock", p.Stock)
			if p.Stock == 0 {
				d.LowMessage = "Out of stock"
			}
		}
		return d
	}
}

// CheckInventoryRestoration returns the refill due at now, if any.
// made_to_order products refill to full capacity once a whole period has
// passed since the last refill; products never restored are due at once.
// scheduled_order products reopen a batch of TotalCapacity units when
// NextAvailableDate is reached, and the date moves forward by whole periods
// until it lies after now.
func (m Model) CheckInventoryRestoration(now time.Time) []RestorationCheck {
	p := m.p
	now = now.UTC()

	switch p.FulfillmentType {
	case models.MadeToOrder:
		period, ok := PeriodDuration(p.Period())
		if !ok {
			return nil
		}
		if p.LastRestoredAt != nil && now.Before(p.LastRestoredAt.UTC().Add(period)) {
			return nil
		}
		restoredAt := now
		return []RestorationCheck{{
			ProductID:          p.ID,
			FulfillmentType:    p.FulfillmentType,
			RemainingCapacity:  p.TotalCapacity,
			LastRestoredAt:     &restoredAt,
			PreviousRestoredAt: p.LastRestoredAt,
		}}

	case models.ScheduledOrder:
		if p.NextAvailableDate == nil {
			return nil
		}
		due := p.NextAvailableDate.UTC()
		if now.Before(due) {
			return nil
		}
		check := RestorationCheck{
			ProductID:             p.ID,
			FulfillmentType:       p.FulfillmentType,
			AvailableQuantity:     p.AvailableQuantity,
			PreviousAvailableDate: p.NextAvailableDate,
		}
		if p.TotalCapacity > 0 {
			check.AvailableQuantity = p.TotalCapacity
		}
		if period, ok := PeriodDuration(p.Period()); ok {
			next := advance(due, now, period)
			check.NextAvailableDate = &next
		}
		return []RestorationCheck{check}
	}
	return nil
}

// advance moves from forward by whole periods until it is after now.
func advance(from, now time.Time, period time.Duration) time.Time {
	steps := int64(now.Sub(from)/period) + 1
	return from.Add(time.Duration(steps) * period)
}

func capacityMessage(remaining int, period models.CapacityPeriod) string {
	window := "this period"
	switch period {
	case models.PeriodDaily:
		window = "today"
	case models.PeriodWeekly:
		window = "this week"
	case models.PeriodMonthly:
		window = "this month"
	}
	if remaining == 0 {
		return "Fully booked " + window
	}
	return fmt.Sprintf("Only %d slot left %s", remaining, window)
}

// toInt accepts the numeric shapes a decoded JSON body can carry and rejects
// anything that is not a whole number.
func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("must be an integer")
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("is out of range")
		}
		return int(n), nil
	case json.Number:
		i, err := strconv.ParseInt(string(n), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("must be an integer")
		}
		return int(i), nil
	}
	return 0, fmt.Errorf("must be an integer")
}

func resultFrom(err error) ValidationResult {
	if verr, ok := err.(*apperr.ValidationError); ok {
		return ValidationResult{Errors: verr.Fields}
	}
	return ValidationResult{Errors: []apperr.FieldError{{Message: err.Error()}}}
}

func isInventoryField(field string) bool {
	for _, fields := range applicableFields {
		if contains(fields, field) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
