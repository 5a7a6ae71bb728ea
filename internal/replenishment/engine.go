// Package replenishment turns an item, its sales snapshot and a policy into
// an order recommendation.
package replenishment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	daysPerYear   = 365
	forecastDays  = 60
	neverSoldDays = 9999
	hoursPerDay   = 24
)

// Engine calculates replenishment figures. It holds no state besides the clock.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for days-since-last-sale.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine using the wall clock unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate computes the recommendation for one item. Every run-rate method
// is evaluated as a simple average; RunRateMethodApplied records that.
func (e *Engine) Calculate(item domain.Item, sale domain.SalesSnapshot, policy domain.PolicyParams) domain.ReplenishmentCalculation {
	now := e.now()

	// 1. Negative sales never reduce a computed quantity
	qty := math.Max(0, sale.QtySold365)
	value := sale.ValueSold365
	if value.IsNegative() {
		value = decimal.Zero
	}

	// 2. Daily run rate
	dailyRunRate := 0.0
	if qty > 0 {
		dailyRunRate = qty / daysPerYear
	}

	// 3. Safety stock
	safetyStock := ceilQty(dailyRunRate * float64(policy.SafetyStockDays))

	// 4. Lead-time cover; an explicit zero on the item is kept
	leadTime := policy.LeadTimeDefaultDays
	if item.LeadTimeDays != nil {
		leadTime = *item.LeadTimeDays
	}
	leadTimeCover := ceilQty(dailyRunRate * float64(leadTime))

	// 5. 60-day forecast
	forecast := ceilQty(dailyRunRate * forecastDays)

	// 6. Available stock
	available := item.CurrentStock - item.ReservedQty
	if available < 0 {
		available = 0
	}

	calc := domain.ReplenishmentCalculation{
		ItemID:               item.ID,
		PolicyID:             policy.ID,
		RunRateMethodApplied: domain.RunRateSimpleAvg,
		DailyRunRate:         dailyRunRate,
		Forecast60d:          forecast,
		SafetyStock:          safetyStock,
		LeadTimeCoverQty:     leadTimeCover,
		AvailableStock:       available,
		CalcDate:             now,
	}

	// 7. Recommended order quantity
	if !item.ReorderBlocked {
		calc.GapQty = leadTimeCover + safetyStock + forecast - available
		if calc.GapQty > 0 {
			calc.RecommendedOrderQty = RoundOrder(calc.GapQty, item.MinOrderQty, item.OrderMultiple, policy.RoundingStrategy)
		}
	}

	// 8. Slow mover; revenue is reported but does not gate the flag
	daysSince := DaysSince(now, sale.LastSaleDate)
	lowQty := qty < float64(policy.SlowMoverQtyThreshold)
	stale := daysSince > policy.SlowMoverDaysSinceLastSale
	lowRevenue := policy.MinRevenueThreshold.IsPositive() && value.LessThan(policy.MinRevenueThreshold)

	if lowQty && stale {
		calc.SlowMoverFlag = true
		calc.RecommendedOrderQty = 0

		reasons := []string{
			fmt.Sprintf("sold %s/%d units", strconv.FormatFloat(sale.QtySold365, 'f', -1, 64), policy.SlowMoverQtyThreshold),
			fmt.Sprintf("last sale %d/%d days ago", daysSince, policy.SlowMoverDaysSinceLastSale),
		}
		if lowRevenue {
			reasons = append(reasons, fmt.Sprintf("revenue %s below %s", value.StringFixed(2), policy.MinRevenueThreshold.StringFixed(2)))
		}
		calc.SlowMoverReason = "Slow mover: " + strings.Join(reasons, ", ") + "."
	}

	return calc
}

// RoundOrder applies the purchasing constraints to a positive gap.
func RoundOrder(gap, minOrder, multiple int, strategy domain.RoundingStrategy) int {
	if gap <= 0 {
		return 0
	}
	if minOrder < 1 {
		minOrder = 1
	}
	if multiple < 1 {
		multiple = 1
	}

	if strategy == domain.RoundToMinThenMultiple {
		return max(minOrder, roundUpToMultiple(gap, multiple))
	}

	gapOrMin := max(gap, minOrder)
	if gapOrMin%multiple == 0 {
		return gapOrMin
	}
	return roundUpToMultiple(gapOrMin, multiple)
}

// DaysSince returns whole calendar days from last to now, or 9999 when last is nil.
func DaysSince(now time.Time, last *time.Time) int {
	if last == nil {
		return neverSoldDays
	}
	today := truncateDay(now)
	day := truncateDay(*last)
	return int(today.Sub(day).Hours() / hoursPerDay)
}

func roundUpToMultiple(qty, multiple int) int {
	return int(math.Ceil(float64(qty)/float64(multiple))) * multiple
}

func ceilQty(x float64) int {
	return int(math.Ceil(math.Max(0, x)))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
