package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicyParams is a versioned set of replenishment parameters.
type PolicyParams struct {
	ID                         string           `json:"id" db:"id"`
	Name                       string           `json:"name" db:"name" validate:"required"`
	Version                    int              `json:"version" db:"version"`
	RunRateMethod              RunRateMethod    `json:"run_rate_method" db:"run_rate_method" validate:"required,oneof=simple_avg weighted_avg exp_smoothing"`
	AvgWindowDays              int              `json:"avg_window_days" db:"avg_window_days" validate:"gte=0"`
	RecentWeightDays           int              `json:"recent_weight_days" db:"recent_weight_days" validate:"gte=0"`
	RecentWeightFactor         float64          `json:"recent_weight_factor" db:"recent_weight_factor" validate:"gte=0"`
	LeadTimeDefaultDays        int              `json:"lead_time_default_days" db:"lead_time_default_days" validate:"gte=0"`
	SafetyStockDays            int              `json:"safety_stock_days" db:"safety_stock_days" validate:"gte=0"`
	SlowMoverQtyThreshold      int              `json:"slow_mover_qty_threshold" db:"slow_mover_qty_threshold" validate:"gte=0"`
	SlowMoverDaysSinceLastSale int              `json:"slow_mover_days_since_last_sale" db:"slow_mover_days_since_last_sale" validate:"gte=0"`
	MinRevenueThreshold        decimal.Decimal  `json:"min_revenue_threshold" db:"min_revenue_threshold"`
	RoundingStrategy           RoundingStrategy `json:"rounding_strategy" db:"rounding_strategy" validate:"required,oneof=to_multiple to_min_then_multiple"`
	IsActive                   bool             `json:"is_active" db:"is_active"`
	CreatedAt                  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt                  time.Time        `json:"updated_at" db:"updated_at"`
}
