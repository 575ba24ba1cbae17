package models

import "time"

// UsageSnapshot is what a poll of the current usage returns after reconciliation.
type UsageSnapshot struct {
	SessionID      uint       `json:"session_id"`
	OrderID        uint       `json:"order_id"`
	BatteryID      uint       `json:"battery_id"`
	BatteryName    string     `json:"battery_name"`
	SerialNumber   string     `json:"serial_number"`
	CurrentCharge  int        `json:"current_charge"`
	BaselineCharge int        `json:"baseline_charge"`
	IsDischarging  bool       `json:"is_discharging"`
	IsActive       bool       `json:"is_active"`
	ElapsedHours   float64    `json:"elapsed_hours"`
	DrainRate      float64    `json:"drain_rate_per_hour"`
	HoursRemaining float64    `json:"hours_remaining"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	CompletedOrder string     `json:"completed_order,omitempty"`
	ReconciledAt   time.Time  `json:"reconciled_at"`
}

// CompletionReceipt is returned when an order completes, explicitly or by depletion.
type CompletionReceipt struct {
	OrderID       uint      `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	BatteryID     uint      `json:"battery_id"`
	TotalCents    int64     `json:"total_cents"`
	RefundCents   int64     `json:"refund_cents"`
	FinalCharge   int       `json:"final_charge"`
	UsageHours    float64   `json:"usage_hours"`
	PointsAwarded int       `json:"points_awarded"`
	CompletedAt   time.Time `json:"completed_at"`
}

type BatteryFilter struct {
	CategoryID    uint
	TypeID        uint
	Search        string
	MinPriceCents *int64
	MaxPriceCents *int64
	Status        BatteryStatus
	Page          int
}

type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

type UsageStats struct {
	TotalUsage int64   `json:"total_usage"`
	AvgCharge  float64 `json:"avg_charge"`
}

type BatteryDetail struct {
	Battery   Battery         `json:"battery"`
	AvgRating float64         `json:"avg_rating"`
	Reviews   []BatteryReview `json:"reviews"`
	Usage     UsageStats      `json:"usage_stats"`
	Related   []Battery       `json:"related"`
}

type CategorySummary struct {
	BatteryCategory
	BatteryCount int64 `json:"battery_count"`
}

type NearbyStation struct {
	Station
	DistanceMeters float64 `json:"distance"`
}

type StationReturnReceipt struct {
	RentalID      uint             `json:"rental_id"`
	StationID     uint             `json:"station_id"`
	Condition     BatteryCondition `json:"condition"`
	DaysOverdue   int              `json:"days_overdue"`
	ExtraFeeCents int64            `json:"extra_fee_cents"`
	RefundCents   int64            `json:"refund_cents"`
}

type PointsSummary struct {
	Earned  int            `json:"earned"`
	Spent   int            `json:"spent"`
	Balance int            `json:"balance"`
	Records []PointsRecord `json:"records"`
}
