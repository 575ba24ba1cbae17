package models

import "time"

type BatteryStatus string

const (
	BatteryStatusAvailable   BatteryStatus = "available"
	BatteryStatusRented      BatteryStatus = "rented"
	BatteryStatusMaintenance BatteryStatus = "maintenance"
	BatteryStatusRetired     BatteryStatus = "retired"
)

func (s BatteryStatus) Valid() bool {
	switch s {
	case BatteryStatusAvailable, BatteryStatusRented, BatteryStatusMaintenance, BatteryStatusRetired:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusActive    OrderStatus = "active"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type BatteryCategory struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;size:50;not null"`
	Description string `gorm:"size:200"`
	Icon        string `gorm:"size:50"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Types []BatteryType `gorm:"foreignKey:CategoryID" json:"-"`
}

type BatteryType struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:50;not null"`
	CategoryID  uint   `gorm:"index;not null"`
	Description string `gorm:"size:200"`
	CreatedAt   time.Time

	Batteries []Battery `gorm:"foreignKey:TypeID" json:"-"`
}

type Battery struct {
	ID           uint          `gorm:"primaryKey"`
	Name         string        `gorm:"size:100;not null"`
	TypeID       uint          `gorm:"index;not null"`
	SerialNumber string        `gorm:"uniqueIndex;size:50;not null"`
	Status       BatteryStatus `gorm:"type:varchar(20);index;default:available;check:status IN ('available','rented','maintenance','retired')"`

	CapacityAh float64
	VoltageV   float64
	PowerW     float64
	WeightKg   float64

	// Pricing is in cents; orders copy it at creation time.
	DailyPriceCents int64
	DepositCents    int64

	Location  string `gorm:"size:100"`
	Latitude  *float64
	Longitude *float64

	CreatedAt time.Time
	UpdatedAt time.Time

	Orders  []RentalOrder   `gorm:"foreignKey:BatteryID" json:"-"`
	Usages  []BatteryUsage  `gorm:"foreignKey:BatteryID" json:"-"`
	Reviews []BatteryReview `gorm:"foreignKey:BatteryID" json:"-"`
}

type RentalOrder struct {
	ID          uint   `gorm:"primaryKey"`
	OrderNumber string `gorm:"uniqueIndex;size:20;not null"`
	UserID      string `gorm:"index;not null"`
	BatteryID   uint   `gorm:"index;not null"`
	StartDate   time.Time
	EndDate     time.Time
	RentalDays  int

	DailyPriceCents int64
	TotalCents      int64
	DepositCents    int64

	Status    OrderStatus `gorm:"type:varchar(20);index;default:pending;check:status IN ('pending','confirmed','active','completed','cancelled')"`
	Notes     string      `gorm:"size:500"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BatteryUsage is one user's occupancy of one battery, opened when an order activates.
type BatteryUsage struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	BatteryID uint   `gorm:"index;not null"`
	OrderID   uint   `gorm:"index"`

	// StartTime is the anchor of the current discharge segment.
	StartTime time.Time
	EndTime   *time.Time

	CurrentCharge   int `gorm:"check:current_charge BETWEEN 0 AND 100"`
	IsDischarging   bool
	BaselineCharge  int
	TotalUsageHours float64
	IsActive        bool `gorm:"index"`

	Version   uint `gorm:"not null;default:0"`
	CreatedAt time.Time
}

type BatteryReview struct {
	ID        uint   `gorm:"primaryKey"`
	BatteryID uint   `gorm:"uniqueIndex:idx_review_battery_user;not null"`
	UserID    string `gorm:"uniqueIndex:idx_review_battery_user;not null"`
	Rating    int    `gorm:"check:rating BETWEEN 1 AND 5"`
	Comment   string `gorm:"size:500"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Replies []ReviewReply `gorm:"foreignKey:ReviewID" json:",omitempty"`
}

type ReviewReply struct {
	ID            uint   `gorm:"primaryKey"`
	ReviewID      uint   `gorm:"index;not null"`
	UserID        string `gorm:"index;not null"`
	ParentReplyID *uint  `gorm:"index"`
	Content       string `gorm:"size:500"`
	CreatedAt     time.Time
}

type PointType string

const (
	PointTypeEarn   PointType = "earn"
	PointTypeSpend  PointType = "spend"
	PointTypeExpire PointType = "expire"
	PointTypeRefund PointType = "refund"
)

type PointsRecord struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       string `gorm:"index;not null"`
	Points       int
	Type         PointType `gorm:"type:varchar(10);check:type IN ('earn','spend','expire','refund')"`
	Reason       string    `gorm:"size:100"`
	Description  string    `gorm:"size:200"`
	BalanceAfter int
	CreatedAt    time.Time
}

type MessageType string

const (
	MessageTypeSystem       MessageType = "system"
	MessageTypeNotification MessageType = "notification"
	MessageTypePromotion    MessageType = "promotion"
	MessageTypeReminder     MessageType = "reminder"
)

type UserMessage struct {
	ID          uint        `gorm:"primaryKey"`
	UserID      string      `gorm:"index;not null"`
	Type        MessageType `gorm:"type:varchar(20);check:type IN ('system','notification','promotion','reminder')"`
	Title       string      `gorm:"size:100"`
	Content     string
	IsRead      bool
	IsImportant bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
