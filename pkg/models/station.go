package models

import "time"

type StationRentalStatus string

const (
	StationRentalPending   StationRentalStatus = "pending"
	StationRentalConfirmed StationRentalStatus = "confirmed"
	StationRentalCompleted StationRentalStatus = "completed"
	StationRentalCancelled StationRentalStatus = "cancelled"
)

type BatteryCondition string

const (
	BatteryConditionExcellent BatteryCondition = "excellent"
	BatteryConditionGood      BatteryCondition = "good"
	BatteryConditionFair      BatteryCondition = "fair"
	BatteryConditionPoor      BatteryCondition = "poor"
)

func (c BatteryCondition) Valid() bool {
	switch c {
	case BatteryConditionExcellent, BatteryConditionGood, BatteryConditionFair, BatteryConditionPoor:
		return true
	}
	return false
}

type Station struct {
	ID            uint    `gorm:"primaryKey"`
	Name          string  `gorm:"uniqueIndex;size:100;not null"`
	Address       string  `gorm:"size:200"`
	Phone         string  `gorm:"size:20"`
	Latitude      float64 `gorm:"not null"`
	Longitude     float64 `gorm:"not null"`
	Description   string  `gorm:"size:500"`
	BusinessHours string  `gorm:"size:50;default:09:00-21:00"`

	MaxBatteries     int `gorm:"default:100"`
	CurrentBatteries int `gorm:"default:0"`

	IsActive  bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Rentals []StationRental `gorm:"foreignKey:StationID" json:"-"`
}

type StationRental struct {
	ID        uint   `gorm:"primaryKey"`
	StationID uint   `gorm:"index;not null"`
	UserID    string `gorm:"index;not null"`
	BatteryID uint   `gorm:"index;not null"`

	RentalDate         time.Time
	ExpectedReturnDate time.Time
	ActualReturnDate   *time.Time

	RentalAmountCents int64
	Status            StationRentalStatus `gorm:"type:varchar(20);default:pending;check:status IN ('pending','confirmed','completed','cancelled')"`
	Notes             string              `gorm:"size:500"`
	CreatedAt         time.Time
}

type StationReturn struct {
	ID        uint   `gorm:"primaryKey"`
	RentalID  uint   `gorm:"uniqueIndex;not null"`
	StationID uint   `gorm:"index;not null"`
	UserID    string `gorm:"index;not null"`

	Condition     BatteryCondition `gorm:"type:varchar(20);default:good"`
	ExtraFeeCents int64
	RefundCents   int64
	Notes         string `gorm:"size:500"`
	CreatedAt     time.Time
}
