package rental

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/geo"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

const (
	// PoorConditionDeductionCents is withheld from the refund of a battery returned damaged.
	PoorConditionDeductionCents int64 = 5000

	day = 24 * time.Hour
)

type ReturnInput struct {
	// StationID is where the battery is dropped off; zero means the station it was rented from.
	StationID uint
	Condition models.BatteryCondition
	Notes     string
}

func (r *Rental) nearbyStations(ctx context.Context, lat, lng, radiusMeters float64) ([]models.NearbyStation, error) {
	if !geo.ValidCoordinate(lat, lng) {
		return nil, invalidInput("coordinate (%v, %v) out of range", lat, lng)
	}
	if radiusMeters <= 0 {
		radiusMeters = geo.DefaultRadiusMeters
	}

	var stations []models.Station
	if err := r.Db.Conn.WithContext(ctx).Where("is_active = ?", true).Find(&stations).Error; err != nil {
		return nil, storeErr("list stations", err)
	}

	nearby := []models.NearbyStation{}
	for _, s := range stations {
		distance := geo.HaversineMeters(lat, lng, s.Latitude, s.Longitude)
		if distance <= radiusMeters {
			nearby = append(nearby, models.NearbyStation{Station: s, DistanceMeters: common.Round2(distance)})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

func loadActiveStation(tx *gorm.DB, stationID uint) (*models.Station, error) {
	return first[models.Station](tx.Where("id = ? AND is_active = ?", stationID, true), "station", stationID)
}

func (r *Rental) rentFromStation(ctx context.Context, userID string, stationID, batteryID uint, rentalDays int) (*models.StationRental, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryStation)

	if rentalDays < MinRentalDays || rentalDays > MaxRentalDays {
		return nil, invalidInput("rental days must be between %d and %d, got %d", MinRentalDays, MaxRentalDays, rentalDays)
	}

	logger.Info("Received station rental for battery", zap.String("user_id", userID),
		zap.Uint("station_id", stationID), zap.Uint("battery_id", batteryID))

	unlockUser := r.lockUser(userID)
	defer unlockUser()
	unlockBattery := r.lockBattery(batteryID)
	defer unlockBattery()

	now := r.now()
	var rental models.StationRental
	err := r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		station, err := loadActiveStation(tx, stationID)
		if err != nil {
			return err
		}
		battery, err := loadBattery(tx, batteryID)
		if err != nil {
			return err
		}
		if battery.Status != models.BatteryStatusAvailable {
			return fmt.Errorf("%w: battery %d is %s", ErrUnavailable, battery.ID, battery.Status)
		}
		if station.CurrentBatteries <= 0 {
			return fmt.Errorf("%w: station %s has no batteries in stock", ErrUnavailable, station.Name)
		}

		var cs Changeset
		cs.FlipBattery(battery.ID, battery.Status, models.BatteryStatusRented)
		if err := commit(tx, &cs); err != nil {
			return err
		}

		res := tx.Model(&models.Station{}).
			Where("id = ? AND current_batteries > 0", station.ID).
			Update("current_batteries", gorm.Expr("current_batteries - 1"))
		if err := guarded(res, "station", station.ID); err != nil {
			return err
		}

		rental = models.StationRental{
			StationID:          station.ID,
			UserID:             userID,
			BatteryID:          battery.ID,
			RentalDate:         now,
			ExpectedReturnDate: now.AddDate(0, 0, rentalDays),
			RentalAmountCents:  battery.DailyPriceCents * int64(rentalDays),
			Status:             models.StationRentalConfirmed,
		}
		return tx.Create(&rental).Error
	})
	if err != nil {
		return nil, r.failed("rent from station", err)
	}

	logger.Info("Rented battery from station", zap.Uint("rental_id", rental.ID), zap.Int64("amount_cents", rental.RentalAmountCents))
	r.Recorder.RecordTransition("station_rental", "rent")
	return &rental, nil
}

// ReturnFees works out what a return costs: half the daily price per full day overdue,
// plus a fixed deduction for a poor battery, never refunding below zero.
func ReturnFees(rental models.StationRental, dailyPriceCents int64, condition models.BatteryCondition, returnedAt time.Time) (daysOverdue int, extraFeeCents, refundCents int64) {
	if overdue := returnedAt.Sub(rental.ExpectedReturnDate); overdue > 0 {
		daysOverdue = int(overdue / day)
	}
	extraFeeCents = int64(daysOverdue) * dailyPriceCents / 2

	refundCents = rental.RentalAmountCents - extraFeeCents
	if condition == models.BatteryConditionPoor {
		refundCents -= PoorConditionDeductionCents
	}
	return daysOverdue, extraFeeCents, max(refundCents, 0)
}

func (r *Rental) returnToStation(ctx context.Context, userID string, rentalID uint, input ReturnInput) (*models.StationReturnReceipt, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryStation)

	if input.Condition == "" {
		input.Condition = models.BatteryConditionGood
	}
	if !input.Condition.Valid() {
		return nil, invalidInput("unknown battery condition %q", input.Condition)
	}
	notes := strings.TrimSpace(input.Notes)
	if len(notes) > 500 {
		return nil, invalidInput("notes must be at most 500 characters")
	}

	unlock := r.lockUser(userID)
	defer unlock()

	owned, err := first[models.StationRental](
		r.Db.Conn.WithContext(ctx).Where("id = ? AND user_id = ?", rentalID, userID), "station rental", rentalID)
	if err != nil {
		return nil, storeErr("return to station", err)
	}

	unlockBattery := r.lockBattery(owned.BatteryID)
	defer unlockBattery()

	now := r.now()
	receipt := &models.StationReturnReceipt{RentalID: rentalID, Condition: input.Condition}
	err = r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rental, err := first[models.StationRental](tx.Where("id = ? AND user_id = ?", rentalID, userID), "station rental", rentalID)
		if err != nil {
			return err
		}
		switch rental.Status {
		case models.StationRentalPending, models.StationRentalConfirmed:
		default:
			return &TransitionError{Entity: "station rental", Event: "return", Status: string(rental.Status)}
		}

		stationID := input.StationID
		if stationID == 0 {
			stationID = rental.StationID
		}
		station, err := loadActiveStation(tx, stationID)
		if err != nil {
			return err
		}
		if station.CurrentBatteries >= station.MaxBatteries {
			return fmt.Errorf("%w: station %s is full", ErrUnavailable, station.Name)
		}

		battery, err := loadBattery(tx, rental.BatteryID)
		if err != nil {
			return err
		}

		days, fee, refund := ReturnFees(*rental, battery.DailyPriceCents, input.Condition, now)

		if err := tx.Create(&models.StationReturn{
			RentalID:      rental.ID,
			StationID:     station.ID,
			UserID:        userID,
			Condition:     input.Condition,
			ExtraFeeCents: fee,
			RefundCents:   refund,
			Notes:         notes,
		}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.StationRental{}).
			Where("id = ? AND status = ?", rental.ID, rental.Status).
			Updates(map[string]any{"status": models.StationRentalCompleted, "actual_return_date": now})
		if err := guarded(res, "station rental", rental.ID); err != nil {
			return err
		}

		var cs Changeset
		if battery.Status == models.BatteryStatusRented {
			cs.FlipBattery(battery.ID, battery.Status, models.BatteryStatusAvailable)
		}
		if err := commit(tx, &cs); err != nil {
			return err
		}

		res = tx.Model(&models.Station{}).
			Where("id = ? AND current_batteries < max_batteries", station.ID).
			Update("current_batteries", gorm.Expr("current_batteries + 1"))
		if err := guarded(res, "station", station.ID); err != nil {
			return err
		}

		receipt.StationID = station.ID
		receipt.DaysOverdue = days
		receipt.ExtraFeeCents = fee
		receipt.RefundCents = refund
		return nil
	})
	if err != nil {
		return nil, r.failed("return to station", err)
	}

	logger.Info("Returned battery to station", zap.Uint("rental_id", rentalID), zap.Uint("station_id", receipt.StationID),
		zap.Int64("refund_cents", receipt.RefundCents), zap.Int("days_overdue", receipt.DaysOverdue))
	r.Recorder.RecordTransition("station_rental", "return")
	return receipt, nil
}

func (r *Rental) listStationRentals(ctx context.Context, userID string) ([]models.StationRental, error) {
	rentals := []models.StationRental{}
	if err := r.Db.Conn.WithContext(ctx).Where("user_id = ?", userID).
		Order("rental_date desc, id desc").Find(&rentals).Error; err != nil {
		return nil, storeErr("list station rentals", err)
	}
	return rentals, nil
}

type IStationImpl struct {
	rental *Rental
}

func (is *IStationImpl) NearbyStations(ctx context.Context, lat, lng, radiusMeters float64) ([]models.NearbyStation, error) {
	return is.rental.nearbyStations(ctx, lat, lng, radiusMeters)
}

func (is *IStationImpl) RentFromStation(ctx context.Context, userID string, stationID, batteryID uint, rentalDays int) (*models.StationRental, error) {
	return is.rental.rentFromStation(ctx, userID, stationID, batteryID, rentalDays)
}

func (is *IStationImpl) ReturnToStation(ctx context.Context, userID string, rentalID uint, input ReturnInput) (*models.StationReturnReceipt, error) {
	return is.rental.returnToStation(ctx, userID, rentalID, input)
}

func (is *IStationImpl) ListStationRentals(ctx context.Context, userID string) ([]models.StationRental, error) {
	return is.rental.listStationRentals(ctx, userID)
}

func (r *Rental) GetIStation() IStation {
	return &IStationImpl{rental: r}
}
