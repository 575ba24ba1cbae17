package rental

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
	_ "liyu1981.xyz/battery-rental-service/pkg/testing"
)

func createStation(t *testing.T, r *Rental, lat, lng float64, current, maxBatteries int) models.Station {
	t.Helper()

	station := models.Station{
		Name:             "Station " + uuid.NewString()[:8],
		Address:          "1 Charging Road",
		Latitude:         lat,
		Longitude:        lng,
		MaxBatteries:     maxBatteries,
		CurrentBatteries: current,
		IsActive:         true,
	}
	require.NoError(t, r.Db.Conn.Create(&station).Error)
	return station
}

func TestReturnFees(t *testing.T) {
	rented := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rental := models.StationRental{
		RentalDate:         rented,
		ExpectedReturnDate: rented.AddDate(0, 0, 3),
		RentalAmountCents:  7500,
	}

	tests := []struct {
		name       string
		condition  models.BatteryCondition
		returnedAt time.Time
		days       int
		fee        int64
		refund     int64
	}{
		{"on time", models.BatteryConditionGood, rental.ExpectedReturnDate, 0, 0, 7500},
		{"early", models.BatteryConditionExcellent, rented.AddDate(0, 0, 1), 0, 0, 7500},
		{"partial day late", models.BatteryConditionGood, rental.ExpectedReturnDate.Add(23 * time.Hour), 0, 0, 7500},
		{"two days late", models.BatteryConditionFair, rental.ExpectedReturnDate.Add(49 * time.Hour), 2, 2500, 5000},
		{"poor on time", models.BatteryConditionPoor, rental.ExpectedReturnDate, 0, 0, 2500},
		{"poor and late", models.BatteryConditionPoor, rental.ExpectedReturnDate.AddDate(0, 0, 4), 4, 5000, 0},
		{"refund floors at zero", models.BatteryConditionGood, rental.ExpectedReturnDate.AddDate(0, 0, 10), 10, 12500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, fee, refund := ReturnFees(rental, 2500, tt.condition, tt.returnedAt)
			assert.Equal(t, tt.days, days)
			assert.Equal(t, tt.fee, fee)
			assert.Equal(t, tt.refund, refund)
		})
	}
}

func TestNearbyStations(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()

	// somewhere nobody else in this package puts stations
	lat, lng := -33.8688, 151.2093
	far := createStation(t, rentalObj, lat+0.03, lng, 5, 10)
	near := createStation(t, rentalObj, lat+0.01, lng, 5, 10)
	createStation(t, rentalObj, lat+0.5, lng, 5, 10)
	closed := createStation(t, rentalObj, lat, lng, 5, 10)
	require.NoError(t, rentalObj.Db.Conn.Model(&closed).Update("is_active", false).Error)

	stations, err := rentalObj.Station.NearbyStations(ctx, lat, lng, 0)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, near.ID, stations[0].ID)
	assert.Equal(t, far.ID, stations[1].ID)
	assert.InDelta(t, 1112, stations[0].DistanceMeters, 5)

	{
		narrow, err := rentalObj.Station.NearbyStations(ctx, lat, lng, 2000)
		require.NoError(t, err)
		assert.Len(t, narrow, 1)
	}

	{
		_, err := rentalObj.Station.NearbyStations(ctx, 91, lng, 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestRentAndReturnAtStation(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, clock := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 500)
	station := createStation(t, rentalObj, 35.0, 139.0, 3, 3)
	userID := uuid.NewString()

	rental, err := rentalObj.Station.RentFromStation(ctx, userID, station.ID, f.Battery.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StationRentalConfirmed, rental.Status)
	assert.Equal(t, int64(5000), rental.RentalAmountCents)
	assert.True(t, rental.ExpectedReturnDate.Equal(clock.Now().AddDate(0, 0, 2)))

	var battery models.Battery
	require.NoError(t, rentalObj.Db.Conn.First(&battery, f.Battery.ID).Error)
	assert.Equal(t, models.BatteryStatusRented, battery.Status)

	var stocked models.Station
	require.NoError(t, rentalObj.Db.Conn.First(&stocked, station.ID).Error)
	assert.Equal(t, 2, stocked.CurrentBatteries)

	{
		// a station rental holds the battery but opens no usage session
		snapshot, err := rentalObj.Usage.CurrentUsage(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, snapshot)

		_, err = rentalObj.Station.RentFromStation(ctx, uuid.NewString(), station.ID, f.Battery.ID, 1)
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	clock.Advance(3*24*time.Hour + time.Hour)
	receipt, err := rentalObj.Station.ReturnToStation(ctx, userID, rental.ID, ReturnInput{Condition: models.BatteryConditionPoor})
	require.NoError(t, err)
	assert.Equal(t, station.ID, receipt.StationID)
	assert.Equal(t, 1, receipt.DaysOverdue)
	assert.Equal(t, int64(1250), receipt.ExtraFeeCents)
	assert.Zero(t, receipt.RefundCents, "fee and deduction exceed the rental amount")

	require.NoError(t, rentalObj.Db.Conn.First(&battery, f.Battery.ID).Error)
	assert.Equal(t, models.BatteryStatusAvailable, battery.Status)
	require.NoError(t, rentalObj.Db.Conn.First(&stocked, station.ID).Error)
	assert.Equal(t, 3, stocked.CurrentBatteries)

	rentals, err := rentalObj.Station.ListStationRentals(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, models.StationRentalCompleted, rentals[0].Status)
	require.NotNil(t, rentals[0].ActualReturnDate)

	{
		_, err := rentalObj.Station.ReturnToStation(ctx, userID, rental.ID, ReturnInput{})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = rentalObj.Station.ReturnToStation(ctx, uuid.NewString(), rental.ID, ReturnInput{})
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestRentFromStation_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 500)
	userID := uuid.NewString()

	{
		empty := createStation(t, rentalObj, 10, 10, 0, 5)
		_, err := rentalObj.Station.RentFromStation(ctx, userID, empty.ID, f.Battery.ID, 1)
		assert.ErrorIs(t, err, ErrUnavailable)

		var battery models.Battery
		require.NoError(t, rentalObj.Db.Conn.First(&battery, f.Battery.ID).Error)
		assert.Equal(t, models.BatteryStatusAvailable, battery.Status, "a failed rent leaves the battery alone")
	}

	{
		station := createStation(t, rentalObj, 10, 10, 2, 5)
		for _, days := range []int{0, 31} {
			_, err := rentalObj.Station.RentFromStation(ctx, userID, station.ID, f.Battery.ID, days)
			assert.ErrorIs(t, err, ErrInvalidInput)
		}
		_, err := rentalObj.Station.RentFromStation(ctx, userID, 987654, f.Battery.ID, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	{
		full := createStation(t, rentalObj, 10, 10, 1, 1)
		rental, err := rentalObj.Station.RentFromStation(ctx, userID, full.ID, f.Battery.ID, 1)
		require.NoError(t, err)

		other := createStation(t, rentalObj, 10, 10, 4, 4)
		_, err = rentalObj.Station.ReturnToStation(ctx, userID, rental.ID, ReturnInput{StationID: other.ID})
		assert.ErrorIs(t, err, ErrUnavailable)

		_, err = rentalObj.Station.ReturnToStation(ctx, userID, rental.ID, ReturnInput{Condition: "broken"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		receipt, err := rentalObj.Station.ReturnToStation(ctx, userID, rental.ID, ReturnInput{})
		require.NoError(t, err)
		assert.Equal(t, models.BatteryConditionGood, receipt.Condition)
		assert.Equal(t, int64(2500), receipt.RefundCents)
	}
}
