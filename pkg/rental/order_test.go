package rental

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
	_ "liyu1981.xyz/battery-rental-service/pkg/testing"
)

func TestNextOrderStatus(t *testing.T) {
	allowed := map[models.OrderStatus]map[OrderEvent]models.OrderStatus{
		models.OrderStatusPending:   {OrderEventConfirm: models.OrderStatusConfirmed, OrderEventCancel: models.OrderStatusCancelled},
		models.OrderStatusConfirmed: {OrderEventActivate: models.OrderStatusActive, OrderEventCancel: models.OrderStatusCancelled},
		models.OrderStatusActive:    {OrderEventComplete: models.OrderStatusCompleted},
	}
	statuses := []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusActive,
		models.OrderStatusCompleted, models.OrderStatusCancelled,
	}
	events := []OrderEvent{OrderEventConfirm, OrderEventActivate, OrderEventCancel, OrderEventComplete}

	for _, status := range statuses {
		for _, event := range events {
			next, err := NextOrderStatus(status, event)
			if want, ok := allowed[status][event]; ok {
				require.NoError(t, err, "%s --%s-->", status, event)
				assert.Equal(t, want, next)
				continue
			}

			require.Error(t, err, "%s --%s--> must be rejected", status, event)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, status, next)

			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, string(event), te.Event)
			assert.Equal(t, string(status), te.Status)
		}
	}
}

func TestNewOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^RENT[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for range 100 {
		n := NewOrderNumber()
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestPlanActivation(t *testing.T) {
	order := models.RentalOrder{ID: 3, UserID: "u1", BatteryID: 5, Status: models.OrderStatusConfirmed}
	battery := models.Battery{ID: 5, Name: "B5", SerialNumber: "SN5", Status: models.BatteryStatusAvailable}

	{
		cs, err := PlanActivation(order, battery, nil, nil, false, t0)
		require.NoError(t, err)
		require.NotNil(t, cs.NewSession)
		assert.Equal(t, uint(3), cs.NewSession.OrderID)
		assert.Equal(t, SessionDischarging, StateOf(cs.NewSession))
		assert.Equal(t, []orderTransition{{ID: 3, From: models.OrderStatusConfirmed, To: models.OrderStatusActive}}, cs.Orders)
		assert.Equal(t, []batteryFlip{{ID: 5, From: models.BatteryStatusAvailable, To: models.BatteryStatusRented}}, cs.Batteries)
	}

	{
		held := NewSession("u1", 9, 8, t0)
		held.ID = 44
		heldBattery := models.Battery{ID: 9, Name: "Other", SerialNumber: "SN9"}

		cs, err := PlanActivation(order, battery, &held, &heldBattery, false, t0)
		assert.Nil(t, cs)
		require.ErrorIs(t, err, ErrConflictingSession)

		var conflict *ConflictingSessionError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, uint(9), conflict.BatteryID)
		assert.Equal(t, "Other", conflict.BatteryName)
		assert.Equal(t, "SN9", conflict.SerialNumber)
		assert.Contains(t, err.Error(), "Other")
	}

	{
		pending := order
		pending.Status = models.OrderStatusPending
		_, err := PlanActivation(pending, battery, nil, nil, false, t0)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}

	{
		rented := battery
		rented.Status = models.BatteryStatusMaintenance
		_, err := PlanActivation(order, rented, nil, nil, false, t0)
		assert.ErrorIs(t, err, ErrUnavailable)

		_, err = PlanActivation(order, battery, nil, nil, true, t0)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
}

func TestCreateOrder(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, mockPoints, _, clock := GetMockRentalWithMemorySqliteDialector(t, true, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 1000)
	userID := uuid.NewString()

	mockPoints.
		EXPECT().
		AwardPoints(gomock.Any(), gomock.Eq(userID), gomock.Eq(10), gomock.Any()).
		Times(1)

	start := clock.Now().Add(24 * time.Hour)
	order, err := rentalObj.Order.CreateOrder(ctx, userID, f.Battery.ID, OrderInput{
		StartDate: start, RentalDays: 4, Notes: "  weekend camping  ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(2500), order.DailyPriceCents)
	assert.Equal(t, int64(10000), order.TotalCents)
	assert.Equal(t, int64(50000), order.DepositCents)
	assert.Equal(t, 4, order.RentalDays)
	assert.True(t, order.EndDate.Equal(start.AddDate(0, 0, 4)))
	assert.Equal(t, "weekend camping", order.Notes)

	{
		// later price changes do not touch the snapshot
		require.NoError(t, rentalObj.Db.Conn.Model(&models.Battery{}).Where("id = ?", f.Battery.ID).
			Update("daily_price_cents", 9999).Error)
		saved, err := rentalObj.Order.GetOrder(ctx, userID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), saved.TotalCents)
	}
}

func TestCreateOrder_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, mockPoints, _, clock := GetMockRentalWithMemorySqliteDialector(t, true, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 0)
	userID := uuid.NewString()

	// nothing below gets far enough to award points
	mockPoints.EXPECT().AwardPoints(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	invalid := []OrderInput{
		{RentalDays: 0},
		{RentalDays: 31},
		{RentalDays: 2, StartDate: clock.Now().Add(-2 * time.Hour)},
		{RentalDays: 2, StartDate: clock.Now().Add(31 * 24 * time.Hour)},
	}
	for _, input := range invalid {
		_, err := rentalObj.Order.CreateOrder(ctx, userID, f.Battery.ID, input)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", input)
	}

	{
		_, err := rentalObj.Order.CreateOrder(ctx, userID, 987654, OrderInput{RentalDays: 1})
		assert.ErrorIs(t, err, ErrNotFound)
	}

	{
		require.NoError(t, rentalObj.Db.Conn.Model(&models.Battery{}).Where("id = ?", f.Battery.ID).
			Update("status", models.BatteryStatusMaintenance).Error)
		_, err := rentalObj.Order.CreateOrder(ctx, userID, f.Battery.ID, OrderInput{RentalDays: 1})
		assert.ErrorIs(t, err, ErrUnavailable)
	}
}

func TestConfirmAndCancelOrder(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 500)
	userID := uuid.NewString()

	order, err := rentalObj.Order.CreateOrder(ctx, userID, f.Battery.ID, OrderInput{RentalDays: 2})
	require.NoError(t, err)

	{
		// someone else's order looks missing
		_, err := rentalObj.Order.ConfirmOrder(ctx, uuid.NewString(), order.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	}

	confirmed, err := rentalObj.Order.ConfirmOrder(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)

	{
		_, err := rentalObj.Order.ConfirmOrder(ctx, userID, order.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}

	cancelled, err := rentalObj.Order.CancelOrder(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	{
		_, err := rentalObj.Order.ActivateOrder(ctx, userID, order.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		var battery models.Battery
		require.NoError(t, rentalObj.Db.Conn.First(&battery, f.Battery.ID).Error)
		assert.Equal(t, models.BatteryStatusAvailable, battery.Status, "a rejected activation leaves the battery alone")
	}
}

func TestActivateOrder(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, clock := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 1000)
	userID := uuid.NewString()

	order := confirmedOrder(t, rentalObj, userID, f.Battery.ID)
	snapshot, err := rentalObj.Order.ActivateOrder(ctx, userID, order.ID)
	require.NoError(t, err)

	assert.NotZero(t, snapshot.SessionID)
	assert.Equal(t, 100, snapshot.CurrentCharge)
	assert.True(t, snapshot.IsDischarging)
	assert.True(t, snapshot.IsActive)
	assert.Equal(t, 11.0, snapshot.DrainRate)
	assert.True(t, snapshot.StartTime.Equal(clock.Now()))

	state := loadEpisode(t, rentalObj, snapshot.SessionID, order.ID, f.Battery.ID)
	assert.Equal(t, models.OrderStatusActive, state.Order.Status)
	assert.Equal(t, models.BatteryStatusRented, state.Battery.Status)
	assert.True(t, state.Session.IsActive)
	assert.Equal(t, order.ID, state.Session.OrderID)

	var sessions int64
	require.NoError(t, rentalObj.Db.Conn.Model(&models.BatteryUsage{}).Where("user_id = ?", userID).Count(&sessions).Error)
	assert.Equal(t, int64(1), sessions)

	{
		_, err := rentalObj.Order.ActivateOrder(ctx, userID, order.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}

	{
		_, err := rentalObj.Order.CancelOrder(ctx, userID, order.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition, "active orders cannot be cancelled")
	}
}

func TestActivateOrder_ConflictingSession(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	held := createBattery(t, rentalObj, 0)
	second := addBattery(t, rentalObj, held.Type.ID, 0)
	userID := uuid.NewString()

	activeEpisode(t, rentalObj, userID, held.Battery.ID)
	blocked := confirmedOrder(t, rentalObj, userID, second.ID)

	_, err := rentalObj.Order.ActivateOrder(ctx, userID, blocked.ID)
	require.ErrorIs(t, err, ErrConflictingSession)

	var conflict *ConflictingSessionError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, held.Battery.ID, conflict.BatteryID)
	assert.Equal(t, held.Battery.Name, conflict.BatteryName)
	assert.Equal(t, held.Battery.SerialNumber, conflict.SerialNumber)

	// nothing moved
	var order models.RentalOrder
	require.NoError(t, rentalObj.Db.Conn.First(&order, blocked.ID).Error)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)

	var battery models.Battery
	require.NoError(t, rentalObj.Db.Conn.First(&battery, second.ID).Error)
	assert.Equal(t, models.BatteryStatusAvailable, battery.Status)

	var sessions int64
	require.NoError(t, rentalObj.Db.Conn.Model(&models.BatteryUsage{}).Where("user_id = ?", userID).Count(&sessions).Error)
	assert.Equal(t, int64(1), sessions)
}

func TestActivateOrder_BatteryTaken(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 0)
	alice, bob := uuid.NewString(), uuid.NewString()

	// both order the same battery while it is still available
	aliceOrder := confirmedOrder(t, rentalObj, alice, f.Battery.ID)
	bobOrder := confirmedOrder(t, rentalObj, bob, f.Battery.ID)

	_, err := rentalObj.Order.ActivateOrder(ctx, alice, aliceOrder.ID)
	require.NoError(t, err)

	_, err = rentalObj.Order.ActivateOrder(ctx, bob, bobOrder.ID)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCompleteOrder(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, mockPoints, mockNotifier, clock := GetMockRentalWithMemorySqliteDialector(t, true, true)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 1000)
	userID := uuid.NewString()

	gomock.InOrder(
		mockPoints.EXPECT().AwardPoints(gomock.Any(), userID, 10, gomock.Any()).Times(1),
		mockPoints.EXPECT().AwardPoints(gomock.Any(), userID, 20, gomock.Any()).Times(1),
	)
	// explicit completion posts no message
	mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	order, snapshot := activeEpisode(t, rentalObj, userID, f.Battery.ID)

	clock.Advance(90 * time.Minute)
	receipt, err := rentalObj.Order.CompleteOrder(ctx, userID, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.OrderNumber, receipt.OrderNumber)
	assert.Equal(t, int64(50000), receipt.RefundCents)
	assert.Equal(t, int64(7500), receipt.TotalCents)
	assert.Equal(t, 83, receipt.FinalCharge, "100 - 1.5h * 11%/h = 83.5")
	assert.Equal(t, 1.5, receipt.UsageHours)
	assert.Equal(t, 20, receipt.PointsAwarded)

	state := loadEpisode(t, rentalObj, snapshot.SessionID, order.ID, f.Battery.ID)
	assert.Equal(t, models.OrderStatusCompleted, state.Order.Status)
	assert.Equal(t, models.BatteryStatusAvailable, state.Battery.Status)
	assert.False(t, state.Session.IsActive)
	assert.False(t, state.Session.IsDischarging)
	assert.Equal(t, 83, state.Session.CurrentCharge)
	require.NotNil(t, state.Session.EndTime)
	assert.True(t, state.Session.EndTime.Equal(clock.Now()))

	{
		_, err := rentalObj.Order.CompleteOrder(ctx, userID, order.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}

	{
		current, err := rentalObj.Usage.CurrentUsage(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, current)
	}
}

func countRows(t *testing.T, r *Rental, model any, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, r.Db.Conn.Model(model).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestActivateOrder_IsAllOrNothing(t *testing.T) {
	common.SetTestLoggerNop()

	failures := map[string]func(*testing.T, *gorm.DB) func(){
		"batteries":      func(t *testing.T, conn *gorm.DB) func() { return failOn(t, conn, "batteries") },
		"rental_orders":  func(t *testing.T, conn *gorm.DB) func() { return failOn(t, conn, "rental_orders") },
		"battery_usages": func(t *testing.T, conn *gorm.DB) func() { return failOnCreate(t, conn, "battery_usages") },
	}

	for table, inject := range failures {
		t.Run(table, func(t *testing.T) {
			rentalObj, _ := GetIsolatedRental(t)
			ctx := context.Background()

			f := createBattery(t, rentalObj, 1000)
			userID := uuid.NewString()
			order := confirmedOrder(t, rentalObj, userID, f.Battery.ID)

			restore := inject(t, rentalObj.Db.Conn)
			_, err := rentalObj.Order.ActivateOrder(ctx, userID, order.ID)
			restore()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransient)

			var after models.RentalOrder
			require.NoError(t, rentalObj.Db.Conn.First(&after, order.ID).Error)
			assert.Equal(t, models.OrderStatusConfirmed, after.Status)

			var battery models.Battery
			require.NoError(t, rentalObj.Db.Conn.First(&battery, f.Battery.ID).Error)
			assert.Equal(t, models.BatteryStatusAvailable, battery.Status)

			assert.Zero(t, countRows(t, rentalObj, &models.BatteryUsage{}, userID), "no session is left behind")

			// nothing was half applied, so a retry goes through
			snapshot, err := rentalObj.Order.ActivateOrder(ctx, userID, order.ID)
			require.NoError(t, err)
			assert.True(t, snapshot.IsActive)
			assert.Equal(t, int64(1), countRows(t, rentalObj, &models.BatteryUsage{}, userID))
		})
	}
}

func TestCompleteOrder_IsAllOrNothing(t *testing.T) {
	common.SetTestLoggerNop()

	for _, table := range []string{"batteries", "rental_orders", "battery_usages"} {
		t.Run(table, func(t *testing.T) {
			rentalObj, clock := GetIsolatedRental(t)
			ctx := context.Background()

			f := createBattery(t, rentalObj, 1000)
			userID := uuid.NewString()
			order, started := activeEpisode(t, rentalObj, userID, f.Battery.ID)
			before := loadEpisode(t, rentalObj, started.SessionID, order.ID, f.Battery.ID)
			pointsBefore := countRows(t, rentalObj, &models.PointsRecord{}, userID)

			clock.Advance(2 * time.Hour)

			restore := failOn(t, rentalObj.Db.Conn, table)
			_, err := rentalObj.Order.CompleteOrder(ctx, userID, order.ID)
			restore()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransient)

			after := loadEpisode(t, rentalObj, started.SessionID, order.ID, f.Battery.ID)
			assert.Equal(t, models.OrderStatusActive, after.Order.Status)
			assert.Equal(t, models.BatteryStatusRented, after.Battery.Status)
			assert.True(t, after.Session.IsActive, "session is not closed")
			assert.Nil(t, after.Session.EndTime)
			assert.Equal(t, before.Session.Version, after.Session.Version)
			assert.Equal(t, before.Session.CurrentCharge, after.Session.CurrentCharge)
			assert.Equal(t, pointsBefore, countRows(t, rentalObj, &models.PointsRecord{}, userID),
				"points are only awarded after a commit")

			receipt, err := rentalObj.Order.CompleteOrder(ctx, userID, order.ID)
			require.NoError(t, err)
			assert.Equal(t, 78, receipt.FinalCharge)

			final := loadEpisode(t, rentalObj, started.SessionID, order.ID, f.Battery.ID)
			assert.Equal(t, models.OrderStatusCompleted, final.Order.Status)
			assert.Equal(t, models.BatteryStatusAvailable, final.Battery.Status)
			assert.False(t, final.Session.IsActive)
		})
	}
}

func TestCompleteOrder_PointsFailureDoesNotRollBack(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, mockPoints, _, _ := GetMockRentalWithMemorySqliteDialector(t, true, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 0)
	userID := uuid.NewString()

	mockPoints.EXPECT().AwardPoints(gomock.Any(), userID, gomock.Any(), gomock.Any()).
		Return(errors.New("points service down")).
		Times(2)

	order, _ := activeEpisode(t, rentalObj, userID, f.Battery.ID)
	receipt, err := rentalObj.Order.CompleteOrder(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, receipt.OrderID)

	var saved models.RentalOrder
	require.NoError(t, rentalObj.Db.Conn.First(&saved, order.ID).Error)
	assert.Equal(t, models.OrderStatusCompleted, saved.Status)
}

func TestListOrders(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 0)
	userID := uuid.NewString()

	for range 12 {
		_, err := rentalObj.Order.CreateOrder(ctx, userID, f.Battery.ID, OrderInput{RentalDays: 1})
		require.NoError(t, err)
	}

	page1, err := rentalObj.Order.ListOrders(ctx, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), page1.TotalCount)
	assert.Len(t, page1.Items, 10)

	page2, err := rentalObj.Order.ListOrders(ctx, userID, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)

	other, err := rentalObj.Order.ListOrders(ctx, uuid.NewString(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Page)
	assert.Empty(t, other.Items)
}
