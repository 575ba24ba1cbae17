package rental

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

type OrderEvent string

const (
	OrderEventConfirm  OrderEvent = "confirm"
	OrderEventActivate OrderEvent = "activate"
	OrderEventCancel   OrderEvent = "cancel"
	OrderEventComplete OrderEvent = "complete"
)

var orderTransitions = map[models.OrderStatus]map[OrderEvent]models.OrderStatus{
	models.OrderStatusPending: {
		OrderEventConfirm: models.OrderStatusConfirmed,
		OrderEventCancel:  models.OrderStatusCancelled,
	},
	models.OrderStatusConfirmed: {
		OrderEventActivate: models.OrderStatusActive,
		OrderEventCancel:   models.OrderStatusCancelled,
	},
	models.OrderStatusActive: {
		OrderEventComplete: models.OrderStatusCompleted,
	},
}

// NextOrderStatus looks the event up in the transition table.
func NextOrderStatus(current models.OrderStatus, event OrderEvent) (models.OrderStatus, error) {
	next, ok := orderTransitions[current][event]
	if !ok {
		return current, &TransitionError{Entity: "order", Event: string(event), Status: string(current)}
	}
	return next, nil
}

const (
	MinRentalDays = 1
	MaxRentalDays = 30

	orderPageSize = 10

	startDateGrace    = time.Minute
	maxStartDateAhead = 30 * 24 * time.Hour
	maxEndDateAhead   = 60 * 24 * time.Hour
)

type OrderInput struct {
	// StartDate defaults to now when zero.
	StartDate  time.Time
	RentalDays int
	Notes      string
}

func NewOrderNumber() string {
	return "RENT" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func validateOrderInput(input *OrderInput, now time.Time) error {
	if input.RentalDays < MinRentalDays || input.RentalDays > MaxRentalDays {
		return invalidInput("rental days must be between %d and %d, got %d", MinRentalDays, MaxRentalDays, input.RentalDays)
	}
	if input.StartDate.IsZero() {
		input.StartDate = now
	}
	if input.StartDate.Before(now.Add(-startDateGrace)) {
		return invalidInput("start date %s is in the past", input.StartDate.Format(time.RFC3339))
	}
	if input.StartDate.After(now.Add(maxStartDateAhead)) {
		return invalidInput("start date can be at most 30 days ahead")
	}
	if end := input.StartDate.AddDate(0, 0, input.RentalDays); end.After(now.Add(maxEndDateAhead)) {
		return invalidInput("rental must end within 60 days")
	}
	if len(input.Notes) > 500 {
		return invalidInput("notes must be at most 500 characters")
	}
	return nil
}

func (r *Rental) createOrder(ctx context.Context, userID string, batteryID uint, input OrderInput) (*models.RentalOrder, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryOrder)

	now := r.now()
	if err := validateOrderInput(&input, now); err != nil {
		return nil, err
	}

	logger.Info("Received order for battery",
		zap.String("user_id", userID), zap.Uint("battery_id", batteryID), zap.Int("rental_days", input.RentalDays))

	var order models.RentalOrder
	err := r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		battery, err := loadBattery(tx, batteryID)
		if err != nil {
			return err
		}
		if battery.Status != models.BatteryStatusAvailable {
			return fmt.Errorf("%w: battery %d is %s", ErrUnavailable, battery.ID, battery.Status)
		}

		start := input.StartDate.UTC()
		order = models.RentalOrder{
			OrderNumber:     NewOrderNumber(),
			UserID:          userID,
			BatteryID:       battery.ID,
			StartDate:       start,
			EndDate:         start.AddDate(0, 0, input.RentalDays),
			RentalDays:      input.RentalDays,
			DailyPriceCents: battery.DailyPriceCents,
			TotalCents:      battery.DailyPriceCents * int64(input.RentalDays),
			DepositCents:    battery.DepositCents,
			Status:          models.OrderStatusPending,
			Notes:           strings.TrimSpace(input.Notes),
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, storeErr("create order", err)
	}

	logger.Info("Created order", zap.String("order_number", order.OrderNumber), zap.Int64("total_cents", order.TotalCents))
	r.Recorder.RecordTransition("order", "create")

	var cs Changeset
	cs.AwardPoints(userID, r.Config.OrderCreated, fmt.Sprintf("order %s created", order.OrderNumber))
	r.runEffects(ctx, cs.Effects)

	return &order, nil
}

func (r *Rental) listOrders(ctx context.Context, userID string, page int) (*models.Page[models.RentalOrder], error) {
	page = max(page, 1)
	result := &models.Page[models.RentalOrder]{Page: page, PageSize: orderPageSize, Items: []models.RentalOrder{}}

	q := r.Db.Conn.WithContext(ctx).Model(&models.RentalOrder{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&result.TotalCount).Error; err != nil {
		return nil, storeErr("count orders", err)
	}
	if err := q.Order("created_at desc, id desc").
		Offset((page - 1) * orderPageSize).Limit(orderPageSize).
		Find(&result.Items).Error; err != nil {
		return nil, storeErr("list orders", err)
	}
	return result, nil
}

func (r *Rental) getOrder(ctx context.Context, userID string, orderID uint) (*models.RentalOrder, error) {
	order, err := loadOwnedOrder(r.Db.Conn.WithContext(ctx), userID, orderID)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	return order, nil
}

// transitionOrder handles the events whose only effect is the status itself.
func (r *Rental) transitionOrder(ctx context.Context, userID string, orderID uint, event OrderEvent) (*models.RentalOrder, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryOrder)

	unlock := r.lockUser(userID)
	defer unlock()

	var order *models.RentalOrder
	err := r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = loadOwnedOrder(tx, userID, orderID); err != nil {
			return err
		}
		next, err := NextOrderStatus(order.Status, event)
		if err != nil {
			return err
		}

		var cs Changeset
		cs.TransitionOrder(order.ID, order.Status, next)
		if err := commit(tx, &cs); err != nil {
			return err
		}
		order.Status = next
		return nil
	})
	if err != nil {
		return nil, r.failed(string(event)+" order", err)
	}

	logger.Info("Order transitioned", zap.Uint("order_id", order.ID), zap.String("event", string(event)),
		zap.String("status", string(order.Status)))
	r.Recorder.RecordTransition("order", string(event))
	return order, nil
}

// PlanActivation decides what activating order does given the user's currently held
// session (if any) and whether another active order already holds the battery.
func PlanActivation(order models.RentalOrder, battery models.Battery, held *models.BatteryUsage, heldBattery *models.Battery, batteryBusy bool, now time.Time) (*Changeset, error) {
	next, err := NextOrderStatus(order.Status, OrderEventActivate)
	if err != nil {
		return nil, err
	}

	if held != nil {
		conflict := &ConflictingSessionError{SessionID: held.ID, BatteryID: held.BatteryID}
		if heldBattery != nil {
			conflict.BatteryName = heldBattery.Name
			conflict.SerialNumber = heldBattery.SerialNumber
		}
		return nil, conflict
	}

	if battery.Status != models.BatteryStatusAvailable {
		return nil, fmt.Errorf("%w: battery %d is %s", ErrUnavailable, battery.ID, battery.Status)
	}
	if batteryBusy {
		return nil, fmt.Errorf("%w: battery %d is held by another active order", ErrUnavailable, battery.ID)
	}

	cs := &Changeset{}
	cs.TransitionOrder(order.ID, order.Status, next)
	cs.FlipBattery(battery.ID, battery.Status, models.BatteryStatusRented)
	session := NewSession(order.UserID, battery.ID, order.ID, now)
	cs.NewSession = &session
	return cs, nil
}

func (r *Rental) activateOrder(ctx context.Context, userID string, orderID uint) (*models.UsageSnapshot, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryOrder)

	unlock := r.lockUser(userID)
	defer unlock()

	owned, err := loadOwnedOrder(r.Db.Conn.WithContext(ctx), userID, orderID)
	if err != nil {
		return nil, storeErr("activate order", err)
	}

	now := r.now()
	var (
		snapshot *models.UsageSnapshot
		battery  *models.Battery
	)
	cs, err := r.inEpisode(ctx, "activate order", owned.BatteryID, func(tx *gorm.DB) (*Changeset, error) {
		order, err := loadOwnedOrder(tx, userID, orderID)
		if err != nil {
			return nil, err
		}
		if battery, err = loadBattery(tx, order.BatteryID); err != nil {
			return nil, err
		}

		held, err := findActiveSession(tx, userID)
		if err != nil {
			return nil, err
		}
		var heldBattery *models.Battery
		if held != nil {
			if heldBattery, err = loadBattery(tx, held.BatteryID); err != nil {
				return nil, err
			}
		}

		var busy int64
		if err := tx.Model(&models.RentalOrder{}).
			Where("battery_id = ? AND status = ? AND id <> ?", order.BatteryID, models.OrderStatusActive, order.ID).
			Count(&busy).Error; err != nil {
			return nil, err
		}

		return PlanActivation(*order, *battery, held, heldBattery, busy > 0, now)
	})
	if err != nil {
		return nil, err
	}

	battery.Status = models.BatteryStatusRented
	snapshot = buildSnapshot(*cs.NewSession, *battery, now)

	logger.Info("Order activated", zap.Uint("order_id", orderID), zap.Uint("usage_id", snapshot.SessionID),
		zap.Uint("battery_id", battery.ID))
	r.Recorder.RecordTransition("order", string(OrderEventActivate))
	return snapshot, nil
}

// planCompletion adds the order and battery side of completing an episode.
func (r *Rental) planCompletion(cs *Changeset, order *models.RentalOrder, battery models.Battery) error {
	if battery.Status == models.BatteryStatusRented {
		cs.FlipBattery(battery.ID, battery.Status, models.BatteryStatusAvailable)
	}
	if order == nil {
		return nil
	}

	next, err := NextOrderStatus(order.Status, OrderEventComplete)
	if err != nil {
		return err
	}
	cs.TransitionOrder(order.ID, order.Status, next)
	cs.AwardPoints(order.UserID, r.Config.OrderCompleted, fmt.Sprintf("order %s completed", order.OrderNumber))
	return nil
}

// PlanAutoCompletion is completion triggered by a session running out of charge.
func (r *Rental) PlanAutoCompletion(cs *Changeset, order *models.RentalOrder, battery models.Battery) error {
	if err := r.planCompletion(cs, order, battery); err != nil {
		return err
	}
	if order != nil {
		cs.Notify(order.UserID, "Battery depleted",
			fmt.Sprintf("Battery %s (%s) ran out of charge. Order %s has been completed automatically.",
				battery.Name, battery.SerialNumber, order.OrderNumber))
	}
	return nil
}

// PlanExplicitCompletion reconciles the open session at now, closes it and completes the order.
func (r *Rental) PlanExplicitCompletion(order models.RentalOrder, battery models.Battery, session *models.BatteryUsage, now time.Time) (*Changeset, *models.BatteryUsage, error) {
	if _, err := NextOrderStatus(order.Status, OrderEventComplete); err != nil {
		return nil, nil, err
	}

	cs := &Changeset{}
	var closed *models.BatteryUsage
	if session != nil {
		reconciled, _ := ReconcileSession(*session, battery.PowerW, now)
		after := CloseSession(reconciled, now)
		cs.UpdateSession(*session, after)
		closed = &after
	}

	if err := r.planCompletion(cs, &order, battery); err != nil {
		return nil, nil, err
	}
	return cs, closed, nil
}

func (r *Rental) completeOrder(ctx context.Context, userID string, orderID uint) (*models.CompletionReceipt, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryOrder)

	unlock := r.lockUser(userID)
	defer unlock()

	owned, err := loadOwnedOrder(r.Db.Conn.WithContext(ctx), userID, orderID)
	if err != nil {
		return nil, storeErr("complete order", err)
	}

	now := r.now()
	receipt := &models.CompletionReceipt{CompletedAt: now}
	_, err = r.inEpisode(ctx, "complete order", owned.BatteryID, func(tx *gorm.DB) (*Changeset, error) {
		order, err := loadOwnedOrder(tx, userID, orderID)
		if err != nil {
			return nil, err
		}
		battery, err := loadBattery(tx, order.BatteryID)
		if err != nil {
			return nil, err
		}
		session, err := findOrderSession(tx, *order)
		if err != nil {
			return nil, err
		}

		cs, closed, err := r.PlanExplicitCompletion(*order, *battery, session, now)
		if err != nil {
			return nil, err
		}

		receipt.OrderID = order.ID
		receipt.OrderNumber = order.OrderNumber
		receipt.BatteryID = battery.ID
		receipt.TotalCents = order.TotalCents
		receipt.RefundCents = order.DepositCents
		receipt.PointsAwarded = r.Config.OrderCompleted
		if closed != nil {
			receipt.FinalCharge = closed.CurrentCharge
			receipt.UsageHours = closed.TotalUsageHours
		}
		return cs, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Order completed", zap.String("order_number", receipt.OrderNumber),
		zap.Int("final_charge", receipt.FinalCharge), zap.Int64("refund_cents", receipt.RefundCents))
	r.Recorder.RecordTransition("order", string(OrderEventComplete))
	return receipt, nil
}

type IOrderImpl struct {
	rental *Rental
}

func (io *IOrderImpl) CreateOrder(ctx context.Context, userID string, batteryID uint, input OrderInput) (*models.RentalOrder, error) {
	return io.rental.createOrder(ctx, userID, batteryID, input)
}

func (io *IOrderImpl) ListOrders(ctx context.Context, userID string, page int) (*models.Page[models.RentalOrder], error) {
	return io.rental.listOrders(ctx, userID, page)
}

func (io *IOrderImpl) GetOrder(ctx context.Context, userID string, orderID uint) (*models.RentalOrder, error) {
	return io.rental.getOrder(ctx, userID, orderID)
}

func (io *IOrderImpl) ConfirmOrder(ctx context.Context, userID string, orderID uint) (*models.RentalOrder, error) {
	return io.rental.transitionOrder(ctx, userID, orderID, OrderEventConfirm)
}

func (io *IOrderImpl) CancelOrder(ctx context.Context, userID string, orderID uint) (*models.RentalOrder, error) {
	return io.rental.transitionOrder(ctx, userID, orderID, OrderEventCancel)
}

func (io *IOrderImpl) ActivateOrder(ctx context.Context, userID string, orderID uint) (*models.UsageSnapshot, error) {
	return io.rental.activateOrder(ctx, userID, orderID)
}

func (io *IOrderImpl) CompleteOrder(ctx context.Context, userID string, orderID uint) (*models.CompletionReceipt, error) {
	return io.rental.completeOrder(ctx, userID, orderID)
}

func (r *Rental) GetIOrder() IOrder {
	return &IOrderImpl{rental: r}
}
