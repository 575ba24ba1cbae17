package rental

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

var domainErrors = []error{
	ErrInvalidTransition, ErrConflictingSession, ErrInvalidState, ErrOutOfRange,
	ErrNotFound, ErrUnavailable, ErrInvalidInput, ErrTransient,
}

// storeErr passes domain errors through and turns anything else coming out of the
// store into a retryable failure.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return transient(op, err)
}

func (r *Rental) failed(op string, err error) error {
	err = storeErr(op, err)
	if errors.Is(err, ErrTransient) {
		r.Recorder.RecordCommitFailure(op)
	}
	return err
}

// inEpisode runs plan and commits its changeset in one transaction while holding the
// battery lock, then runs the post-commit effects. Callers already hold the user lock.
func (r *Rental) inEpisode(ctx context.Context, op string, batteryID uint, plan func(tx *gorm.DB) (*Changeset, error)) (*Changeset, error) {
	unlock := r.lockBattery(batteryID)
	defer unlock()

	var cs *Changeset
	err := r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if cs, err = plan(tx); err != nil {
			return err
		}
		return commit(tx, cs)
	})
	if err != nil {
		return nil, r.failed(op, err)
	}

	r.runEffects(ctx, cs.Effects)
	return cs, nil
}

func first[T any](q *gorm.DB, what string, id any) (*T, error) {
	var v T
	if err := q.First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(what, id)
		}
		return nil, err
	}
	return &v, nil
}

func loadBattery(tx *gorm.DB, batteryID uint) (*models.Battery, error) {
	return first[models.Battery](tx.Where("id = ?", batteryID), "battery", batteryID)
}

// loadOwnedOrder treats someone else's order the same as a missing one.
func loadOwnedOrder(tx *gorm.DB, userID string, orderID uint) (*models.RentalOrder, error) {
	return first[models.RentalOrder](tx.Where("id = ? AND user_id = ?", orderID, userID), "order", orderID)
}

func loadOwnedSession(tx *gorm.DB, userID string, sessionID uint) (*models.BatteryUsage, error) {
	return first[models.BatteryUsage](tx.Where("id = ? AND user_id = ?", sessionID, userID), "usage", sessionID)
}

// findActiveSession is the per-call lookup of the user's open session; nil when there is none.
func findActiveSession(tx *gorm.DB, userID string) (*models.BatteryUsage, error) {
	var sessions []models.BatteryUsage
	if err := tx.Where("user_id = ? AND is_active = ?", userID, true).
		Order("id desc").Limit(1).Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// findEpisodeOrder is the active order a session belongs to; nil when there is none.
func findEpisodeOrder(tx *gorm.DB, session models.BatteryUsage) (*models.RentalOrder, error) {
	q := tx.Where("status = ?", models.OrderStatusActive)
	if session.OrderID != 0 {
		q = q.Where("id = ?", session.OrderID)
	} else {
		q = q.Where("user_id = ? AND battery_id = ?", session.UserID, session.BatteryID)
	}

	var orders []models.RentalOrder
	if err := q.Order("id desc").Limit(1).Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// findOrderSession is the open session of an order; nil when there is none.
func findOrderSession(tx *gorm.DB, order models.RentalOrder) (*models.BatteryUsage, error) {
	var sessions []models.BatteryUsage
	if err := tx.Where("is_active = ? AND user_id = ? AND battery_id = ? AND (order_id = ? OR order_id = 0)",
		true, order.UserID, order.BatteryID, order.ID).
		Order("id desc").Limit(1).Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}
