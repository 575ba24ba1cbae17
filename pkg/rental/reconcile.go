package rental

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/charge"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

const (
	ReconcileOutcomeNone      = "none"
	ReconcileOutcomeUnchanged = "unchanged"
	ReconcileOutcomeDrained   = "drained"
	ReconcileOutcomeDepleted  = "depleted"

	usagePageSize = 10
)

// Plan is a changeset together with the session it leaves behind.
type Plan struct {
	Changeset *Changeset
	Session   models.BatteryUsage
	Depleted  bool
}

// PlanReconcile recomputes a session at now and, when it runs out, cascades into
// auto-completing order and releasing the battery.
func (r *Rental) PlanReconcile(session models.BatteryUsage, battery models.Battery, order *models.RentalOrder, now time.Time) (*Plan, error) {
	after, depleted := ReconcileSession(session, battery.PowerW, now)
	return r.finishPlan(session, after, depleted, battery, order)
}

// PlanToggle validates event against the session as stored, then reconciles at now
// before applying it, so a pause freezes the charge of that same instant.
func (r *Rental) PlanToggle(session models.BatteryUsage, battery models.Battery, order *models.RentalOrder, event SessionEvent, now time.Time) (*Plan, error) {
	if _, err := ApplySessionEvent(session, event, now); err != nil {
		return nil, err
	}

	after, depleted := ReconcileSession(session, battery.PowerW, now)
	if !depleted {
		var err error
		if after, err = ApplySessionEvent(after, event, now); err != nil {
			return nil, err
		}
	}
	return r.finishPlan(session, after, depleted, battery, order)
}

// PlanSetCharge overrides the charge and reconciles at the same instant, so setting
// 0 on a discharging session ends it.
func (r *Rental) PlanSetCharge(session models.BatteryUsage, battery models.Battery, order *models.RentalOrder, value int, now time.Time) (*Plan, error) {
	overridden, err := OverrideCharge(session, value, now)
	if err != nil {
		return nil, err
	}

	after, depleted := ReconcileSession(overridden, battery.PowerW, now)
	return r.finishPlan(session, after, depleted, battery, order)
}

func (r *Rental) finishPlan(before, after models.BatteryUsage, depleted bool, battery models.Battery, order *models.RentalOrder) (*Plan, error) {
	cs := &Changeset{}
	cs.UpdateSession(before, after)
	if depleted {
		if err := r.PlanAutoCompletion(cs, order, battery); err != nil {
			return nil, err
		}
	}
	return &Plan{Changeset: cs, Session: after, Depleted: depleted}, nil
}

func buildSnapshot(u models.BatteryUsage, b models.Battery, now time.Time) *models.UsageSnapshot {
	s := &models.UsageSnapshot{
		SessionID:      u.ID,
		OrderID:        u.OrderID,
		BatteryID:      b.ID,
		BatteryName:    b.Name,
		SerialNumber:   b.SerialNumber,
		CurrentCharge:  u.CurrentCharge,
		BaselineCharge: u.BaselineCharge,
		IsDischarging:  u.IsDischarging,
		IsActive:       u.IsActive,
		ElapsedHours:   u.TotalUsageHours,
		DrainRate:      charge.DrainRate(b.PowerW),
		StartTime:      u.StartTime,
		EndTime:        u.EndTime,
		ReconciledAt:   now,
	}
	if u.IsActive {
		s.HoursRemaining = common.Round2(charge.HoursRemaining(u.CurrentCharge, b.PowerW))
	}
	return s
}

// sessionStep loads everything a plan for one session needs and returns the plan.
type sessionStep func(session models.BatteryUsage, battery models.Battery, order *models.RentalOrder) (*Plan, error)

// runSession is the common path of every usage mutation: user lock, locate the
// session, battery lock, plan and commit in one transaction.
func (r *Rental) runSession(ctx context.Context, op, userID string, locate func(tx *gorm.DB) (*models.BatteryUsage, error), step sessionStep) (*Plan, *models.Battery, *models.RentalOrder, error) {
	unlock := r.lockUser(userID)
	defer unlock()

	located, err := locate(r.Db.Conn.WithContext(ctx))
	if err != nil {
		return nil, nil, nil, r.failed(op, err)
	}
	if located == nil {
		return nil, nil, nil, nil
	}

	var (
		plan    *Plan
		battery *models.Battery
		order   *models.RentalOrder
	)
	_, err = r.inEpisode(ctx, op, located.BatteryID, func(tx *gorm.DB) (*Changeset, error) {
		session, err := loadOwnedSession(tx, userID, located.ID)
		if err != nil {
			return nil, err
		}
		if battery, err = loadBattery(tx, session.BatteryID); err != nil {
			return nil, err
		}
		if order, err = findEpisodeOrder(tx, *session); err != nil {
			return nil, err
		}
		if plan, err = step(*session, *battery, order); err != nil {
			return nil, err
		}
		return plan.Changeset, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if plan.Depleted {
		if order != nil {
			r.Recorder.RecordTransition("order", "auto_complete")
		}
		battery.Status = models.BatteryStatusAvailable
	}
	return plan, battery, order, nil
}

func (r *Rental) currentUsage(ctx context.Context, userID string) (*models.UsageSnapshot, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryReconcile)

	now := r.now()
	var before models.BatteryUsage
	plan, battery, order, err := r.runSession(ctx, "reconcile", userID,
		func(tx *gorm.DB) (*models.BatteryUsage, error) {
			return findActiveSession(tx, userID)
		},
		func(session models.BatteryUsage, battery models.Battery, order *models.RentalOrder) (*Plan, error) {
			before = session
			if !session.IsActive {
				// closed between the lookup and the lock
				return &Plan{Changeset: &Changeset{}, Session: session}, nil
			}
			return r.PlanReconcile(session, battery, order, now)
		})
	if err != nil {
		return nil, err
	}
	if plan == nil || (!before.IsActive && !plan.Depleted) {
		r.Recorder.RecordReconcile(ReconcileOutcomeNone)
		return nil, nil
	}

	snapshot := buildSnapshot(plan.Session, *battery, now)

	outcome := ReconcileOutcomeUnchanged
	switch {
	case plan.Depleted:
		outcome = ReconcileOutcomeDepleted
		if order != nil {
			snapshot.CompletedOrder = order.OrderNumber
		}
		logger.Info("Usage depleted, order auto-completed",
			zap.String("user_id", userID), zap.Uint("usage_id", plan.Session.ID), zap.String("order_number", snapshot.CompletedOrder))
	case plan.Session.CurrentCharge != before.CurrentCharge:
		outcome = ReconcileOutcomeDrained
	}
	r.Recorder.RecordReconcile(outcome)

	logger.Debug("Reconciled usage", zap.String("user_id", userID), zap.Uint("usage_id", plan.Session.ID),
		zap.Int("charge", plan.Session.CurrentCharge), zap.String("outcome", outcome))
	return snapshot, nil
}

func (r *Rental) ownedSessionLocator(userID string, sessionID uint) func(tx *gorm.DB) (*models.BatteryUsage, error) {
	return func(tx *gorm.DB) (*models.BatteryUsage, error) {
		return loadOwnedSession(tx, userID, sessionID)
	}
}

func (r *Rental) toggleDischarge(ctx context.Context, userID string, sessionID uint, action string) (*models.UsageSnapshot, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryUsage)

	event, err := ParseSessionEvent(action)
	if err != nil {
		return nil, err
	}

	logger.Info("Received discharge toggle for usage",
		zap.String("user_id", userID), zap.Uint("usage_id", sessionID), zap.String("action", action))

	now := r.now()
	plan, battery, order, err := r.runSession(ctx, "toggle discharge", userID, r.ownedSessionLocator(userID, sessionID),
		func(session models.BatteryUsage, battery models.Battery, order *models.RentalOrder) (*Plan, error) {
			return r.PlanToggle(session, battery, order, event, now)
		})
	if err != nil {
		return nil, err
	}

	snapshot := buildSnapshot(plan.Session, *battery, now)
	if plan.Depleted && order != nil {
		snapshot.CompletedOrder = order.OrderNumber
	}
	r.Recorder.RecordTransition("usage", string(event))

	logger.Info("Toggled discharge for usage", zap.Uint("usage_id", sessionID),
		zap.Bool("is_discharging", plan.Session.IsDischarging), zap.Int("charge", plan.Session.CurrentCharge))
	return snapshot, nil
}

func (r *Rental) setCharge(ctx context.Context, userID string, sessionID uint, value int) (*models.UsageSnapshot, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryUsage)

	if value < charge.MinCharge || value > charge.MaxCharge {
		return nil, fmt.Errorf("%w: charge %d not in [%d, %d]", ErrOutOfRange, value, charge.MinCharge, charge.MaxCharge)
	}

	logger.Info("Received charge override for usage",
		zap.String("user_id", userID), zap.Uint("usage_id", sessionID), zap.Int("charge", value))

	now := r.now()
	plan, battery, order, err := r.runSession(ctx, "set charge", userID, r.ownedSessionLocator(userID, sessionID),
		func(session models.BatteryUsage, battery models.Battery, order *models.RentalOrder) (*Plan, error) {
			return r.PlanSetCharge(session, battery, order, value, now)
		})
	if err != nil {
		return nil, err
	}

	snapshot := buildSnapshot(plan.Session, *battery, now)
	if plan.Depleted && order != nil {
		snapshot.CompletedOrder = order.OrderNumber
	}
	r.Recorder.RecordTransition("usage", "set_charge")
	return snapshot, nil
}

func (r *Rental) usageHistory(ctx context.Context, userID string, page int) (*models.Page[models.BatteryUsage], error) {
	page = max(page, 1)
	result := &models.Page[models.BatteryUsage]{Page: page, PageSize: usagePageSize, Items: []models.BatteryUsage{}}

	q := r.Db.Conn.WithContext(ctx).Model(&models.BatteryUsage{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&result.TotalCount).Error; err != nil {
		return nil, storeErr("count usage", err)
	}
	if err := q.Order("start_time desc, id desc").
		Offset((page - 1) * usagePageSize).Limit(usagePageSize).
		Find(&result.Items).Error; err != nil {
		return nil, storeErr("list usage", err)
	}
	return result, nil
}

type IUsageImpl struct {
	rental *Rental
}

func (iu *IUsageImpl) CurrentUsage(ctx context.Context, userID string) (*models.UsageSnapshot, error) {
	return iu.rental.currentUsage(ctx, userID)
}

func (iu *IUsageImpl) ToggleDischarge(ctx context.Context, userID string, sessionID uint, action string) (*models.UsageSnapshot, error) {
	return iu.rental.toggleDischarge(ctx, userID, sessionID, action)
}

func (iu *IUsageImpl) SetCharge(ctx context.Context, userID string, sessionID uint, value int) (*models.UsageSnapshot, error) {
	return iu.rental.setCharge(ctx, userID, sessionID, value)
}

func (iu *IUsageImpl) UsageHistory(ctx context.Context, userID string, page int) (*models.Page[models.BatteryUsage], error) {
	return iu.rental.usageHistory(ctx, userID, page)
}

func (r *Rental) GetIUsage() IUsage {
	return &IUsageImpl{rental: r}
}
