package rental

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

type sessionUpdate struct {
	ID              uint
	ExpectedVersion uint
	After           models.BatteryUsage
}

type orderTransition struct {
	ID   uint
	From models.OrderStatus
	To   models.OrderStatus
}

type batteryFlip struct {
	ID   uint
	From models.BatteryStatus
	To   models.BatteryStatus
}

type EffectKind int

const (
	EffectAwardPoints EffectKind = iota
	EffectNotify
)

// Effect runs after a successful commit and never rolls it back.
type Effect struct {
	Kind    EffectKind
	UserID  string
	Points  int
	Reason  string
	Title   string
	Content string
}

// Changeset is every entity update of one rental episode, applied together by commit.
type Changeset struct {
	NewSession *models.BatteryUsage
	Sessions   []sessionUpdate
	Orders     []orderTransition
	Batteries  []batteryFlip
	Effects    []Effect
}

func (c *Changeset) UpdateSession(before, after models.BatteryUsage) {
	if !sessionChanged(before, after) {
		return
	}
	c.Sessions = append(c.Sessions, sessionUpdate{ID: before.ID, ExpectedVersion: before.Version, After: after})
}

func (c *Changeset) TransitionOrder(id uint, from, to models.OrderStatus) {
	c.Orders = append(c.Orders, orderTransition{ID: id, From: from, To: to})
}

func (c *Changeset) FlipBattery(id uint, from, to models.BatteryStatus) {
	c.Batteries = append(c.Batteries, batteryFlip{ID: id, From: from, To: to})
}

func (c *Changeset) AwardPoints(userID string, points int, reason string) {
	if points <= 0 {
		return
	}
	c.Effects = append(c.Effects, Effect{Kind: EffectAwardPoints, UserID: userID, Points: points, Reason: reason})
}

func (c *Changeset) Notify(userID, title, content string) {
	c.Effects = append(c.Effects, Effect{Kind: EffectNotify, UserID: userID, Title: title, Content: content})
}

func (c *Changeset) Empty() bool {
	return c.NewSession == nil && len(c.Sessions) == 0 && len(c.Orders) == 0 && len(c.Batteries) == 0
}

var errStale = errors.New("row changed since it was read")

// commit applies the changeset inside tx. Each update is guarded on the state the plan
// was derived from, so a concurrent writer aborts the unit instead of being overwritten.
func commit(tx *gorm.DB, cs *Changeset) error {
	for _, b := range cs.Batteries {
		res := tx.Model(&models.Battery{}).
			Where("id = ? AND status = ?", b.ID, b.From).
			Update("status", b.To)
		if err := guarded(res, "battery", b.ID); err != nil {
			return err
		}
	}

	for _, o := range cs.Orders {
		res := tx.Model(&models.RentalOrder{}).
			Where("id = ? AND status = ?", o.ID, o.From).
			Update("status", o.To)
		if err := guarded(res, "order", o.ID); err != nil {
			return err
		}
	}

	for _, s := range cs.Sessions {
		res := tx.Model(&models.BatteryUsage{}).
			Where("id = ? AND version = ?", s.ID, s.ExpectedVersion).
			Updates(map[string]any{
				"start_time":        s.After.StartTime,
				"end_time":          s.After.EndTime,
				"current_charge":    s.After.CurrentCharge,
				"baseline_charge":   s.After.BaselineCharge,
				"is_discharging":    s.After.IsDischarging,
				"is_active":         s.After.IsActive,
				"total_usage_hours": s.After.TotalUsageHours,
				"version":           s.ExpectedVersion + 1,
			})
		if err := guarded(res, "usage", s.ID); err != nil {
			return err
		}
	}

	if cs.NewSession != nil {
		if err := tx.Create(cs.NewSession).Error; err != nil {
			return transient("create usage", err)
		}
	}

	return nil
}

func guarded(res *gorm.DB, entity string, id uint) error {
	if res.Error != nil {
		return transient(fmt.Sprintf("update %s %d", entity, id), res.Error)
	}
	if res.RowsAffected != 1 {
		return transient(fmt.Sprintf("update %s %d", entity, id), errStale)
	}
	return nil
}

// runEffects is called only after commit returned nil.
func (r *Rental) runEffects(ctx context.Context, effects []Effect) {
	logger := common.GetCategoryLogger(common.LoggerCategoryReconcile)

	// detached from the request, which may already be gone
	ctx = context.WithoutCancel(ctx)

	for _, e := range effects {
		switch e.Kind {
		case EffectAwardPoints:
			if r.Points == nil {
				continue
			}
			if err := r.Points.AwardPoints(ctx, e.UserID, e.Points, e.Reason); err != nil {
				logger.Warn("Failed to award points",
					zap.String("user_id", e.UserID), zap.Int("points", e.Points), zap.String("reason", e.Reason), zap.Error(err))
			}
		case EffectNotify:
			if r.Notifier == nil {
				continue
			}
			if err := r.Notifier.Notify(ctx, e.UserID, e.Title, e.Content); err != nil {
				logger.Warn("Failed to notify user",
					zap.String("user_id", e.UserID), zap.String("title", e.Title), zap.Error(err))
			}
		}
	}
}
