package rental

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

const pointsHistoryLimit = 50

// balance is earned minus spent; expire and refund records do not move it.
func balance(tx *gorm.DB, userID string) (earned, spent int, err error) {
	var sums struct {
		Earned int
		Spent  int
	}
	err = tx.Model(&models.PointsRecord{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN points ELSE 0 END), 0) AS earned, "+
			"COALESCE(SUM(CASE WHEN type = ? THEN ABS(points) ELSE 0 END), 0) AS spent",
			models.PointTypeEarn, models.PointTypeSpend).
		Where("user_id = ?", userID).
		Scan(&sums).Error
	return sums.Earned, sums.Spent, err
}

func (r *Rental) awardPoints(ctx context.Context, userID string, amount int, reason string) error {
	logger := common.GetCategoryLogger(common.LoggerCategoryPoints)

	if amount <= 0 {
		return invalidInput("points to award must be positive, got %d", amount)
	}

	var record models.PointsRecord
	err := r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		earned, spent, err := balance(tx, userID)
		if err != nil {
			return err
		}
		record = models.PointsRecord{
			UserID:       userID,
			Points:       amount,
			Type:         models.PointTypeEarn,
			Reason:       reason,
			BalanceAfter: earned - spent + amount,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return storeErr("award points", err)
	}

	logger.Info("Awarded points to user", zap.String("user_id", userID), zap.Int("points", amount),
		zap.String("reason", reason), zap.Int("balance", record.BalanceAfter))
	return nil
}

func (r *Rental) pointsSummary(ctx context.Context, userID string) (*models.PointsSummary, error) {
	conn := r.Db.Conn.WithContext(ctx)

	earned, spent, err := balance(conn, userID)
	if err != nil {
		return nil, storeErr("points balance", err)
	}

	summary := &models.PointsSummary{Earned: earned, Spent: spent, Balance: earned - spent, Records: []models.PointsRecord{}}
	if err := conn.Where("user_id = ?", userID).Order("created_at desc, id desc").Limit(pointsHistoryLimit).
		Find(&summary.Records).Error; err != nil {
		return nil, storeErr("points history", err)
	}
	return summary, nil
}

type IPointsImpl struct {
	rental *Rental
}

func (ip *IPointsImpl) AwardPoints(ctx context.Context, userID string, amount int, reason string) error {
	return ip.rental.awardPoints(ctx, userID, amount, reason)
}

func (ip *IPointsImpl) Summary(ctx context.Context, userID string) (*models.PointsSummary, error) {
	return ip.rental.pointsSummary(ctx, userID)
}

func (r *Rental) GetIPoints() IPoints {
	return &IPointsImpl{rental: r}
}
