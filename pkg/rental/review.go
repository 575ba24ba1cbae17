package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

const (
	MinRating = 1
	MaxRating = 5

	minCommentLength = 10
	maxCommentLength = 500
	minReplyLength   = 2
	maxReplyLength   = 500
)

func (r *Rental) upsertReview(ctx context.Context, userID string, batteryID uint, rating int, comment string) (*models.BatteryReview, bool, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryReview)

	comment = strings.TrimSpace(comment)
	if rating < MinRating || rating > MaxRating {
		return nil, false, invalidInput("rating must be between %d and %d", MinRating, MaxRating)
	}
	if n := utf8.RuneCountInString(comment); n < minCommentLength || n > maxCommentLength {
		return nil, false, invalidInput("comment must be %d to %d characters", minCommentLength, maxCommentLength)
	}

	unlock := r.lockUser(userID)
	defer unlock()

	var (
		review  models.BatteryReview
		battery *models.Battery
		created bool
	)
	err := r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if battery, err = loadBattery(tx, batteryID); err != nil {
			return err
		}

		err = tx.Where("battery_id = ? AND user_id = ?", batteryID, userID).First(&review).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			review = models.BatteryReview{BatteryID: batteryID, UserID: userID, Rating: rating, Comment: comment}
			return tx.Create(&review).Error
		case err != nil:
			return err
		}

		review.Rating = rating
		review.Comment = comment
		return tx.Model(&review).Updates(map[string]any{"rating": rating, "comment": comment}).Error
	})
	if err != nil {
		return nil, false, storeErr("upsert review", err)
	}

	logger.Info("Upserted review for battery", zap.String("user_id", userID), zap.Uint("battery_id", batteryID),
		zap.Int("rating", rating), zap.Bool("created", created))

	if created {
		var cs Changeset
		cs.AwardPoints(userID, r.Config.Review, fmt.Sprintf("review of battery %s", battery.Name))
		r.runEffects(ctx, cs.Effects)
	}
	return &review, created, nil
}

func (r *Rental) addReply(ctx context.Context, userID string, reviewID uint, parentReplyID *uint, content string) (*models.ReviewReply, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryReview)

	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < minReplyLength || n > maxReplyLength {
		return nil, invalidInput("reply must be %d to %d characters", minReplyLength, maxReplyLength)
	}

	var reply models.ReviewReply
	err := r.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := first[models.BatteryReview](tx.Where("id = ?", reviewID), "review", reviewID); err != nil {
			return err
		}
		if parentReplyID != nil {
			parent, err := first[models.ReviewReply](tx.Where("id = ?", *parentReplyID), "reply", *parentReplyID)
			if err != nil {
				return err
			}
			if parent.ReviewID != reviewID {
				return invalidInput("reply %d belongs to another review", parent.ID)
			}
		}

		reply = models.ReviewReply{ReviewID: reviewID, UserID: userID, ParentReplyID: parentReplyID, Content: content}
		return tx.Create(&reply).Error
	})
	if err != nil {
		return nil, storeErr("add reply", err)
	}

	logger.Info("Added reply to review", zap.Uint("review_id", reviewID), zap.Uint("reply_id", reply.ID))
	return &reply, nil
}

type IReviewImpl struct {
	rental *Rental
}

func (ir *IReviewImpl) UpsertReview(ctx context.Context, userID string, batteryID uint, rating int, comment string) (*models.BatteryReview, bool, error) {
	return ir.rental.upsertReview(ctx, userID, batteryID, rating, comment)
}

func (ir *IReviewImpl) AddReply(ctx context.Context, userID string, reviewID uint, parentReplyID *uint, content string) (*models.ReviewReply, error) {
	return ir.rental.addReply(ctx, userID, reviewID, parentReplyID, content)
}

func (r *Rental) GetIReview() IReview {
	return &IReviewImpl{rental: r}
}
