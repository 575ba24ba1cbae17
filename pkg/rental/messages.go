package rental

import (
	"context"

	"go.uber.org/zap"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

func (r *Rental) notify(ctx context.Context, userID, title, content string) error {
	logger := common.GetCategoryLogger(common.LoggerCategoryNotification)

	message := models.UserMessage{
		UserID:      userID,
		Type:        models.MessageTypeNotification,
		Title:       title,
		Content:     content,
		IsImportant: true,
	}
	if err := r.Db.Conn.WithContext(ctx).Create(&message).Error; err != nil {
		return storeErr("notify", err)
	}

	logger.Info("Posted message to user", zap.String("user_id", userID), zap.String("title", title))
	return nil
}

func (r *Rental) listMessages(ctx context.Context, userID string) ([]models.UserMessage, error) {
	messages := []models.UserMessage{}
	if err := r.Db.Conn.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc, id desc").Find(&messages).Error; err != nil {
		return nil, storeErr("list messages", err)
	}
	return messages, nil
}

func (r *Rental) markRead(ctx context.Context, userID string, messageID uint) (*models.UserMessage, error) {
	conn := r.Db.Conn.WithContext(ctx)

	message, err := first[models.UserMessage](conn.Where("id = ? AND user_id = ?", messageID, userID), "message", messageID)
	if err != nil {
		return nil, storeErr("mark message read", err)
	}
	if message.IsRead {
		return message, nil
	}

	now := r.now()
	if err := conn.Model(message).Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, storeErr("mark message read", err)
	}
	message.IsRead = true
	message.ReadAt = &now
	return message, nil
}

type IMessagesImpl struct {
	rental *Rental
}

func (im *IMessagesImpl) Notify(ctx context.Context, userID, title, content string) error {
	return im.rental.notify(ctx, userID, title, content)
}

func (im *IMessagesImpl) ListMessages(ctx context.Context, userID string) ([]models.UserMessage, error) {
	return im.rental.listMessages(ctx, userID)
}

func (im *IMessagesImpl) MarkRead(ctx context.Context, userID string, messageID uint) (*models.UserMessage, error) {
	return im.rental.markRead(ctx, userID, messageID)
}

func (r *Rental) GetIMessages() IMessages {
	return &IMessagesImpl{rental: r}
}
