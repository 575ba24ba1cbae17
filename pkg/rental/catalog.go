package rental

import (
	"context"
	"math"
	"strings"

	"gorm.io/gorm"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

const (
	catalogPageSize   = 12
	detailReviewLimit = 10
	relatedLimit      = 4
)

func (r *Rental) listCategories(ctx context.Context) ([]models.CategorySummary, error) {
	type row struct {
		ID           uint
		Name         string
		Description  string
		Icon         string
		BatteryCount int64
	}

	var rows []row
	err := r.Db.Conn.WithContext(ctx).
		Table("battery_categories").
		Select("battery_categories.id, battery_categories.name, battery_categories.description, " +
			"battery_categories.icon, COUNT(batteries.id) AS battery_count").
		Joins("LEFT JOIN battery_types ON battery_types.category_id = battery_categories.id").
		Joins("LEFT JOIN batteries ON batteries.type_id = battery_types.id").
		Group("battery_categories.id").
		Order("battery_categories.name").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("list categories", err)
	}

	return common.Mapper(rows, func(c row) models.CategorySummary {
		return models.CategorySummary{
			BatteryCategory: models.BatteryCategory{
				ID:          c.ID,
				Name:        c.Name,
				Description: c.Description,
				Icon:        c.Icon,
			},
			BatteryCount: c.BatteryCount,
		}
	}), nil
}

func (r *Rental) batteryQuery(ctx context.Context, filter models.BatteryFilter) (*gorm.DB, error) {
	status := filter.Status
	if status == "" {
		status = models.BatteryStatusAvailable
	}
	if !status.Valid() {
		return nil, invalidInput("unknown battery status %q", status)
	}
	if filter.MinPriceCents != nil && filter.MaxPriceCents != nil && *filter.MinPriceCents > *filter.MaxPriceCents {
		return nil, invalidInput("min price is above max price")
	}

	q := r.Db.Conn.WithContext(ctx).
		Model(&models.Battery{}).
		Joins("JOIN battery_types ON battery_types.id = batteries.type_id").
		Where("batteries.status = ?", status)

	if filter.CategoryID != 0 {
		q = q.Where("battery_types.category_id = ?", filter.CategoryID)
	}
	if filter.TypeID != 0 {
		q = q.Where("batteries.type_id = ?", filter.TypeID)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(batteries.name) LIKE ? OR LOWER(batteries.serial_number) LIKE ? OR LOWER(battery_types.name) LIKE ?",
			like, like, like)
	}
	if filter.MinPriceCents != nil {
		q = q.Where("batteries.daily_price_cents >= ?", *filter.MinPriceCents)
	}
	if filter.MaxPriceCents != nil {
		q = q.Where("batteries.daily_price_cents <= ?", *filter.MaxPriceCents)
	}
	return q.Session(&gorm.Session{}), nil
}

func (r *Rental) listBatteries(ctx context.Context, filter models.BatteryFilter) (*models.Page[models.Battery], error) {
	q, err := r.batteryQuery(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := max(filter.Page, 1)
	result := &models.Page[models.Battery]{Page: page, PageSize: catalogPageSize, Items: []models.Battery{}}

	if err := q.Count(&result.TotalCount).Error; err != nil {
		return nil, storeErr("count batteries", err)
	}
	if err := q.Select("batteries.*").
		Order("batteries.created_at desc, batteries.id desc").
		Offset((page - 1) * catalogPageSize).Limit(catalogPageSize).
		Find(&result.Items).Error; err != nil {
		return nil, storeErr("list batteries", err)
	}
	return result, nil
}

func (r *Rental) getBatteryDetail(ctx context.Context, batteryID uint) (*models.BatteryDetail, error) {
	conn := r.Db.Conn.WithContext(ctx)

	battery, err := loadBattery(conn, batteryID)
	if err != nil {
		return nil, storeErr("get battery", err)
	}

	detail := &models.BatteryDetail{Battery: *battery, Reviews: []models.BatteryReview{}, Related: []models.Battery{}}

	var avg struct{ Avg float64 }
	if err := conn.Model(&models.BatteryReview{}).
		Select("COALESCE(AVG(rating), 0) AS avg").
		Where("battery_id = ?", batteryID).
		Scan(&avg).Error; err != nil {
		return nil, storeErr("average rating", err)
	}
	detail.AvgRating = math.Round(avg.Avg*10) / 10

	if err := conn.Where("battery_id = ?", batteryID).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Order("created_at desc, id desc").Limit(detailReviewLimit).
		Find(&detail.Reviews).Error; err != nil {
		return nil, storeErr("list reviews", err)
	}

	if err := conn.Model(&models.BatteryUsage{}).
		Select("COUNT(id) AS total_usage, COALESCE(AVG(current_charge), 0) AS avg_charge").
		Where("battery_id = ?", batteryID).
		Scan(&detail.Usage).Error; err != nil {
		return nil, storeErr("usage stats", err)
	}

	if err := conn.Where("type_id = ? AND status = ? AND id <> ?", battery.TypeID, models.BatteryStatusAvailable, battery.ID).
		Order("created_at desc, id desc").Limit(relatedLimit).
		Find(&detail.Related).Error; err != nil {
		return nil, storeErr("related batteries", err)
	}

	return detail, nil
}

type ICatalogImpl struct {
	rental *Rental
}

func (ic *ICatalogImpl) ListCategories(ctx context.Context) ([]models.CategorySummary, error) {
	return ic.rental.listCategories(ctx)
}

func (ic *ICatalogImpl) ListBatteries(ctx context.Context, filter models.BatteryFilter) (*models.Page[models.Battery], error) {
	return ic.rental.listBatteries(ctx, filter)
}

func (ic *ICatalogImpl) GetBatteryDetail(ctx context.Context, batteryID uint) (*models.BatteryDetail, error) {
	return ic.rental.getBatteryDetail(ctx, batteryID)
}

func (r *Rental) GetICatalog() ICatalog {
	return &ICatalogImpl{rental: r}
}
