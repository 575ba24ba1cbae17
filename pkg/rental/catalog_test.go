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

func TestListCategories(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	f := createBattery(t, rentalObj, 500)
	addBattery(t, rentalObj, f.Type.ID, 500)

	empty := models.BatteryCategory{Name: "empty-" + uuid.NewString()[:8]}
	require.NoError(t, rentalObj.Db.Conn.Create(&empty).Error)

	categories, err := rentalObj.Catalog.ListCategories(context.Background())
	require.NoError(t, err)

	counts := map[uint]int64{}
	for _, c := range categories {
		counts[c.ID] = c.BatteryCount
	}
	assert.Equal(t, int64(2), counts[f.Category.ID])
	count, listed := counts[empty.ID]
	assert.True(t, listed, "categories without batteries are listed too")
	assert.Zero(t, count)
}

func TestListBatteries(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 500)
	for range 13 {
		addBattery(t, rentalObj, f.Type.ID, 500)
	}

	{
		page1, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{CategoryID: f.Category.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(14), page1.TotalCount)
		assert.Len(t, page1.Items, 12)

		page2, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{CategoryID: f.Category.ID, Page: 2})
		require.NoError(t, err)
		assert.Len(t, page2.Items, 2)
	}

	{
		// only available batteries are listed unless asked otherwise
		require.NoError(t, rentalObj.Db.Conn.Model(&f.Battery).Update("status", models.BatteryStatusMaintenance).Error)

		available, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{TypeID: f.Type.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(13), available.TotalCount)

		maintenance, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{TypeID: f.Type.ID, Status: models.BatteryStatusMaintenance})
		require.NoError(t, err)
		require.Len(t, maintenance.Items, 1)
		assert.Equal(t, f.Battery.ID, maintenance.Items[0].ID)
	}

	{
		named := addBattery(t, rentalObj, f.Type.ID, 500)
		token := uuid.NewString()[:10]
		require.NoError(t, rentalObj.Db.Conn.Model(&named).Update("name", "Mega "+token).Error)

		found, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{Search: "MEGA " + token})
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, named.ID, found.Items[0].ID)
	}

	{
		cheap := int64(1000)
		none, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{TypeID: f.Type.ID, MaxPriceCents: &cheap})
		require.NoError(t, err)
		assert.Zero(t, none.TotalCount)
		assert.NotNil(t, none.Items)

		low, high := int64(2500), int64(2500)
		all, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{TypeID: f.Type.ID, MinPriceCents: &low, MaxPriceCents: &high})
		require.NoError(t, err)
		assert.Equal(t, int64(14), all.TotalCount)
	}
}

func TestListBatteries_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, _ := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()

	{
		_, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{Status: "lost"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	{
		low, high := int64(5000), int64(100)
		_, err := rentalObj.Catalog.ListBatteries(ctx, models.BatteryFilter{MinPriceCents: &low, MaxPriceCents: &high})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestGetBatteryDetail(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, rentalObj, _, _, clock := GetMockRentalWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	ctx := context.Background()
	f := createBattery(t, rentalObj, 1000)
	sibling := addBattery(t, rentalObj, f.Type.ID, 1000)

	for i, rating := range []int{5, 4, 4} {
		review, _, err := rentalObj.Review.UpsertReview(ctx, uuid.NewString(), f.Battery.ID, rating, "solid battery, lasted all day")
		require.NoError(t, err)
		if i == 0 {
			_, err := rentalObj.Review.AddReply(ctx, uuid.NewString(), review.ID, nil, "agreed!")
			require.NoError(t, err)
		}
	}

	userID := uuid.NewString()
	order, _ := activeEpisode(t, rentalObj, userID, f.Battery.ID)
	clock.Advance(2 * time.Hour)
	_, err := rentalObj.Order.CompleteOrder(ctx, userID, order.ID)
	require.NoError(t, err)

	detail, err := rentalObj.Catalog.GetBatteryDetail(ctx, f.Battery.ID)
	require.NoError(t, err)

	assert.Equal(t, f.Battery.ID, detail.Battery.ID)
	assert.Equal(t, 4.3, detail.AvgRating)
	require.Len(t, detail.Reviews, 3)

	replies := 0
	for _, review := range detail.Reviews {
		replies += len(review.Replies)
	}
	assert.Equal(t, 1, replies)

	assert.Equal(t, int64(1), detail.Usage.TotalUsage)
	assert.Equal(t, 78.0, detail.Usage.AvgCharge)

	require.Len(t, detail.Related, 1)
	assert.Equal(t, sibling.ID, detail.Related[0].ID)

	{
		_, err := rentalObj.Catalog.GetBatteryDetail(ctx, 987654)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}
