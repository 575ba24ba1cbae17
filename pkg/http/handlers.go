package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/battery-rental-service/pkg/models"
)

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (rs *RestfulServer) ListCategories(c *gin.Context) {
	categories, err := rs.Rental.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// BatteryListQuery prices are in cents; zero means no bound.
type BatteryListQuery struct {
	CategoryID int    `zog:"category_id"`
	TypeID     int    `zog:"type_id"`
	Search     string `zog:"search"`
	MinPrice   int    `zog:"min_price"`
	MaxPrice   int    `zog:"max_price"`
	Status     string `zog:"status"`
	Page       int    `zog:"page"`
}

var batteryListQuerySchema = z.Struct(z.Shape{
	"categoryID": z.Int().GTE(0),
	"typeID":     z.Int().GTE(0),
	"search":     z.String().Trim().Max(100),
	"minPrice":   z.Int().GTE(0),
	"maxPrice":   z.Int().GTE(0),
	"status": z.String().OneOf([]string{
		"", string(models.BatteryStatusAvailable), string(models.BatteryStatusRented),
		string(models.BatteryStatusMaintenance), string(models.BatteryStatusRetired),
	}),
	"page": z.Int().GTE(0),
})

func (q BatteryListQuery) filter() models.BatteryFilter {
	f := models.BatteryFilter{
		CategoryID: uint(q.CategoryID),
		TypeID:     uint(q.TypeID),
		Search:     q.Search,
		Status:     models.BatteryStatus(q.Status),
		Page:       q.Page,
	}
	if q.MinPrice > 0 {
		v := int64(q.MinPrice)
		f.MinPriceCents = &v
	}
	if q.MaxPrice > 0 {
		v := int64(q.MaxPrice)
		f.MaxPriceCents = &v
	}
	return f
}

func (rs *RestfulServer) ListBatteries(c *gin.Context) {
	var q BatteryListQuery
	if err := batteryListQuerySchema.Parse(zhttp.Request(c.Request), &q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	page, err := rs.Rental.Catalog.ListBatteries(c.Request.Context(), q.filter())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (rs *RestfulServer) GetBatteryDetail(c *gin.Context) {
	batteryID, ok := idParam(c, "battery_id")
	if !ok {
		return
	}

	detail, err := rs.Rental.Catalog.GetBatteryDetail(c.Request.Context(), batteryID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// NearbyQuery uses gin binding rather than a schema since 0 is a real latitude and
// longitude and must not read as missing.
type NearbyQuery struct {
	Latitude  *float64 `form:"latitude" binding:"required"`
	Longitude *float64 `form:"longitude" binding:"required"`
	Radius    float64  `form:"radius"`
}

func (rs *RestfulServer) NearbyStations(c *gin.Context) {
	var q NearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stations, err := rs.Rental.Station.NearbyStations(c.Request.Context(), *q.Latitude, *q.Longitude, q.Radius)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stations)
}
