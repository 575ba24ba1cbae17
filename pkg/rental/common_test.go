package rental

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/battery-rental-service/pkg/db"
	"liyu1981.xyz/battery-rental-service/pkg/models"
	"liyu1981.xyz/battery-rental-service/pkg/rental/mocks"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func GetMockRentalWithMemorySqliteDialector(t *testing.T, useMockPoints, useMockNotifier bool) (
	*gomock.Controller,
	*Rental,
	*mocks.MockPointsAwarder,
	*mocks.MockNotifier,
	*testClock,
) {
	dbInstance := db.GetInstance(db.UseMemorySqliteDialector()) // ensure migrations
	return wireMockRental(t, dbInstance, useMockPoints, useMockNotifier)
}

// GetIsolatedRental runs on a private in-memory database, for tests that install
// gorm callbacks and must not disturb the shared one.
func GetIsolatedRental(t *testing.T) (*Rental, *testClock) {
	dbInstance, err := db.Open(db.UseNamedMemorySqliteDialector(uuid.NewString()))
	require.NoError(t, err)
	_, rentalObj, _, _, clock := wireMockRental(t, dbInstance, false, false)
	return rentalObj, clock
}

func wireMockRental(t *testing.T, dbInstance *db.DB, useMockPoints, useMockNotifier bool) (
	*gomock.Controller,
	*Rental,
	*mocks.MockPointsAwarder,
	*mocks.MockNotifier,
	*testClock,
) {
	ctrl := gomock.NewController(t)

	mockPoints := mocks.NewMockPointsAwarder(ctrl)
	mockNotifier := mocks.NewMockNotifier(ctrl)
	clock := newTestClock()

	rentalObj := New(dbInstance)

	opts := ServiceOpts{Now: clock.Now}
	if useMockPoints {
		opts.Points = mockPoints
	}
	if useMockNotifier {
		opts.Notifier = mockNotifier
	}
	rentalObj.WithServices(opts)

	return ctrl, rentalObj, mockPoints, mockNotifier, clock
}

type fixture struct {
	Category models.BatteryCategory
	Type     models.BatteryType
	Battery  models.Battery
}

func createBattery(t *testing.T, r *Rental, powerW float64) fixture {
	t.Helper()

	var f fixture
	f.Category = models.BatteryCategory{Name: "cat-" + uuid.NewString()[:8], Icon: "bolt"}
	require.NoError(t, r.Db.Conn.Create(&f.Category).Error)

	f.Type = models.BatteryType{Name: "LFP-" + uuid.NewString()[:8], CategoryID: f.Category.ID}
	require.NoError(t, r.Db.Conn.Create(&f.Type).Error)

	f.Battery = addBattery(t, r, f.Type.ID, powerW)
	return f
}

func addBattery(t *testing.T, r *Rental, typeID uint, powerW float64) models.Battery {
	t.Helper()

	battery := models.Battery{
		Name:            "PowerCell " + uuid.NewString()[:4],
		TypeID:          typeID,
		SerialNumber:    "SN-" + uuid.NewString()[:12],
		Status:          models.BatteryStatusAvailable,
		CapacityAh:      100,
		VoltageV:        48,
		PowerW:          powerW,
		WeightKg:        12.5,
		DailyPriceCents: 2500,
		DepositCents:    50000,
		Location:        "Warehouse A",
	}
	require.NoError(t, r.Db.Conn.Create(&battery).Error)
	return battery
}

// confirmedOrder creates and confirms an order for battery on behalf of userID.
func confirmedOrder(t *testing.T, r *Rental, userID string, batteryID uint) *models.RentalOrder {
	t.Helper()
	ctx := context.Background()

	order, err := r.Order.CreateOrder(ctx, userID, batteryID, OrderInput{RentalDays: 3})
	require.NoError(t, err)
	order, err = r.Order.ConfirmOrder(ctx, userID, order.ID)
	require.NoError(t, err)
	return order
}

// activeEpisode returns an activated order and its session snapshot.
func activeEpisode(t *testing.T, r *Rental, userID string, batteryID uint) (*models.RentalOrder, *models.UsageSnapshot) {
	t.Helper()

	order := confirmedOrder(t, r, userID, batteryID)
	snapshot, err := r.Order.ActivateOrder(context.Background(), userID, order.ID)
	require.NoError(t, err)
	return order, snapshot
}

type episodeState struct {
	Session models.BatteryUsage
	Order   models.RentalOrder
	Battery models.Battery
}

func loadEpisode(t *testing.T, r *Rental, sessionID, orderID, batteryID uint) episodeState {
	t.Helper()

	var s episodeState
	require.NoError(t, r.Db.Conn.First(&s.Session, sessionID).Error)
	require.NoError(t, r.Db.Conn.First(&s.Order, orderID).Error)
	require.NoError(t, r.Db.Conn.First(&s.Battery, batteryID).Error)
	return s
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
