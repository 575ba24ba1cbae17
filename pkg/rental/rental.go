package rental

import (
	"context"
	"time"

	"liyu1981.xyz/battery-rental-service/pkg/db"
	"liyu1981.xyz/battery-rental-service/pkg/models"
)

//go:generate mockgen -destination=mocks/collaborators.go -package=mocks . PointsAwarder,Notifier,Recorder

// PointsAwarder credits loyalty points. Calls are fire-and-forget from the core's view.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, userID string, amount int, reason string) error
}

type Notifier interface {
	Notify(ctx context.Context, userID, title, content string) error
}

// Recorder receives counters about the core's activity.
type Recorder interface {
	RecordReconcile(outcome string)
	RecordTransition(entity, event string)
	RecordCommitFailure(op string)
}

type IOrder interface {
	CreateOrder(ctx context.Context, userID string, batteryID uint, input OrderInput) (*models.RentalOrder, error)
	ListOrders(ctx context.Context, userID string, page int) (*models.Page[models.RentalOrder], error)
	GetOrder(ctx context.Context, userID string, orderID uint) (*models.RentalOrder, error)
	ConfirmOrder(ctx context.Context, userID string, orderID uint) (*models.RentalOrder, error)
	CancelOrder(ctx context.Context, userID string, orderID uint) (*models.RentalOrder, error)
	ActivateOrder(ctx context.Context, userID string, orderID uint) (*models.UsageSnapshot, error)
	CompleteOrder(ctx context.Context, userID string, orderID uint) (*models.CompletionReceipt, error)
}

type IUsage interface {
	CurrentUsage(ctx context.Context, userID string) (*models.UsageSnapshot, error)
	ToggleDischarge(ctx context.Context, userID string, sessionID uint, action string) (*models.UsageSnapshot, error)
	SetCharge(ctx context.Context, userID string, sessionID uint, value int) (*models.UsageSnapshot, error)
	UsageHistory(ctx context.Context, userID string, page int) (*models.Page[models.BatteryUsage], error)
}

type ICatalog interface {
	ListCategories(ctx context.Context) ([]models.CategorySummary, error)
	ListBatteries(ctx context.Context, filter models.BatteryFilter) (*models.Page[models.Battery], error)
	GetBatteryDetail(ctx context.Context, batteryID uint) (*models.BatteryDetail, error)
}

type IReview interface {
	UpsertReview(ctx context.Context, userID string, batteryID uint, rating int, comment string) (*models.BatteryReview, bool, error)
	AddReply(ctx context.Context, userID string, reviewID uint, parentReplyID *uint, content string) (*models.ReviewReply, error)
}

type IStation interface {
	NearbyStations(ctx context.Context, lat, lng, radiusMeters float64) ([]models.NearbyStation, error)
	RentFromStation(ctx context.Context, userID string, stationID, batteryID uint, rentalDays int) (*models.StationRental, error)
	ReturnToStation(ctx context.Context, userID string, rentalID uint, input ReturnInput) (*models.StationReturnReceipt, error)
	ListStationRentals(ctx context.Context, userID string) ([]models.StationRental, error)
}

type IPoints interface {
	PointsAwarder
	Summary(ctx context.Context, userID string) (*models.PointsSummary, error)
}

type IMessages interface {
	Notifier
	ListMessages(ctx context.Context, userID string) ([]models.UserMessage, error)
	MarkRead(ctx context.Context, userID string, messageID uint) (*models.UserMessage, error)
}

// PointsConfig is how many points each rewarded action earns.
type PointsConfig struct {
	OrderCreated   int
	OrderCompleted int
	Review         int
}

var DefaultPointsConfig = PointsConfig{OrderCreated: 10, OrderCompleted: 20, Review: 15}

type Rental struct {
	Db  db.DB
	Now func() time.Time

	Points   PointsAwarder
	Notifier Notifier
	Recorder Recorder
	Config   PointsConfig

	Order    IOrder
	Usage    IUsage
	Catalog  ICatalog
	Review   IReview
	Station  IStation
	Ledger   IPoints
	Messages IMessages

	locks *KeyedMutex
}

type ServiceOpts struct {
	Points   PointsAwarder
	Notifier Notifier
	Recorder Recorder
	Now      func() time.Time
	Config   *PointsConfig
}

// New wires the core with its store-backed collaborators; WithServices swaps any of them.
func New(database *db.DB) *Rental {
	r := &Rental{
		Db:       *database,
		Now:      time.Now,
		Recorder: nopRecorder{},
		Config:   DefaultPointsConfig,
		locks:    NewKeyedMutex(),
	}

	r.Order = r.GetIOrder()
	r.Usage = r.GetIUsage()
	r.Catalog = r.GetICatalog()
	r.Review = r.GetIReview()
	r.Station = r.GetIStation()
	r.Ledger = r.GetIPoints()
	r.Messages = r.GetIMessages()

	r.Points = r.Ledger
	r.Notifier = r.Messages
	return r
}

func (r *Rental) WithServices(opts ServiceOpts) *Rental {
	if opts.Points != nil {
		r.Points = opts.Points
	}
	if opts.Notifier != nil {
		r.Notifier = opts.Notifier
	}
	if opts.Recorder != nil {
		r.Recorder = opts.Recorder
	}
	if opts.Now != nil {
		r.Now = opts.Now
	}
	if opts.Config != nil {
		r.Config = *opts.Config
	}
	return r
}

func (r *Rental) now() time.Time {
	return r.Now().UTC()
}

type nopRecorder struct{}

func (nopRecorder) RecordReconcile(string)          {}
func (nopRecorder) RecordTransition(string, string) {}
func (nopRecorder) RecordCommitFailure(string)      {}
