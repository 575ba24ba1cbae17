package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyRentalDBType string = "RENTAL_DB_TYPE"
	EnvKeyRentalDbPath string = "RENTAL_DB_PATH"

	EnvKeyRentalHttpHostPort string = "RENTAL_HTTP_HOST_PORT"
	EnvKeyRentalGrpcHostPort string = "RENTAL_GRPC_HOST_PORT"

	EnvKeyRentalPollRate  string = "RENTAL_POLL_RATE"
	EnvKeyRentalPollBurst string = "RENTAL_POLL_BURST"

	EnvKeyRentalJWTSecret string = "RENTAL_JWT_SECRET"

	EnvKeyRentalLogDir string = "RENTAL_LOG_DIR"

	EnvKeyRentalPointsOrderCreated   string = "RENTAL_POINTS_ORDER_CREATED"
	EnvKeyRentalPointsOrderCompleted string = "RENTAL_POINTS_ORDER_COMPLETED"
	EnvKeyRentalPointsReview         string = "RENTAL_POINTS_REVIEW"

	LoggerNameRentalCore    string = "rental_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameSeed          string = "seed"

	LoggerFieldCategory        string = "category"
	LoggerCategoryOrder        string = "order"
	LoggerCategoryUsage        string = "usage"
	LoggerCategoryReconcile    string = "reconcile"
	LoggerCategoryCatalog      string = "catalog"
	LoggerCategoryReview       string = "review"
	LoggerCategoryStation      string = "station"
	LoggerCategoryPoints       string = "points"
	LoggerCategoryNotification string = "notification"
)
