package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/frontdesk/internal/config"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/handler"
	"github.com/mansoorceksport/frontdesk/internal/middleware"
	"github.com/mansoorceksport/frontdesk/internal/repository"
	"github.com/mansoorceksport/frontdesk/internal/service"
	"github.com/mansoorceksport/frontdesk/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
)

const idempotencyTTL = 24 * time.Hour

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoClient *mongo.Client
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	AuthClient  service.FirebaseAuthClient
	// Archive is nil when no object storage is configured
	Archive domain.FileRepository
	Logger  *logrus.Logger
	Clock   domain.Clock
}

// Services groups the application services so commands other than the HTTP
// server can share the same wiring.
type Services struct {
	Lifecycle   *service.LifecycleManager
	CheckIn     *service.CheckInCoordinator
	Aggregation *service.AggregationEngine
	Dashboard   *service.DashboardService
	Members     *service.MemberService
	Finance     *service.FinanceService
	Auth        *service.AuthService
	Tokens      *service.TokenService
}

// NewServices builds repositories and services on top of Mongo and Redis.
func NewServices(deps AppDependencies) *Services {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	loc := cfg.Server.Location()

	// Initialize repositories
	cacheRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	memberRepo := repository.NewCachedMemberRepository(repository.NewMongoMemberRepository(deps.MongoDB), cacheRepo)
	membershipRepo := repository.NewMongoMembershipRepository(deps.MongoDB)
	visitRepo := repository.NewMongoVisitRepository(deps.MongoDB)
	expenseRepo := repository.NewMongoExpenseRepository(deps.MongoDB)
	ancillaryRepo := repository.NewMongoAncillaryServiceRepository(deps.MongoDB)
	staffRepo := repository.NewMongoStaffRepository(deps.MongoDB)
	refreshRepo := repository.NewMongoRefreshTokenRepository(deps.MongoDB)
	txManager := repository.NewMongoTxManager(deps.MongoClient)
	locker := repository.NewRedisMemberLocker(deps.RedisClient)

	metrics, err := telemetry.NewCheckInMetrics(otel.GetMeterProvider())
	if err != nil {
		log.WithError(err).Warn("Check-in metrics disabled")
	}

	lockTTL := cfg.Redis.CheckInLockTTL
	lifecycle := service.NewLifecycleManager(membershipRepo, memberRepo, txManager, locker, cacheRepo, clock, loc, lockTTL, metrics, log)
	coordinator := service.NewCheckInCoordinator(lifecycle, memberRepo, visitRepo, txManager, locker, cacheRepo, clock, loc, lockTTL, metrics, log)
	aggregation := service.NewAggregationEngine(membershipRepo, visitRepo, expenseRepo, ancillaryRepo, loc)
	tokens := service.NewTokenService(cfg.JWT, refreshRepo, staffRepo, clock)

	return &Services{
		Lifecycle:   lifecycle,
		CheckIn:     coordinator,
		Aggregation: aggregation,
		Dashboard:   service.NewDashboardService(aggregation, membershipRepo, memberRepo, visitRepo, cacheRepo, clock, loc, cfg.Redis.DashboardCacheTTL, log),
		Members:     service.NewMemberService(memberRepo, visitRepo, cacheRepo, clock, loc, log),
		Finance:     service.NewFinanceService(expenseRepo, ancillaryRepo, memberRepo, aggregation, deps.Archive, cacheRepo, clock, loc, cfg.Redis.DashboardCacheTTL, log),
		Auth:        service.NewAuthService(staffRepo, deps.AuthClient, tokens, log),
		Tokens:      tokens,
	}
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	svc := NewServices(deps)
	cfg := deps.Config

	// Initialize handlers
	authHandler := handler.NewAuthHandler(svc.Auth, svc.Tokens, cfg.JWT.RefreshTokenExpiry)
	checkInHandler := handler.NewCheckInHandler(svc.CheckIn, svc.Lifecycle)
	memberHandler := handler.NewMemberHandler(svc.Members, svc.Lifecycle)
	membershipHandler := handler.NewMembershipHandler(svc.Lifecycle)
	ownerHandler := handler.NewOwnerHandler(svc.Dashboard, svc.Aggregation, svc.Finance)

	bodyLimit := cfg.Server.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 1
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Front Desk API",
		BodyLimit:    int(bodyLimit * 1024 * 1024),
		ErrorHandler: errorHandler(deps.Logger),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(telemetry.FiberMiddleware())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "frontdesk",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// Auth endpoints (public)
	auth := v1.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	// ===========================================
	// DESK API - /v1/desk/* (front desk and owner)
	// ===========================================
	desk := v1.Group("/desk")
	desk.Use(middleware.VerifyStaffToken(cfg.JWT.Secret))
	desk.Use(middleware.AuthorizeRole(domain.RoleFrontDesk, domain.RoleOwner))
	desk.Use(middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL))

	desk.Get("/plans", membershipHandler.Plans)
	desk.Post("/check-ins", checkInHandler.CheckIn)

	desk.Get("/visits", memberHandler.ListVisits)
	desk.Delete("/visits/:id", memberHandler.DeleteVisit)

	desk.Post("/members", memberHandler.Register)
	desk.Get("/members", memberHandler.List)
	desk.Get("/members/:id", memberHandler.Get)
	desk.Delete("/members/:id", memberHandler.Delete)
	desk.Get("/members/:id/eligibility", checkInHandler.Eligibility)
	desk.Get("/members/:id/memberships", membershipHandler.ListByMember)
	desk.Post("/members/:id/memberships", membershipHandler.Add)

	desk.Put("/memberships/:id", membershipHandler.Edit)
	desk.Delete("/memberships/:id", membershipHandler.Delete)

	desk.Post("/services", ownerHandler.RecordService)
	desk.Delete("/services/:id", ownerHandler.DeleteService)

	// ===========================================
	// OWNER API - /v1/owner/* (requires 'owner' role)
	// ===========================================
	owner := v1.Group("/owner")
	owner.Use(middleware.VerifyStaffToken(cfg.JWT.Secret))
	owner.Use(middleware.AuthorizeRole(domain.RoleOwner))

	owner.Get("/dashboard", ownerHandler.Dashboard)
	owner.Get("/memberships/ending-soon", ownerHandler.EndingSoon)
	owner.Get("/finance/:year/:month", ownerHandler.MonthlyReport)
	owner.Post("/finance/:year/:month/archive", ownerHandler.ArchiveReport)
	owner.Post("/expenses", ownerHandler.RecordExpense)
	owner.Get("/expenses", ownerHandler.ListExpenses)
	owner.Delete("/expenses/:id", ownerHandler.DeleteExpense)
	owner.Get("/services", ownerHandler.ListServices)

	return app
}

func errorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		log.WithError(err).WithField("path", c.Path()).Error("Request failed")
		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
