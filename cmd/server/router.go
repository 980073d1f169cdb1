package main

import (
	"context"
	"strings"
	"time"

	"notemesh/cmd/server/handlers"
	authHandlers "notemesh/cmd/server/handlers/auth"
	"notemesh/cmd/server/handlers/httperr"
	notesHandlers "notemesh/cmd/server/handlers/notes"
	sharingHandlers "notemesh/cmd/server/handlers/sharing"
	"notemesh/cmd/server/middlewares"
	"notemesh/internal/clients/mongo"
	"notemesh/internal/config"
	"notemesh/internal/logger"
	authServices "notemesh/internal/services/auth"
	notesServices "notemesh/internal/services/notes"
	sharingServices "notemesh/internal/services/sharing"
	visibilityServices "notemesh/internal/services/visibility"
	"notemesh/internal/utils/crypto"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/oklog/ulid/v2"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(ctx context.Context, cfg config.Config) *fiber.App {

	// Initialize validator and register the custom field rules
	v := validator.New()
	if err := crypto.RegisterValidators(v); err != nil {
		logger.L().Error("failed to register validators", "err", err)
		panic(err)
	}

	// Validate JWT algorithm at boot
	alg := strings.ToUpper(cfg.JWTAlgorithm)
	switch alg {
	case "HS256":
		// Valid algorithm
	default:
		logger.L().Error(authServices.ErrUnsupportedJWTAlg.Error(), "algorithm", cfg.JWTAlgorithm)
		panic(authServices.ErrUnsupportedJWTAlg.Error() + ": " + cfg.JWTAlgorithm)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return ulid.Make().String() },
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app)
	}

	// Health check endpoint, outside the versioned API to avoid logging
	app.Get("/healthz", handlers.Healthz)

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(cfg)
	limiterMW := middlewares.BuildRateLimiter(cfg.SignInRatePerMin, RateLimitExpiration)

	// Repositories
	usersRepo := mongo.NewUsersRepo(mongo.DB())
	refreshTokensRepo := mongo.NewRefreshTokensRepo(mongo.DB())

	notesRepo, err := mongo.NewNotesRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error(notesServices.ErrCreateNotesRepo.Error(), "error", err)
		panic(err)
	}
	sharesRepo, err := mongo.NewSharesRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error(sharingServices.ErrCreateSharesRepo.Error(), "error", err)
		panic(err)
	}

	// Services
	authSvc := authServices.NewService(usersRepo, refreshTokensRepo, cfg, logger.L())
	notesSvc := notesServices.NewService(notesRepo, sharesRepo, logger.L())
	sharingSvc := sharingServices.NewService(sharesRepo, usersRepo, notesRepo, logger.L())
	visibilitySvc := visibilityServices.NewService(notesRepo, sharesRepo, cfg, logger.L())

	// Auth routes
	authH := authHandlers.NewHandlers(authSvc, v)
	authGrp := v1.Group("/auth", limiterMW)
	authGrp.Post("/sign-up", authH.SignUp)
	authGrp.Post("/sign-in", authH.SignIn)
	authGrp.Post("/refresh", authH.Refresh)
	authGrp.Post("/sign-out", jwtMiddleware, authH.SignOut)
	authGrp.Post("/sign-out-all", jwtMiddleware, authH.SignOutAll)

	// Notes routes
	notesH := notesHandlers.NewHandlers(notesSvc, visibilitySvc, sharingSvc, v)
	notesGrp := v1.Group("/notes", jwtMiddleware)
	notesGrp.Post("/", notesH.Create)
	notesGrp.Get("/", notesH.List)
	notesGrp.Get("/tags", notesH.Tags)
	notesGrp.Get("/:id", notesH.Get)
	notesGrp.Put("/:id", notesH.Update)
	notesGrp.Patch("/:id", notesH.Update)
	notesGrp.Delete("/:id", notesH.Delete)

	// Sharing routes
	sharingH := sharingHandlers.NewHandlers(sharingSvc, v)
	sharingGrp := v1.Group("/sharing", jwtMiddleware)
	sharingGrp.Post("/", sharingH.Create)
	sharingGrp.Get("/", sharingH.List)
	sharingGrp.Get("/stats", sharingH.Stats)
	sharingGrp.Get("/notes/:note_id", sharingH.GetSharedNote)
	sharingGrp.Get("/notes/:note_id/access", sharingH.Access)
	sharingGrp.Delete("/:share_id", sharingH.Revoke)

	// User profile endpoint
	v1.Get("/me", jwtMiddleware, handlers.Me)

	return app
}
