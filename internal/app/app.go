package app

import (
	"context"
	"encoding/json"

	"daoverse-backend/internal/auth"
	"daoverse-backend/internal/config"
	"daoverse-backend/internal/database"
	"daoverse-backend/internal/domain"
	"daoverse-backend/internal/governance"
	"daoverse-backend/internal/health"
	"daoverse-backend/internal/ledger"
	"daoverse-backend/internal/marketplace"
	"daoverse-backend/internal/middleware"
	"daoverse-backend/internal/pkg/response"
	"daoverse-backend/internal/registry"
	"daoverse-backend/internal/renting"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. Passing db lets tests supply an in-memory database; nil
// opens cfg.DatabaseURL.
func CreateApp(cfg *config.Config, db *gorm.DB) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))

	// Session (Redis); the Redis client is reused for the health marker
	sessionCfg := middleware.SessionConfig{
		Secret:       cfg.SessionSecret,
		RedisURL:     cfg.RedisURL,
		IsProduction: cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, err
	}
	app.Use(sessionHandler)

	// Health request marker (after session)
	app.Use(middleware.HealthMarker(rdb))

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	if db == nil && cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
	}
	if db != nil {
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		if err := database.Seed(db, cfg.Deployer, cfg.FeePercentage); err != nil {
			return nil, err
		}
	}

	// Health module
	healthHandlers := &health.Handlers{Rdb: rdb}
	app.Get("/", healthHandlers.Live)
	app.Get("/health/json", healthHandlers.JSON)

	// Auth (no auth middleware)
	authHandlers := &auth.Handlers{Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/connect", authHandlers.Connect)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/disconnect", authHandlers.Disconnect)

	// --- Protected modules (wallet session required) ---
	if db != nil {
		registryService := &registry.Service{DB: db, BaseURI: cfg.BaseURI}
		rentingService := &renting.Service{
			DB:             db,
			Registry:       registryService,
			PeriodDuration: cfg.PeriodDuration,
		}
		marketService := &marketplace.Service{DB: db, Registry: registryService}
		walletService := &ledger.Service{DB: db}
		chainLog := &ledger.Log{DB: db}
		governanceService := &governance.Service{
			DB:       db,
			Registry: registryService,
			Targets: map[string]governance.AdminTarget{
				governance.TargetRenting:  governance.RentingTarget{Service: rentingService},
				governance.TargetSale:     governance.SaleTarget{Service: marketService},
				governance.TargetRegistry: governance.RegistryTarget{Service: registryService},
			},
			TimelockAddress: cfg.TimelockAddress,
			VotingDelay:     cfg.VotingDelay,
			VotingPeriod:    cfg.VotingPeriod,
			MinDelay:        cfg.MinDelay,
			QuorumPercent:   cfg.QuorumPercent,
		}

		// Marketplaces act on rooms as operators (transfer on sale, rental
		// right on rent). Registered at boot; idempotent. A failure here
		// would leave every rent and buy rejected, so it aborts startup.
		ctx := context.Background()
		owner, err := registryService.RegistryOwner(ctx)
		if err != nil {
			return nil, err
		}
		for _, operator := range []string{domain.RentingMarketAddress, domain.SaleMarketAddress} {
			if err := registryService.RegisterOperator(ctx, owner, operator); err != nil {
				return nil, err
			}
		}

		// Rooms module. Reads are public and registered ahead of the
		// wallet-gated group so the group middleware does not catch them.
		roomHandlers := &registry.Handlers{Service: registryService}
		app.Get("/api/v1/rooms", roomHandlers.ListRooms)
		app.Get("/api/v1/rooms/votes/:address", roomHandlers.GetVotes)
		app.Get("/api/v1/rooms/:room_id", roomHandlers.GetRoom)
		app.Get("/api/v1/rooms/:room_id/user", roomHandlers.GetUser)
		roomGroup := app.Group("/api/v1/rooms", middleware.RequireWallet())
		roomGroup.Post("/mint", roomHandlers.Mint)
		roomGroup.Post("/delegate", roomHandlers.Delegate)
		roomGroup.Post("/:room_id/transfer", roomHandlers.Transfer)
		roomGroup.Post("/:room_id/set-user", roomHandlers.SetUser)

		// Renting module
		rentingHandlers := &renting.Handlers{Service: rentingService}
		app.Get("/api/v1/renting/listing/:room_id", rentingHandlers.GetListing)
		app.Get("/api/v1/renting/fee", rentingHandlers.GetFee)
		rentingGroup := app.Group("/api/v1/renting", middleware.RequireWallet())
		rentingGroup.Post("/list-room", rentingHandlers.ListRoom)
		rentingGroup.Post("/cancel-listing", rentingHandlers.CancelListing)
		rentingGroup.Post("/rent", rentingHandlers.Rent)
		rentingGroup.Post("/withdraw-proceeds", rentingHandlers.WithdrawProceeds)
		rentingGroup.Post("/withdraw-fees", rentingHandlers.WithdrawFees)

		// Sale market module
		marketHandlers := &marketplace.Handlers{Service: marketService}
		app.Get("/api/v1/market/listing/:room_id", marketHandlers.GetListing)
		app.Get("/api/v1/market/fee", marketHandlers.GetFee)
		marketGroup := app.Group("/api/v1/market", middleware.RequireWallet())
		marketGroup.Post("/list-room", marketHandlers.ListRoom)
		marketGroup.Post("/update-listing", marketHandlers.UpdateListing)
		marketGroup.Post("/cancel-listing", marketHandlers.CancelListing)
		marketGroup.Post("/buy", marketHandlers.Buy)
		marketGroup.Post("/withdraw-proceeds", marketHandlers.WithdrawProceeds)
		marketGroup.Post("/withdraw-fees", marketHandlers.WithdrawFees)

		// Governance module
		govHandlers := &governance.Handlers{Service: governanceService}
		app.Get("/api/v1/governance/proposals", govHandlers.ListProposals)
		app.Get("/api/v1/governance/proposals/:proposal_id", govHandlers.GetProposal)
		govGroup := app.Group("/api/v1/governance", middleware.RequireWallet())
		govGroup.Post("/propose", govHandlers.Propose)
		govGroup.Post("/vote", govHandlers.Vote)
		govGroup.Post("/queue", govHandlers.Queue)
		govGroup.Post("/execute", govHandlers.Execute)
		govGroup.Post("/cancel", govHandlers.Cancel)

		// Wallet + chain
		ledgerHandlers := &ledger.Handlers{Service: walletService, Log: chainLog}
		walletGroup := app.Group("/api/v1/wallet", middleware.RequireWallet())
		walletGroup.Get("/balance", ledgerHandlers.Balance)
		walletGroup.Post("/deposit", ledgerHandlers.Deposit)
		app.Get("/api/v1/chain/height", ledgerHandlers.Height)
		app.Get("/api/v1/chain/events", ledgerHandlers.Events)
		app.Post("/api/v1/chain/advance", middleware.RequireWallet(), ledgerHandlers.Advance)

		// Ops route: hand a contract's ownership to the timelock (or any
		// new owner). The services enforce that the caller is the current
		// owner.
		app.Post("/api/v1/admin/transfer-ownership", middleware.RequireWallet(), func(c *fiber.Ctx) error {
			var body struct {
				Target   string `json:"target"`
				NewOwner string `json:"new_owner"`
			}
			if err := json.Unmarshal(c.Body(), &body); err != nil {
				return response.Error(c, "Invalid request body", 400, nil)
			}
			caller := middleware.CallerAddress(c)
			var err error
			switch body.Target {
			case governance.TargetRenting:
				err = rentingService.TransferOwnership(c.Context(), caller, body.NewOwner)
			case governance.TargetSale:
				err = marketService.TransferOwnership(c.Context(), caller, body.NewOwner)
			case governance.TargetRegistry:
				err = registryService.TransferRegistryOwnership(c.Context(), caller, body.NewOwner)
			default:
				return response.Error(c, "Unknown target", 400, fiber.Map{"target": body.Target})
			}
			if err != nil {
				return response.Error(c, err.Error(), 403, nil)
			}
			return response.Success(c, "Ownership transferred", fiber.Map{
				"target":    body.Target,
				"new_owner": body.NewOwner,
			}, nil)
		})

		healthHandlers.DB = gormPinger{db}
	}

	return app, nil
}

type gormPinger struct{ db *gorm.DB }

func (p gormPinger) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
