package main

import (
	"database/sql"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wichananm65/cart-api-backend/internal/cart"
	"github.com/wichananm65/cart-api-backend/internal/checkout"
	"github.com/wichananm65/cart-api-backend/internal/config"
	"github.com/wichananm65/cart-api-backend/internal/order"
	"github.com/wichananm65/cart-api-backend/internal/product"
	"github.com/wichananm65/cart-api-backend/internal/user"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	db := mustOpenDB(cfg.DatabaseURL)
	defer db.Close()
	ensureSchema(db)

	app := fiber.New()
	setupCORS(app)

	app.Get("/", healthCheck)
	app.Get("/ping", healthCheck)

	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService, cfg.JWTSecret)
	userHandler.RegisterPublicRoutes(app)

	// everything registered after this point requires a valid token
	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
	}))

	userHandler.RegisterProtectedRoutes(app)

	catalog := product.NewGateway(cfg.ProductsAPIURL, cfg.CatalogTimeout)

	cartRepo := cart.NewPostgresRepository(db)
	cartService := cart.NewService(cartRepo, catalog)
	cartHandler := cart.NewHandler(cartService)
	cartHandler.RegisterProtectedRoutes(app)

	orderRepo := order.NewPostgresRepository(db)
	orderHandler := order.NewHandler(order.NewService(orderRepo))

	// checkout shares one transaction across the order and cart stores
	checkoutService := checkout.NewService(db, cartService, orderRepo, cartRepo)
	checkoutHandler := checkout.NewHandler(checkoutService)
	checkoutHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)

	log.Info().Str("addr", cfg.Addr).Msg("starting cart api")
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "OK"})
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func mustOpenDB(dbURL string) *sql.DB {
	if dbURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	return db
}

func ensureSchema(db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			cart_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'OPEN',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		// at most one OPEN cart per user, even across service instances
		`CREATE UNIQUE INDEX IF NOT EXISTS carts_one_open_per_user
			ON carts (user_id) WHERE status = 'OPEN'`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			cart_id TEXT NOT NULL REFERENCES carts (cart_id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			quantity INT NOT NULL CHECK (quantity >= 1),
			PRIMARY KEY (cart_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			cart_id TEXT NOT NULL,
			address JSONB NOT NULL DEFAULT '{}',
			total DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'OPEN',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id TEXT NOT NULL REFERENCES orders (order_id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			quantity INT NOT NULL,
			PRIMARY KEY (order_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS order_status_history (
			entry_id BIGSERIAL PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders (order_id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure schema")
		}
	}
}
