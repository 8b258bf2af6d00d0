package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Raghu1611/freshmart-sub000/internal/auth"
	"github.com/Raghu1611/freshmart-sub000/internal/cache"
	"github.com/Raghu1611/freshmart-sub000/internal/cart"
	cartpoller "github.com/Raghu1611/freshmart-sub000/internal/cart/poller"
	"github.com/Raghu1611/freshmart-sub000/internal/catalog"
	"github.com/Raghu1611/freshmart-sub000/internal/checkout"
	"github.com/Raghu1611/freshmart-sub000/internal/checkout/publisher"
	h "github.com/Raghu1611/freshmart-sub000/internal/http"
	"github.com/Raghu1611/freshmart-sub000/internal/notify"
	"github.com/Raghu1611/freshmart-sub000/internal/orders"
	"github.com/Raghu1611/freshmart-sub000/internal/orders/consumer"
	"github.com/Raghu1611/freshmart-sub000/internal/payment"
	pgdb "github.com/Raghu1611/freshmart-sub000/internal/postgres"
	"github.com/Raghu1611/freshmart-sub000/internal/session"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	RedisAddr string
	MongoURI  string
	MongoDB   string

	PostgresHost       string
	PostgresPort       int
	PostgresUser       string
	PostgresPassword   string
	PostgresDB         string
	PostgresMigrations string

	CatalogDBPath     string
	CatalogMigrations string

	KafkaBrokers []string

	PaymentBaseURL string
	PaymentAPIKey  string

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "freshmart"),

		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:       getEnv("POSTGRES_USER", "freshmart"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "freshmart"),
		PostgresDB:         getEnv("POSTGRES_DB", "freshmart"),
		PostgresMigrations: getEnv("POSTGRES_MIGRATIONS", "migrations/postgres"),

		CatalogDBPath:     getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrations: getEnv("CATALOG_MIGRATIONS", "migrations/catalog"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		PaymentBaseURL: getEnv("PAYMENT_BASE_URL", "https://api.payment.test"),
		PaymentAPIKey:  getEnv("PAYMENT_API_KEY", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@freshmart.test"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs the session store, OTP store and cart cache.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	// MongoDB holds the carts.
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Fatalf("failed to create cart indexes: %v", err)
	}

	// Postgres holds users, checkout sessions, the outbox and orders.
	db, err := pgdb.Connect(&pgdb.Credentials{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()
	if err := pgdb.RunMigrations(db, cfg.PostgresMigrations); err != nil {
		log.Fatalf("failed to run postgres migrations: %v", err)
	}

	// SQLite holds the product catalog.
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("failed to open catalog database: %v", err)
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrations); err != nil {
		log.Fatalf("failed to run catalog migrations: %v", err)
	}

	// Session stores and the inactivity engine.
	sessionStore := auth.NewSessionStore(redisClient)
	otpStore := auth.NewOTPStore(redisClient)
	tracker := session.NewTracker(session.NewClock(), notify.LogNotifier{}, notify.LogNavigator{}, sessionStore)
	defer tracker.Close()

	var mailer auth.Mailer = auth.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = auth.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	authSvc := auth.NewService(auth.NewRepository(db), sessionStore, otpStore, mailer, tracker)

	// Cart, checkout and orders.
	cartCache := cache.NewRedisCache(redisClient)
	cartSvc := cart.NewService(cartRepo, cartCache)

	paymentClient := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey, 10*time.Second)
	checkoutRepo := checkout.NewRepository(db)
	checkoutSvc := checkout.NewService(checkoutRepo, cartSvc, paymentClient)

	ordersRepo := orders.NewRepository(db)

	// Background workers: outbox publishing plus the two consumers that
	// react to completed checkouts.
	outboxPoller := publisher.NewOutboxPoller(checkoutRepo, cfg.KafkaBrokers...)
	defer outboxPoller.Close()
	go outboxPoller.Run(ctx)

	ordersConsumer := consumer.NewConsumer(ordersRepo, cfg.KafkaBrokers...)
	defer ordersConsumer.Close()
	go ordersConsumer.Run(ctx)

	cartPoller := cartpoller.NewPoller(cartRepo, cartCache, cfg.KafkaBrokers...)
	defer cartPoller.Close()
	go cartPoller.Run(ctx)

	router := h.NewRouter(h.Handlers{
		Auth:     h.NewAuthHandler(authSvc, sessionStore, tracker, cfg.RequestTimeout),
		Products: h.NewProductHandler(catalogRepo, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(cartSvc, catalogRepo, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkoutSvc, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(ordersRepo, cfg.RequestTimeout),
		AuthMW:   h.NewAuthMiddleware(sessionStore, tracker),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("freshmart starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
