package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawhaven/pet-adoption-api/internal/adoption"
	"github.com/pawhaven/pet-adoption-api/internal/auth"
	"github.com/pawhaven/pet-adoption-api/internal/catalog"
	"github.com/pawhaven/pet-adoption-api/internal/config"
	"github.com/pawhaven/pet-adoption-api/internal/middleware"
	"github.com/pawhaven/pet-adoption-api/internal/models"
	"github.com/pawhaven/pet-adoption-api/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	// ── PostgreSQL (users) ───────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	userStore := store.NewPostgresStore(pgPool)
	if err := userStore.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres migrate")
	}

	// ── MongoDB (pets, adoptions) ────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database(cfg.MongoDB)
	petStore := store.NewPetStore(mongoDB)
	adoptionStore := store.NewAdoptionStore(mongoDB)
	if err := petStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("pet indexes")
	}
	if err := adoptionStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("adoption indexes")
	}

	// ── Redis (rate limiting) ────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	limiter := middleware.NewRedisLimiter(rdb)

	// ── MinIO (pet images) ───────────────────────────────────
	imageStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio connect")
	}

	// ── Handlers ─────────────────────────────────────────────
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	authHandler := auth.NewHandler(userStore, tokens, log)
	catalogHandler := catalog.NewHandler(petStore, imageStore, log)
	adoptionService := adoption.NewService(adoptionStore, petStore, userStore, log)
	adoptionHandler := adoption.NewHandler(adoptionService, log)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public, rate limited)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, middleware.ClientIP, 10, time.Minute))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Pet catalog: public reads, admin writes
	r.Route("/api/pets", func(r chi.Router) {
		r.Get("/", catalogHandler.List)
		r.Get("/{id}", catalogHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens))
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Post("/", catalogHandler.Create)
			r.Put("/{id}", catalogHandler.Update)
			r.Delete("/{id}", catalogHandler.Delete)
		})
	})

	// Adoption workflow (authenticated; review endpoints admin only)
	r.Route("/api/adoptions", func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens))
		r.Post("/{petId}", adoptionHandler.Apply)
		r.Get("/my", adoptionHandler.ListMine)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/", adoptionHandler.ListAll)
			r.Put("/{id}", adoptionHandler.UpdateStatus)
		})
	})

	// Uploaded pet images
	r.Get("/uploads/{key}", catalogHandler.ServeImage)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
