// Package httpapi wires the Gin transport to the quest services, middleware
// and handlers. Cross-cutting concerns (tracing, correlation ids, redacted
// access logs, panic recovery, metrics, compression, CORS, security headers,
// auth, idempotency and rate limiting) are mounted here in a fixed order.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-quest-backend/docs"
	"github.com/tbourn/go-quest-backend/internal/auth"
	"github.com/tbourn/go-quest-backend/internal/config"
	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/generator"
	"github.com/tbourn/go-quest-backend/internal/http/handlers"
	"github.com/tbourn/go-quest-backend/internal/http/middleware"
	"github.com/tbourn/go-quest-backend/internal/repo"
	"github.com/tbourn/go-quest-backend/internal/services"
)

// questRepoShim adapts the repo free functions to services.QuestRepo.
type questRepoShim struct{}

func (questRepoShim) CreateQuest(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	return repo.CreateQuest(ctx, db, q)
}

func (questRepoShim) CountQuests(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountQuests(ctx, db, userID)
}

func (questRepoShim) ListQuestsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Quest, error) {
	return repo.ListQuestsPage(ctx, db, userID, offset, limit)
}

func (questRepoShim) GetQuest(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Quest, error) {
	return repo.GetQuest(ctx, db, id, userID)
}

func (questRepoShim) UpdateQuestProgress(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	return repo.UpdateQuestProgress(ctx, db, q)
}

func (questRepoShim) DeleteQuest(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteQuest(ctx, db, id, userID)
}

// trialRepoShim adapts the trial counter functions to services.AttemptRepo
// and services.UsageRepo.
type trialRepoShim struct{}

func (trialRepoShim) CreateAttempt(ctx context.Context, db *gorm.DB, ip string, at time.Time) error {
	return repo.CreateAttempt(ctx, db, ip, at)
}

func (trialRepoShim) CountAttemptsSince(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error) {
	return repo.CountAttemptsSince(ctx, db, ip, since)
}

func (trialRepoShim) GetUsage(ctx context.Context, db *gorm.DB, ip string) (*domain.TrialUsage, error) {
	return repo.GetUsage(ctx, db, ip)
}

func (trialRepoShim) IncrementUsage(ctx context.Context, db *gorm.DB, ip string, at time.Time) (int, error) {
	return repo.IncrementUsage(ctx, db, ip, at)
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Global middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (scrubbed access log)
//  4. Recovery
//  5. RequestLogger (request-scoped logger on gin and request contexts)
//  6. Body size limiter
//  7. Metrics
//  8. Gzip
//  9. CORS and security headers
//
// The API group adds auth.Optional, then the idempotency validator and the
// rate limiter, both of which key on the caller auth resolved.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, gen generator.Generator, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Supabase-Auth"},
	}))
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())

	// Generation requests are tiny; 1 MiB is generous.
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    middleware.DefaultExposeHeaders,
			AllowCredentials: false, // must stay false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    middleware.DefaultExposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services <- repo/db/generator
	attempts := services.NewAttemptLog(db, trialRepoShim{})
	usage := services.NewUsageTracker(db, trialRepoShim{})
	gate := services.NewTrialGate(attempts, usage)

	questSvc := services.NewQuestService(db, questRepoShim{}, gen, gate, attempts, usage)
	if cfg.Generator.Timeout > 0 {
		questSvc.Timeout = cfg.Generator.Timeout
	}
	if cfg.IdempotencyTTL > 0 {
		questSvc.IdempotencyTTL = cfg.IdempotencyTTL
	}

	h := handlers.New(questSvc, questSvc, gate)
	verifier := auth.NewVerifier(cfg.AuthJWTSecret)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByCaller())

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(
		auth.Optional(verifier),
		middleware.IdempotencyValidator(
			middleware.IdempotencyOptions{MaxLen: 200},
			func(ctx context.Context, owner, key string, now time.Time) (bool, error) {
				rec, err := repo.GetIdempotency(ctx, db, owner, services.ScopeGenerate, key, now)
				if err != nil || rec == nil {
					return false, nil
				}
				return true, nil
			},
		),
		rl.Handler(),
	)
	{
		// Generation: anonymous callers are trial gated.
		api.POST("/quests/generate", h.GenerateQuest)

		// Trial
		api.GET("/trial/check-limit", h.CheckLimit)
		api.GET("/trial/quests", h.ListTrialQuests)
		api.GET("/trial/quests/:id", h.GetTrialQuest)
		api.POST("/trial/migrate", auth.Required(verifier), h.MigrateTrialQuests)

		// Signed-in users
		user := api.Group("", auth.Required(verifier))
		user.GET("/quests", h.ListQuests)
		user.GET("/quests/:id", h.GetQuest)
		user.DELETE("/quests/:id", h.DeleteQuest)
		user.POST("/quests/:id/tasks/:taskId/complete", h.CompleteTask)
		user.GET("/progress", h.GetProgress)
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
