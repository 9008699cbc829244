package router

import (
	"time"

	"caixadiario/internal/config"
	"caixadiario/internal/handler"
	"caixadiario/internal/infra"
	"caixadiario/internal/middleware"
	"caixadiario/internal/model"
	"caixadiario/internal/repository"
	"caixadiario/internal/service"
	"caixadiario/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: closings then run unlocked and no summary jobs are queued.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	var (
		locker infra.Locker
		jobs   service.ResumoEnqueuer
	)
	if rdb != nil {
		locker = infra.NewRedisLocker(rdb)
		jobs = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	unidadeRepo := repository.NewUnidadeRepository(db)
	fechamentoRepo := repository.NewFechamentoRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	lockTTL := time.Duration(cfg.FechamentoLockTTLSeconds) * time.Second
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	unidadeSvc := service.NewUnidadeService(unidadeRepo, rdb)
	fechamentoSvc := service.NewFechamentoService(fechamentoRepo, unidadeRepo, locker, jobs, lockTTL)
	relatorioSvc := service.NewRelatorioService(fechamentoRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	unidadesH := handler.NewUnidadesHandler(unidadeSvc, fechamentoSvc)
	fechamentosH := handler.NewFechamentosHandler(fechamentoSvc)
	relatoriosH := handler.NewRelatoriosHandler(relatorioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/signup", middleware.LoginRateLimiter(), authH.Signup)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		todos := middleware.RequireRole(model.RoleUser, model.RoleAdmin)
		admin := middleware.RequireRole(model.RoleAdmin)

		v1.GET("/unidades", todos, unidadesH.Listar)
		v1.GET("/unidades/:id/saldo-anterior", todos, unidadesH.SaldoAnterior)

		v1.POST("/fechamentos", todos, fechamentosH.Criar)
		v1.GET("/fechamentos", admin, fechamentosH.Listar)
		// USER may read only closings they prepared; enforced in the handler.
		v1.GET("/fechamentos/:id", todos, fechamentosH.Obter)
		v1.GET("/fechamentos/:id/pdf", todos, fechamentosH.PDF)

		rel := v1.Group("/relatorios", admin)
		{
			rel.GET("", relatoriosH.Gerar)
			rel.GET("/xlsx", relatoriosH.ExportarXLSX)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
