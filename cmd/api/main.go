package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/yourusername/livequiz-api/internal/config"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/handler"
	"github.com/yourusername/livequiz-api/internal/middleware"
	memRepo "github.com/yourusername/livequiz-api/internal/repository/memory"
	pgRepo "github.com/yourusername/livequiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/livequiz-api/internal/repository/redis"
	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/service/quizengine"
	ws "github.com/yourusername/livequiz-api/internal/websocket"
	"github.com/yourusername/livequiz-api/pkg/database"
)

// stores - авторитетное хранилище и неавторитетные кеш и журнал статистики
type stores struct {
	quizRepo        repository.QuizRepository
	questionRepo    repository.QuestionRepository
	participantRepo repository.ParticipantRepository
	attemptRepo     repository.AttemptRepository
	cacheRepo       repository.CacheRepository
	statsRepo       repository.StatsRepository
	redisEnabled    bool
	closers         []func()
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()

	st, err := openStores(cfg, clock)
	if err != nil {
		log.Printf("Failed to initialize stores: %v", err)
		os.Exit(1)
	}
	defer st.close()

	// Контекст жизненного цикла фоновых горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := quizengine.New(engineConfig(cfg.Quiz), &quizengine.Dependencies{
		QuizRepo:     st.quizRepo,
		QuestionRepo: st.questionRepo,
		AttemptRepo:  st.attemptRepo,
		CacheRepo:    st.cacheRepo,
		StatsRepo:    st.statsRepo,
		Clock:        clock,
	}, st.redisEnabled)
	go engine.Run(ctx)

	wsHub := ws.NewHub(cfg.WebSocket.MaxClientsPerRoom)
	go wsHub.Run(ctx)
	wsManager := ws.NewManager(wsHub)

	// Инициализируем сервисы
	participationService := service.NewParticipationService(
		engine, st.quizRepo, st.questionRepo, st.participantRepo, st.attemptRepo, wsManager,
	)
	quizService := service.NewQuizService(
		st.quizRepo, st.questionRepo, engine.Cache, wsManager, clock, cfg.Quiz.DefaultParticipantLimit,
	)

	routes := &handler.Routes{
		Play:        handler.NewPlayHandler(participationService),
		Quiz:        handler.NewQuizHandler(quizService, participationService),
		WS:          handler.NewWSHandler(wsHub, wsManager, participationService, cfg.Server.AllowedOrigins),
		JoinLimiter: engine.Limiter,
		AdminAuth:   middleware.NewAdminAuth(cfg.Admin.Token),
	}

	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	// Ключ ограничителя подключений - c.ClientIP(), поэтому прокси-заголовкам доверяем только локально
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminTokenHeader},
		ExposeHeaders: []string{"Content-Length", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}))

	routes.Register(router)

	// Тайм-ауты защищают от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	// Останавливаем фоновые горутины и закрываем WebSocket комнаты
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}

// openStores выбирает хранилища по конфигурации: postgres или память процесса,
// Redis или no-op кеш.
func openStores(cfg *config.Config, clock clockwork.Clock) (*stores, error) {
	st := &stores{}

	switch cfg.Database.Driver {
	case "memory":
		log.Println("[Main] Using in-memory store (data is lost on restart)")
		store := memRepo.NewStore(clock)
		st.quizRepo = memRepo.NewQuizRepo(store)
		st.questionRepo = memRepo.NewQuestionRepo(store)
		st.participantRepo = memRepo.NewParticipantRepo(store)
		st.attemptRepo = memRepo.NewAttemptRepo(store)
	default:
		db, err := database.NewPostgresDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateDB(db, cfg.Database.Migrations); err != nil {
			return nil, err
		}
		if sqlDB, err := database.GetSQLDB(db); err == nil {
			st.closers = append(st.closers, func() { sqlDB.Close() })
		}
		st.quizRepo = pgRepo.NewQuizRepo(db)
		st.questionRepo = pgRepo.NewQuestionRepo(db)
		st.participantRepo = pgRepo.NewParticipantRepo(db)
		st.attemptRepo = pgRepo.NewAttemptRepo(db, cfg.Quiz.StoreTimeout)
	}

	if !cfg.Redis.Enabled {
		log.Println("[Main] Redis disabled: metadata cache off, join limiter and stats in memory")
		st.cacheRepo = redisRepo.NewNoOpCacheRepo()
		st.statsRepo = memRepo.NewStatsRepo()
		return st, nil
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		// Кеш не авторитетен: продолжаем без него
		log.Printf("[Main] WARNING: Redis unavailable, falling back to no-op cache: %v", err)
		st.cacheRepo = redisRepo.NewNoOpCacheRepo()
		st.statsRepo = memRepo.NewStatsRepo()
		return st, nil
	}
	log.Println("Successfully connected to Redis")
	st.closers = append(st.closers, func() { redisClient.Close() })

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		return nil, err
	}
	statsRepo, err := redisRepo.NewStatsRepo(redisClient)
	if err != nil {
		return nil, err
	}
	st.cacheRepo = cacheRepo
	st.statsRepo = statsRepo
	st.redisEnabled = true
	return st, nil
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func engineConfig(q config.QuizConfig) *quizengine.Config {
	return &quizengine.Config{
		JoinRateLimit:          q.JoinRateLimit,
		JoinRateWindow:         q.JoinRateWindow,
		MetadataCacheTTL:       q.MetadataCacheTTL,
		LockRegistryMaxEntries: q.LockRegistryMaxEntries,
		LockRegistryKeep:       q.LockRegistryKeep,
		LockSweepInterval:      q.LockSweepInterval,
		LeaderboardLimit:       q.LeaderboardLimit,
		StatsActiveWindow:      q.StatsActiveWindow,
		StatsRetention:         q.StatsRetention,
		StoreTimeout:           q.StoreTimeout,
	}
}
