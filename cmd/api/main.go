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

	"github.com/techjoejoe/Engagesuite-sub001/internal/config"
	"github.com/techjoejoe/Engagesuite-sub001/internal/handler"
	"github.com/techjoejoe/Engagesuite-sub001/internal/middleware"
	pgRepo "github.com/techjoejoe/Engagesuite-sub001/internal/repository/postgres"
	redisRepo "github.com/techjoejoe/Engagesuite-sub001/internal/repository/redis"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service"
	"github.com/techjoejoe/Engagesuite-sub001/internal/service/gamesession"
	"github.com/techjoejoe/Engagesuite-sub001/pkg/auth"
	"github.com/techjoejoe/Engagesuite-sub001/pkg/database"
)

func main() {
	// Загружаем конфигурацию
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

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	recordTTL := time.Duration(cfg.Game.RecordTTLHrs) * time.Hour
	gameStore, err := redisRepo.NewGameRecordStore(redisClient, recordTTL)
	if err != nil {
		log.Printf("Failed to initialize GameRecordStore: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервис гостевых токенов
	jwtService, err := auth.NewJWTService(cfg.Identity.JWTSecret, cfg.Identity.JWTExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Собираем игровую конфигурацию из файла, пустые значения
	// заполняются умолчаниями
	gameConfig := gamesession.DefaultConfig()
	if cfg.Game.CountdownSeconds > 0 {
		gameConfig.CountdownSeconds = cfg.Game.CountdownSeconds
	}
	if cfg.Game.RevealSeconds > 0 {
		gameConfig.RevealSeconds = cfg.Game.RevealSeconds
	}
	if cfg.Game.ProjectorTickMs > 0 {
		gameConfig.ProjectorTickMs = cfg.Game.ProjectorTickMs
	}
	gameConfig.AutoAdvance = cfg.Game.AutoAdvance
	if cfg.Game.AnswerDedupTTLHrs > 0 {
		gameConfig.AnswerDedupTTL = time.Duration(cfg.Game.AnswerDedupTTLHrs) * time.Hour
	}

	// Инициализируем сервисы
	identityService := service.NewIdentityService(jwtService)
	quizService := service.NewQuizService(quizRepo)
	gameService := service.NewGameService(gameStore, quizRepo, answerRepo, cacheRepo, gameConfig)

	// Инициализируем обработчики
	identityHandler := handler.NewIdentityHandler(identityService)
	quizHandler := handler.NewQuizHandler(quizService)
	gameHandler := handler.NewGameHandler(gameService)
	wsHandler := handler.NewWSHandler(gameService, cfg.Server.AllowedOrigins)

	// Инициализируем middleware
	identityRequired := middleware.IdentityMiddleware(identityService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		// Production: не доверять прокси-заголовкам
		// Если используете load balancer, замените nil на []string{"IP_БАЛАНСИРОВЩИКА"}
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Гостевая идентичность: ник плюс роль, без регистрации
		identityGroup := api.Group("/identity")
		{
			identityGroup.POST("/guest",
				rateLimiter.Limit(middleware.IdentityRateLimitConfig()),
				identityHandler.IssueGuest)
		}

		// Викторины
		quizzes := api.Group("/quizzes")
		quizzes.Use(identityRequired)
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("", middleware.RequireHostRole(), quizHandler.CreateQuiz)

			// Группа маршрутов, требующих quizID
			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				quizWithID.GET("", quizHandler.GetQuiz)
				quizWithID.DELETE("", middleware.RequireHostRole(), quizHandler.DeleteQuiz)
			}
		}

		// Игровые сессии
		games := api.Group("/games")
		games.Use(identityRequired)
		{
			games.POST("", middleware.RequireHostRole(), gameHandler.CreateGame)

			gameWithID := games.Group("/:id")
			gameWithID.Use(middleware.ExtractStringParam("id", "gameID"))
			{
				gameWithID.GET("", gameHandler.GetGame)
				gameWithID.GET("/state", gameHandler.GetSessionState)
				gameWithID.GET("/leaderboard", gameHandler.GetLeaderboard)
				gameWithID.GET("/results", gameHandler.GetGameResults)

				gameWithID.POST("/join",
					rateLimiter.Limit(middleware.JoinRateLimitConfig()),
					gameHandler.JoinGame)
				gameWithID.POST("/answers",
					rateLimiter.Limit(middleware.AnswerRateLimitConfig()),
					gameHandler.SubmitAnswer)

				// Команды ведущего
				hostOnly := gameWithID.Group("")
				hostOnly.Use(middleware.RequireHostRole())
				{
					hostOnly.POST("/start", gameHandler.StartGame)
					hostOnly.POST("/reveal", gameHandler.RevealAnswer)
					hostOnly.POST("/next", gameHandler.NextQuestion)
					hostOnly.POST("/end", gameHandler.EndGame)
				}
			}
		}
	}

	// WebSocket-стрим состояния игры
	router.GET("/ws/games/:id",
		identityRequired,
		middleware.ExtractStringParam("id", "gameID"),
		wsHandler.StreamGame)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// После получения сигнала SIGINT или SIGTERM начинаем graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем проекторы активных игр
	gameService.Shutdown()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
