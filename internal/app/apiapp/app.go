package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkravch/tgdate/internal/config"
	s3infra "github.com/mkravch/tgdate/internal/infra/s3"
	pgrepo "github.com/mkravch/tgdate/internal/repo/postgres"
	redrepo "github.com/mkravch/tgdate/internal/repo/redis"
	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	candidatesvc "github.com/mkravch/tgdate/internal/services/candidates"
	chatsvc "github.com/mkravch/tgdate/internal/services/chat"
	matchsvc "github.com/mkravch/tgdate/internal/services/matches"
	mediasvc "github.com/mkravch/tgdate/internal/services/media"
	presencesvc "github.com/mkravch/tgdate/internal/services/presence"
	ratesvc "github.com/mkravch/tgdate/internal/services/rate"
	swipesvc "github.com/mkravch/tgdate/internal/services/swipes"
	usersvc "github.com/mkravch/tgdate/internal/services/users"
	"github.com/mkravch/tgdate/internal/transport/ws"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	hub        *ws.Hub
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	presenceRepo := redrepo.NewPresenceRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	candidateRepo := pgrepo.NewCandidateRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediaStorage)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, userRepo)

	presenceService := presencesvc.NewService(presenceRepo, presencesvc.Config{
		OnlineWindow: cfg.Limits.OnlineWindow,
	})
	userService := usersvc.NewService(usersvc.Dependencies{
		Store:       userRepo,
		Presence:    presenceService,
		PhotoSigner: mediaStorage,
	})
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.SwipesPerMinute)
	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:        pool,
		SwipeStore:  swipeRepo,
		UserStore:   userRepo,
		RateLimiter: rateLimiter,
	}, swipesvc.Config{})
	matchService := matchsvc.NewService(matchsvc.Dependencies{
		Pool:        pool,
		SwipeStore:  swipeRepo,
		MsgStore:    messageRepo,
		Presence:    presenceService,
		PhotoSigner: mediaStorage,
	}, matchsvc.Config{})
	candidateService := candidatesvc.NewService(candidatesvc.Dependencies{
		Store:       candidateRepo,
		Presence:    presenceService,
		PhotoSigner: mediaStorage,
	}, candidatesvc.Config{
		PageSize:    cfg.Limits.CandidatePageSize,
		MaxPageSize: cfg.Limits.CandidateMaxPageSize,
	})
	chatService := chatsvc.NewService(chatsvc.Dependencies{
		MsgStore:     messageRepo,
		Matches:      matchService,
		Presence:     presenceService,
		MediaSigner:  mediaStorage,
		MediaRemover: mediaService,
	}, chatsvc.Config{
		MaxContentLength: cfg.Limits.MessageMaxLength,
		PageSize:         cfg.Limits.ConversationPageSize,
		MarkReadOnFetch:  cfg.Limits.MarkReadOnFetch,
	})

	hub := ws.NewHub(redisClient)
	go hub.Run()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		UserService:      userService,
		PresenceService:  presenceService,
		SwipeService:     swipeService,
		MatchService:     matchService,
		CandidateService: candidateService,
		ChatService:      chatService,
		MediaService:     mediaService,
		Hub:              hub,
		Logger:           log,
		Config:           cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		hub:        hub,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.hub != nil {
		a.hub.Stop()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
