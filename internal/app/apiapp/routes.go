package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mkravch/tgdate/internal/config"
	authsvc "github.com/mkravch/tgdate/internal/services/auth"
	candidatesvc "github.com/mkravch/tgdate/internal/services/candidates"
	chatsvc "github.com/mkravch/tgdate/internal/services/chat"
	matchsvc "github.com/mkravch/tgdate/internal/services/matches"
	mediasvc "github.com/mkravch/tgdate/internal/services/media"
	presencesvc "github.com/mkravch/tgdate/internal/services/presence"
	swipesvc "github.com/mkravch/tgdate/internal/services/swipes"
	usersvc "github.com/mkravch/tgdate/internal/services/users"
	"github.com/mkravch/tgdate/internal/transport/http/handlers"
	"github.com/mkravch/tgdate/internal/transport/ws"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	UserService      *usersvc.Service
	PresenceService  *presencesvc.Service
	SwipeService     *swipesvc.Service
	MatchService     *matchsvc.Service
	CandidateService *candidatesvc.Service
	ChatService      *chatsvc.Service
	MediaService     *mediasvc.Service
	Hub              *ws.Hub
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	healthHandler := handlers.NewHealthHandler()
	userHandler := handlers.NewUserHandler(deps.UserService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService, deps.Hub)
	matchHandler := handlers.NewMatchHandler(deps.MatchService)
	candidateHandler := handlers.NewCandidateHandler(deps.CandidateService)
	messageHandler := handlers.NewMessageHandler(deps.ChatService, deps.Hub)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	wsHandler := ws.NewHandler(deps.Hub, deps.Config.HTTP.AllowedOrigins)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	presenceMW := PresenceMiddleware(deps.PresenceService, deps.UserService)

	r.Get("/healthz", healthHandler.Get)
	r.Post("/auth/telegram", authHandler.Telegram)

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Use(presenceMW)

		r.Get("/me", userHandler.Me)
		r.Delete("/me", userHandler.Deactivate)

		r.Post("/swipes", swipeHandler.Swipe)
		r.Get("/swipes/history", swipeHandler.History)
		r.Get("/likes/received", swipeHandler.LikesReceived)
		r.Get("/likes/sent", swipeHandler.LikesSent)

		r.Get("/matches", matchHandler.List)
		r.Get("/matches/stats", swipeHandler.Stats)
		r.Get("/matches/{userId}", matchHandler.Detail)
		r.Delete("/matches/{userId}", matchHandler.Unmatch)

		r.Get("/candidates", candidateHandler.Next)

		r.Post("/media", mediaHandler.Upload)

		r.Post("/messages", messageHandler.Send)
		r.Get("/messages/conversations", messageHandler.Conversations)
		r.Get("/messages/conversation/{userId}", messageHandler.Conversation)
		r.Put("/messages/conversation/{userId}/read", messageHandler.MarkRead)
		r.Get("/messages/unread/count", messageHandler.UnreadCount)
		r.Get("/messages/search", messageHandler.Search)
		r.Delete("/messages/{messageId}", messageHandler.Delete)

		r.Get("/ws", wsHandler.Connect)
	})
}
