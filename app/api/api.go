// REST endpoints of the ResumoTube web app
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"resumotube/m/v2/app/auth"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/email"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/payments"
	"resumotube/m/v2/app/status"
	"resumotube/m/v2/app/summaries"
	"resumotube/m/v2/app/youtube"
	"time"

	"github.com/fasthttp/router"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// handlers stop waiting on their collaborators after this long
const REQUEST_TIMEOUT = 55 * time.Second

type Server struct {
	DB        mongo.MongoClient
	Summaries *summaries.Service
	Payments  *payments.Service
	Email     email.Sender
	OAuth     auth.OAuthProvider
	YouTube   youtube.API
	Cache     redis.Client
	Status    *status.SystemStatusHandler

	JWTSecret   string
	FrontendURL string
	Now         func() time.Time
}

func NewServer(
	db mongo.MongoClient,
	summariesService *summaries.Service,
	paymentsService *payments.Service,
	sender email.Sender,
	oauth auth.OAuthProvider,
	yt youtube.API,
	cache redis.Client,
	statusHandler *status.SystemStatusHandler,
	cfg *config.Config,
) *Server {
	return &Server{
		DB:          db,
		Summaries:   summariesService,
		Payments:    paymentsService,
		Email:       sender,
		OAuth:       oauth,
		YouTube:     yt,
		Cache:       cache,
		Status:      statusHandler,
		JWTSecret:   cfg.JWTSecret,
		FrontendURL: cfg.FrontendURL,
		Now:         time.Now,
	}
}

// Routes registers every endpoint on rtr.
func (s *Server) Routes(rtr *router.Router) {
	rtr.GET("/health", s.Health)
	rtr.GET("/api/status", s.SystemStatus)

	rtr.GET("/api/auth/google/url", s.GoogleAuthURL)
	rtr.GET("/api/auth/google/callback", s.GoogleCallback)
	rtr.POST("/api/register", s.Register)
	rtr.POST("/api/login", s.Login)
	rtr.POST("/api/auth/forgot-password", s.ForgotPassword)
	rtr.POST("/api/auth/reset-password", s.ResetPassword)

	rtr.POST("/api/channels", s.private(s.AddChannel))
	rtr.GET("/api/channels", s.private(s.ListChannels))
	// the channel URL is one encoded segment, so these are routed from the raw path
	rtr.GET("/api/channels/{rest:*}", s.private(s.channelRoute))
	rtr.DELETE("/api/channels/{rest:*}", s.private(s.channelRoute))

	rtr.POST("/api/videos/summary", s.private(s.SummarizeVideo))
	rtr.GET("/api/videos/summaries", s.private(s.VideoSummaries))
	rtr.GET("/api/feed", s.private(s.Feed))
	rtr.GET("/api/search", s.private(s.Search))

	rtr.GET("/api/subscription/plans", s.Plans)
	rtr.POST("/api/subscription/create-checkout", s.private(s.CreateCheckout))
	rtr.POST("/api/subscription/verify", s.private(s.VerifySubscription))
	rtr.GET("/api/subscription/status", s.private(s.SubscriptionStatus))
	rtr.POST("/api/subscription/cancel", s.private(s.CancelSubscription))
	rtr.GET("/api/account/usage", s.private(s.AccountUsage))

	rtr.POST("/api/webhook", s.Payments.StripeWebhook)
}

func (s *Server) private(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return auth.Middleware(s.JWTSecret, next)
}

// requestContext carries the caller so OpenAI usage is billed to them.
func (s *Server) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(context.Background(), REQUEST_TIMEOUT)
	if user, ok := auth.UserFromContext(ctx); ok {
		c = context.WithValue(c, models.UserContext{}, user)
	}
	return c, cancel
}

// currentUser loads the authenticated user, writing the error response when it cannot.
func (s *Server) currentUser(c context.Context, ctx *fasthttp.RequestCtx) (*models.MongoUser, bool) {
	authUser, _ := auth.UserFromContext(ctx)
	user, err := s.DB.GetUserByID(c, authUser.UserID)
	if errors.Is(err, mongo.ErrNotFound) {
		writeError(ctx, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		log.WithError(err).Errorf("currentUser: failed to load user %s", authUser.UserID)
		writeError(ctx, http.StatusInternalServerError, "Failed to load user")
		return nil, false
	}
	return user, true
}

func userEmail(ctx *fasthttp.RequestCtx) string {
	user, _ := auth.UserFromContext(ctx)
	return user.Email
}

// readJSON treats an empty body as an empty object.
func readJSON(ctx *fasthttp.RequestCtx, v interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		log.WithError(err).WithField("path", string(ctx.Path())).Warn("readJSON: invalid request body")
		writeError(ctx, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(ctx *fasthttp.RequestCtx, statusCode int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("writeJSON: failed to marshal response")
		statusCode = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	writeJSON(ctx, statusCode, map[string]string{"error": message})
}

func writeMessage(ctx *fasthttp.RequestCtx, message string) {
	writeJSON(ctx, http.StatusOK, map[string]string{"message": message})
}
