package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/config"
	"github.com/cristopher-namchee/reserenv/internal/domain"
	"github.com/cristopher-namchee/reserenv/internal/metrics"
	"github.com/cristopher-namchee/reserenv/internal/models"
	"github.com/cristopher-namchee/reserenv/internal/render"
	"github.com/cristopher-namchee/reserenv/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// commandFn is the shape shared by the three state-machine operations.
type commandFn func(ctx context.Context, requester models.Requester, args []string) (models.Response, error)

// Server mounts the Slack slash-command webhook routes.
type Server struct {
	slackCfg config.SlackConfig
	botCfg   config.BotConfig
	svc      *service.ReservationService
	repo     domain.ReservationRepository
	logger   *zerolog.Logger
	limiter  *rateLimiter
	engine   *gin.Engine
	server   *http.Server
}

func NewServer(cfg *config.Config, svc *service.ReservationService, repo domain.ReservationRepository, logger *zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		slackCfg: cfg.Slack,
		botCfg:   cfg.Bot,
		svc:      svc,
		repo:     repo,
		logger:   logger,
		limiter:  newRateLimiter(cfg.Slack.RateLimit),
	}
	s.prepareEngine(engine, cfg.Slack.VerifyRequest)
	s.engine = engine

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Slack.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return s
}

func (s *Server) prepareEngine(engine *gin.Engine, verify bool) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := engine.Group("/slack")
	group.Use(s.loggingMiddleware())
	group.Use(s.rateLimitMiddleware())
	if verify {
		group.Use(s.verifierMiddleware())
	}

	group.POST("/commands/reserve", s.newCommandHandler("reserve", s.svc.Reserve))
	group.POST("/commands/unreserve", s.newCommandHandler("unreserve", s.svc.Unreserve))
	group.POST("/commands/reservation", s.newCommandHandler("reservation", s.svc.Status))
}

// Start blocks serving the webhook until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Slack webhook listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) newCommandHandler(name string, op commandFn) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		cmd, err := slack.SlashCommandParse(c.Request)
		if err != nil || cmd.Command == "" {
			metrics.IncCommand(name, "bad_request")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid slash command payload"})
			return
		}

		requester := models.Requester{
			ID:      cmd.UserID,
			Name:    cmd.UserName,
			Channel: cmd.ChannelID,
		}

		if !s.allowUser(c.Request.Context(), cmd.UserID) {
			metrics.IncCommand(name, "rate_limited")
			c.JSON(http.StatusOK, render.Message(models.PlainText{
				Text: "You're sending commands too quickly. Please wait a moment and try again.",
			}))
			return
		}

		resp, err := op(c.Request.Context(), requester, strings.Fields(cmd.Text))
		if err != nil {
			s.logger.Error().Err(err).Str("command", name).Str("user", cmd.UserID).Msg("command handling failed")
			metrics.IncCommand(name, "error")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Unable to handle webhook"})
			return
		}

		metrics.IncCommand(name, "ok")
		metrics.ObserveCommand(name, time.Since(start).Seconds())
		c.JSON(http.StatusOK, render.Message(resp))
	}
}

// allowUser applies the per-user command budget kept in the store. A
// store failure here fails open: rate limiting is protection, not a
// reason to drop commands.
func (s *Server) allowUser(ctx context.Context, userID string) bool {
	window := time.Duration(s.botCfg.RateLimitWindow) * time.Second
	allowed, err := s.repo.CheckRateLimit(ctx, userID, s.botCfg.RateLimitMessages, window)
	if err != nil {
		s.logger.Warn().Err(err).Str("user", userID).Msg("rate limit check failed")
		return true
	}
	return allowed
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("webhook request")
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
