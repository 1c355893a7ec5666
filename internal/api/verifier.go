package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
)

// verifierMiddleware checks the Slack request signature before any
// handler runs. The body is re-wrapped so SlashCommandParse can read it
// again downstream.
func (s *Server) verifierMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		verifier, err := slack.NewSecretsVerifier(c.Request.Header, s.slackCfg.SigningSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "missing signature headers"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "unreadable request body"})
			return
		}

		if _, err := verifier.Write(body); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Unable to handle webhook"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := verifier.Ensure(); err != nil {
			s.logger.Warn().Err(err).Msg("slack signature verification failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid request signature"})
			return
		}

		c.Next()
	}
}
