package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionHeader names the operator session that owns a draft proposal.
const SessionHeader = "X-Proposal-Session"

const sessionKey = "proposal_session"

// DefaultSession is used when a request carries no session header.
const DefaultSession = "default"

const maxSessionLength = 128

// Session stores the request's proposal session on the context.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if id == "" || len(id) > maxSessionLength {
			id = DefaultSession
		}
		c.Set(sessionKey, id)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

// SessionID returns the session set by Session, or DefaultSession.
func SessionID(c *gin.Context) string {
	if id := c.GetString(sessionKey); id != "" {
		return id
	}
	return DefaultSession
}
