package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 2 * time.Second

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server reports readiness for load balancers and orchestration probes.
type Server struct {
	db     Pinger
	policy PolicyChecker
}

// NewServer returns a health server. Nil dependencies are skipped (in-memory dev mode).
func NewServer(db Pinger, policy PolicyChecker) *Server {
	return &Server{db: db, policy: policy}
}

// HealthCheck responds 200 {"status":"serving"} when every dependency answers, otherwise 503
// with the failing checks.
func (s *Server) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	failed := gin.H{}
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			failed["database"] = err.Error()
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			failed["policy"] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_serving", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "serving"})
}
