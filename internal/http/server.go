package httpapi

import (
	"context"
	"digimart/internal/domain"
	"digimart/internal/infrastructure/messaging"
	"digimart/internal/service"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OutboxReader exposes the click-to-chat links queued for the administrator.
type OutboxReader interface {
	Outbox() []messaging.OutboxEntry
}

type Deps struct {
	Catalog service.CatalogService
	Orders  service.OrderService
	Auth    service.AuthService
	Outbox  OutboxReader
	// Health reports storage status; nil means nothing beyond the process.
	Health      func(ctx context.Context) map[string]string
	CORSOrigins []string
	Logger      *zap.Logger
}

type Server struct {
	engine *gin.Engine
	deps   Deps
	logger *zap.Logger
}

func NewServer(deps Deps) *Server {
	r := gin.New()
	s := &Server{engine: r, deps: deps, logger: deps.Logger}
	r.Use(s.requestLogger(), gin.Recovery(), cors.New(corsConfig(deps.CORSOrigins)))
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(s.authenticate())
	{
		v1.GET("/health", s.health)

		authGroup := v1.Group("/auth")
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.POST("/identity", s.identityLogin)
		authGroup.GET("/me", s.me)

		products := v1.Group("/products")
		products.GET("", s.browseProducts)
		products.GET("/:id", s.getListing)

		orders := v1.Group("/orders")
		orders.POST("", s.createOrder)
		orders.GET("/:number", s.trackOrder)
		orders.GET("/:number/access", s.orderAccess)

		v1.GET("/me/orders", s.myOrders)

		admin := v1.Group("/admin", s.adminOnly())
		admin.GET("/products", s.listProducts)
		admin.POST("/products", s.addProduct)
		admin.PATCH("/products/:id", s.updateProduct)
		admin.DELETE("/products/:id", s.deleteProduct)
		admin.GET("/orders", s.listOrders)
		admin.PATCH("/orders/:id/status", s.updateOrderStatus)
		admin.GET("/users", s.listUsers)
		admin.GET("/outbox", s.outbox)
	}
}

const actorKey = "actor"

// authenticate resolves the bearer token, if any, into the request actor.
// Requests without a token proceed anonymously; a bad token is rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(actorKey, domain.Anonymous)
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}
		actor, err := s.deps.Auth.ActorFromToken(c, strings.TrimSpace(token))
		if err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		switch {
		case !actor.IsAuthenticated():
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
		case !actor.IsAdmin():
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		default:
			c.Next()
		}
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(domain.Actor); ok {
			return a
		}
	}
	return domain.Anonymous
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	status := map[string]string{"status": "up"}
	if s.deps.Health != nil {
		status = s.deps.Health(c)
	}
	code := http.StatusOK
	if status["status"] == "down" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
