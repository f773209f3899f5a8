package httpapi

import (
	"digimart/internal/domain"
	"digimart/internal/repo"
	"digimart/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Auth handlers

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityReq struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

type authResp struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func newAuthResp(r *service.AuthResult) authResp {
	return authResp{User: r.User, Token: r.Session.Token, ExpiresAt: r.Session.ExpiresAt}
}

func (s *Server) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := s.deps.Auth.Register(c, req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAuthResp(res))
}

func (s *Server) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := s.deps.Auth.Authenticate(c, service.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newAuthResp(res))
}

func (s *Server) identityLogin(c *gin.Context) {
	var req identityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := s.deps.Auth.AuthenticateIdentity(c, service.IdentityAssertion{Subject: req.Subject, Name: req.Name, Email: req.Email})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newAuthResp(res))
}

func (s *Server) me(c *gin.Context) {
	u, err := s.deps.Auth.Me(c, actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.deps.Auth.ListUsers(c, actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Product handlers

func (s *Server) browseProducts(c *gin.Context) {
	q := service.ProductQuery{
		Category: domain.Category(c.Query("category")),
		Search:   c.Query("q"),
	}
	if q.Category != "" && !q.Category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	list, err := s.deps.Catalog.BrowseProducts(c, q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	l, err := s.deps.Catalog.GetListing(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) listProducts(c *gin.Context) {
	list, err := s.deps.Catalog.ListProducts(c, actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) addProduct(c *gin.Context) {
	var spec domain.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.deps.Catalog.AddProduct(c, actorFrom(c), spec)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.deps.Catalog.UpdateProduct(c, actorFrom(c), id, patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.deps.Catalog.DeleteProduct(c, actorFrom(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Order handlers

type createOrderReq struct {
	ProductID uuid.UUID `json:"productId"`
	Contact   string    `json:"contact"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.deps.Orders.CreateOrder(c, actorFrom(c), req.ProductID, req.Contact)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) trackOrder(c *gin.Context) {
	o, err := s.deps.Orders.TrackOrder(c, c.Param("number"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) orderAccess(c *gin.Context) {
	view, err := s.deps.Orders.Access(c, c.Param("number"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) myOrders(c *gin.Context) {
	actor := actorFrom(c)
	if !actor.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
		return
	}
	list, err := s.deps.Orders.ListOrdersFor(c, actor, repo.OrderFilter{})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) listOrders(c *gin.Context) {
	f := repo.OrderFilter{
		Contact: c.Query("contact"),
		Status:  domain.OrderStatus(c.Query("status")),
	}
	if v := c.Query("user"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		f.UserID = uuid.NullUUID{UUID: id, Valid: true}
	}
	list, err := s.deps.Orders.ListOrdersFor(c, actorFrom(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type statusReq struct {
	Status domain.OrderStatus `json:"status"`
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be PENDING, PAID or CANCELLED"})
		return
	}
	o, err := s.deps.Orders.UpdateOrderStatus(c, actorFrom(c), id, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) outbox(c *gin.Context) {
	if s.deps.Outbox == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, s.deps.Outbox.Outbox())
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
