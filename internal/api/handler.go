package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/gateway"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Identity headers set by the auth proxy in front of the service
const (
	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerCartToken = "X-Cart-Token"
)

// Handler contains HTTP handlers. Checkout and reconcile are nil when the
// payment gateway secret is not configured; their endpoints then answer 503
// instead of crashing.
type Handler struct {
	checkout      *service.CheckoutService
	reconcile     *service.ReconcileService
	entitlement   *service.EntitlementService
	discounts     *service.DiscountEvaluator
	cart          *service.CartService
	course        *service.CourseService
	newsletter    *service.NewsletterService
	webhookSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checkout *service.CheckoutService,
	reconcile *service.ReconcileService,
	entitlement *service.EntitlementService,
	discounts *service.DiscountEvaluator,
	cart *service.CartService,
	course *service.CourseService,
	newsletter *service.NewsletterService,
	webhookSecret string,
) *Handler {
	return &Handler{
		checkout:      checkout,
		reconcile:     reconcile,
		entitlement:   entitlement,
		discounts:     discounts,
		cart:          cart,
		course:        course,
		newsletter:    newsletter,
		webhookSecret: webhookSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/stripe", h.stripeWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout/sessions", h.createCheckoutSession)
		v1.GET("/checkout/verify", h.verifyCheckoutSession)

		v1.POST("/entitlement/check", h.checkEntitlement)
		v1.POST("/discount/validate", h.validateDiscount)

		v1.GET("/cart", h.listCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.PATCH("/cart/items/:productID", h.updateCartItem)
		v1.DELETE("/cart/items/:productID", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.GET("/courses/:id", h.getCourse)
		v1.PUT("/courses/:id/lessons/:lessonID/complete", h.completeLesson)
		v1.DELETE("/courses/:id/lessons/:lessonID/complete", h.uncompleteLesson)

		v1.GET("/account/purchases", h.listPurchases)
		v1.POST("/newsletter/subscribe", h.subscribeNewsletter)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) identity(c *gin.Context) service.Identity {
	identity := service.Identity{Email: c.GetHeader(headerUserEmail)}
	if id := c.GetHeader(headerUserID); id != "" {
		identity.UserID = &id
	}
	return identity
}

func paymentsUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Payment processing is currently unavailable. Please contact support.",
	})
}

// createCheckoutSession handles checkout session creation
func (h *Handler) createCheckoutSession(c *gin.Context) {
	if h.checkout == nil {
		paymentsUnavailable(c)
		return
	}

	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	identity := h.identity(c)
	req.UserID = identity.UserID
	if req.Email == "" {
		req.Email = identity.Email
	}

	resp, err := h.checkout.CreateSession(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrMissingEmail),
			errors.Is(err, service.ErrInvalidDiscount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrDiscountApplication):
			c.JSON(http.StatusBadGateway, gin.H{"error": service.ErrDiscountApplication.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// verifyCheckoutSession triggers reconciliation for a returned session.
// Idempotent: safe to call any number of times for the same session.
func (h *Handler) verifyCheckoutSession(c *gin.Context) {
	if h.reconcile == nil {
		paymentsUnavailable(c)
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	identity := h.identity(c)
	result, err := h.reconcile.Reconcile(c.Request.Context(), sessionID, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid session ID"})
		case errors.Is(err, service.ErrPaymentNotCompleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment not completed"})
		case errors.Is(err, service.ErrUnresolvedIdentity),
			errors.Is(err, service.ErrNoPurchasableLines):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to verify session"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// checkEntitlement answers whether the caller owns a product
func (h *Handler) checkEntitlement(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID is required"})
		return
	}

	identity := h.identity(c)
	if identity.UserID == nil && identity.Email == "" {
		// An anonymous caller simply has no entitlements.
		c.JSON(http.StatusOK, gin.H{"has_access": false, "purchase": nil})
		return
	}

	hasAccess, purchase, err := h.entitlement.HasAccess(c.Request.Context(), identity, req.ProductID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify purchase"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_access": hasAccess, "purchase": purchase})
}

// validateDiscount evaluates a discount code against a subtotal
func (h *Handler) validateDiscount(c *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		Subtotal int64  `json:"subtotal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result := h.discounts.Evaluate(req.Code, req.Subtotal)
	if !result.Valid {
		util.DiscountValidationsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": "Invalid discount code"})
		return
	}

	util.DiscountValidationsTotal.WithLabelValues("valid").Inc()
	c.JSON(http.StatusOK, gin.H{
		"valid":           true,
		"code":            result.Code,
		"discount_amount": result.Amount,
		"description":     result.Description,
	})
}

// stripeWebhook handles gateway webhook deliveries. Redelivered events are
// harmless because reconciliation is idempotent.
func (h *Handler) stripeWebhook(c *gin.Context) {
	if h.reconcile == nil {
		paymentsUnavailable(c)
		return
	}
	if h.webhookSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook secret not configured"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	if event.Type == "checkout.session.completed" {
		var sess stripe.CheckoutSession
		if err := sess.UnmarshalJSON(event.Data.Raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
			return
		}

		if _, err := h.reconcile.Reconcile(c.Request.Context(), sess.ID, nil); err != nil &&
			!errors.Is(err, service.ErrPaymentNotCompleted) {
			// Non-2xx makes the gateway redeliver, which is safe here.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record purchase"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) cartOwner(c *gin.Context, createToken bool) (service.CartOwner, string) {
	owner := service.CartOwner{
		UserID:    c.GetHeader(headerUserID),
		CartToken: c.GetHeader(headerCartToken),
	}
	var issued string
	if owner.UserID == "" && owner.CartToken == "" && createToken {
		issued = uuid.New().String()
		owner.CartToken = issued
	}
	return owner, issued
}

// listCart returns the caller's cart
func (h *Handler) listCart(c *gin.Context) {
	owner, _ := h.cartOwner(c, false)
	if owner.UserID == "" && owner.CartToken == "" {
		c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}})
		return
	}

	items, err := h.cart.List(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	if items == nil {
		items = []models.CartItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// addCartItem adds a product to the caller's cart. Guests without a cart
// token get one issued in the response.
func (h *Handler) addCartItem(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		Title     string `json:"title" binding:"required"`
		UnitPrice int64  `json:"unit_price" binding:"min=0"`
		Quantity  int    `json:"quantity"`
		Category  string `json:"category"`
		ImageURL  string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	owner, issuedToken := h.cartOwner(c, true)
	item := models.CartItem{
		ProductID: req.ProductID,
		Title:     req.Title,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
		Category:  req.Category,
		ImageURL:  req.ImageURL,
	}

	if err := h.cart.Add(c.Request.Context(), owner, item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
		return
	}

	resp := gin.H{"message": "Item added to cart"}
	if issuedToken != "" {
		resp["cart_token"] = issuedToken
	}
	c.JSON(http.StatusCreated, resp)
}

// updateCartItem sets the quantity of a cart line
func (h *Handler) updateCartItem(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be at least 1"})
		return
	}

	owner, _ := h.cartOwner(c, false)
	err := h.cart.UpdateQuantity(c.Request.Context(), owner, c.Param("productID"), req.Quantity)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

// removeCartItem deletes a cart line
func (h *Handler) removeCartItem(c *gin.Context) {
	owner, _ := h.cartOwner(c, false)
	if err := h.cart.Remove(c.Request.Context(), owner, c.Param("productID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

// clearCart empties the caller's cart
func (h *Handler) clearCart(c *gin.Context) {
	owner, _ := h.cartOwner(c, false)
	if owner.UserID == "" && owner.CartToken == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
		return
	}
	if err := h.cart.Clear(c.Request.Context(), owner); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// getCourse returns gated course content with the caller's progress
func (h *Handler) getCourse(c *gin.Context) {
	identity := h.identity(c)
	view, err := h.course.GetCourse(c.Request.Context(), identity, c.Param("id"))
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
	case errors.Is(err, service.ErrNotEntitled), errors.Is(err, service.ErrUnresolvedIdentity):
		c.JSON(http.StatusForbidden, gin.H{"error": "Course access requires a completed purchase"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
	default:
		c.JSON(http.StatusOK, view)
	}
}

// completeLesson marks a lesson as completed
func (h *Handler) completeLesson(c *gin.Context) {
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	err := h.course.CompleteLesson(c.Request.Context(), userID, c.Param("id"), c.Param("lessonID"))
	if errors.Is(err, service.ErrCourseNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lesson completed"})
}

// uncompleteLesson removes a lesson completion mark
func (h *Handler) uncompleteLesson(c *gin.Context) {
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	err := h.course.UncompleteLesson(c.Request.Context(), userID, c.Param("id"), c.Param("lessonID"))
	if errors.Is(err, service.ErrCourseNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lesson completion removed"})
}

// listPurchases lists the caller's completed purchases for the dashboard
func (h *Handler) listPurchases(c *gin.Context) {
	identity := h.identity(c)
	if identity.UserID == nil && identity.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	purchases, err := h.entitlement.ListPurchases(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
		return
	}
	if purchases == nil {
		purchases = []models.Purchase{}
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

// subscribeNewsletter records a newsletter signup
func (h *Handler) subscribeNewsletter(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	err := h.newsletter.Subscribe(c.Request.Context(), req.Email)
	if errors.Is(err, service.ErrInvalidEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscribed successfully!"})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
