package api

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/example/storefront-cart/modules/admin"
	"github.com/example/storefront-cart/modules/broadcast"
	"github.com/example/storefront-cart/modules/cart"
	"github.com/example/storefront-cart/modules/catalog"
	"github.com/example/storefront-cart/modules/order"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// WebSocket stock push. A token is optional; a valid one binds the
	// connection to its cart session for order notifications.
	app.Use("/ws", m.wsUpgrade)
	app.Get("/ws", websocket.New(m.handleWebSocket))

	api := app.Group("/api/v1", m.rateLimiter())
	api.Post("/sessions", m.createSession)
	api.Delete("/sessions", SessionMiddleware(m.tokens), m.resetSession)
	api.Post("/admin/login", m.adminLogin)

	requireAdmin := AdminMiddleware(m.adminPort)

	api.Get("/products", m.listProducts)
	api.Get("/products/:id", m.getProduct)
	api.Put("/products/:id/stock", requireAdmin, m.setStock)

	orders := api.Group("/orders")
	orders.Get("/", requireAdmin, m.listOrders)
	orders.Get("/:code", SessionOrAdminMiddleware(m.tokens, m.adminPort), m.getOrder)
	orders.Put("/:code/status", requireAdmin, m.updateOrderStatus)

	cartRoutes := api.Group("/cart", SessionMiddleware(m.tokens))
	cartRoutes.Get("/", m.getCart)
	cartRoutes.Delete("/", m.clearCart)
	cartRoutes.Post("/items", m.addItem)
	cartRoutes.Put("/items/:id", m.updateItem)
	cartRoutes.Delete("/items/:id", m.removeItem)
	cartRoutes.Post("/toggle", m.cartAction(m.cartPort.Toggle))
	cartRoutes.Post("/open", m.cartAction(m.cartPort.Open))
	cartRoutes.Post("/close", m.cartAction(m.cartPort.Close))
	cartRoutes.Post("/checkout", m.checkout)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	details := make(map[string]any, len(names))
	for _, name := range names {
		status := m.checks[name].Health(c.UserContext())
		if !status.Healthy {
			healthy = false
		}
		details[name] = status
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{Status: "unhealthy", Details: details})
	}
	return c.JSON(HealthResponse{Status: "healthy", Details: details})
}

// createSession handles POST /api/v1/sessions.
func (m *APIModule) createSession(c *fiber.Ctx) error {
	id, token, err := m.tokens.NewSession()
	if err != nil {
		log.Printf("[api] Failed to issue session token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "session_failed",
			Message: "Failed to create session",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{
		SessionID: id,
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: m.tokens.TTL(),
	})
}

// resetSession handles DELETE /api/v1/sessions. It drops the cart and its
// snapshot; the token stays valid and addresses an empty cart afterwards.
func (m *APIModule) resetSession(c *fiber.Ctx) error {
	resp, err := m.cartPort.Reset(c.UserContext(), sessionID(c))
	return cartResult(c, resp, err)
}

// adminLogin handles POST /api/v1/admin/login.
func (m *APIModule) adminLogin(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Email and password are required",
		})
	}

	resp, err := m.adminPort.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "invalid_credentials",
				Message: "Invalid email or password",
			})
		}
		log.Printf("[api] Admin login failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "login_failed",
			Message: "Failed to sign in",
		})
	}

	return c.JSON(AdminLoginResponse{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
		Email:       resp.Email,
	})
}

// listOrders handles GET /api/v1/orders.
func (m *APIModule) listOrders(c *fiber.Ctx) error {
	filter := order.ListFilter{
		Status: c.Query("status"),
		Origin: c.Query("origin"),
	}
	orders, err := m.orderPort.List(c.UserContext(), filter)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(OrderListResponse{Orders: orders, Total: len(orders)})
}

// getOrder handles GET /api/v1/orders/:code. Sessions only see their own orders.
func (m *APIModule) getOrder(c *fiber.Ctx) error {
	o, err := m.orderPort.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		return orderError(c, err)
	}
	if adminClaims(c) == nil && o.SessionID != sessionID(c) {
		return orderError(c, order.ErrNotFound)
	}
	return c.JSON(o)
}

// updateOrderStatus handles PUT /api/v1/orders/:code/status.
func (m *APIModule) updateOrderStatus(c *fiber.Ctx) error {
	var req UpdateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Body must be {\"status\": <status>}",
		})
	}
	o, err := m.orderPort.UpdateStatus(c.UserContext(), c.Params("code"), req.Status)
	if err != nil {
		return orderError(c, err)
	}
	log.Printf("[api] Admin %s set order %s to %s", adminClaims(c).Email, o.Code, o.Status)
	return c.JSON(o)
}

// listProducts handles GET /api/v1/products.
func (m *APIModule) listProducts(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("include_inactive", false)
	products, err := m.catalogPort.List(c.UserContext(), includeInactive)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list products",
		})
	}
	return c.JSON(ProductListResponse{Products: products, Total: len(products)})
}

// getProduct handles GET /api/v1/products/:id.
func (m *APIModule) getProduct(c *fiber.Ctx) error {
	p, err := m.catalogPort.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(p)
}

// setStock handles PUT /api/v1/products/:id/stock.
func (m *APIModule) setStock(c *fiber.Ctx) error {
	var req SetStockRequest
	if err := c.BodyParser(&req); err != nil || req.Stock == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Body must be {\"stock\": <int>}",
		})
	}
	p, err := m.catalogPort.SetStock(c.UserContext(), c.Params("id"), *req.Stock)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(p)
}

// getCart handles GET /api/v1/cart.
func (m *APIModule) getCart(c *fiber.Ctx) error {
	resp, err := m.cartPort.Get(c.UserContext(), sessionID(c))
	return cartResult(c, resp, err)
}

// clearCart handles DELETE /api/v1/cart.
func (m *APIModule) clearCart(c *fiber.Ctx) error {
	resp, err := m.cartPort.Clear(c.UserContext(), sessionID(c))
	return cartResult(c, resp, err)
}

// cartAction adapts a session-only cart call to a handler.
func (m *APIModule) cartAction(call func(context.Context, string) (*cart.CartResponse, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := call(c.UserContext(), sessionID(c))
		return cartResult(c, resp, err)
	}
}

// addItem handles POST /api/v1/cart/items.
func (m *APIModule) addItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "product_id is required",
		})
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	p, err := m.catalogPort.Get(c.UserContext(), req.ProductID)
	if err != nil {
		return catalogError(c, err)
	}

	resp, err := m.cartPort.Add(c.UserContext(), sessionID(c), *p, req.Quantity, true)
	if err != nil {
		return cartResult(c, nil, err)
	}
	switch resp.Error {
	case cart.CodeInsufficientStock:
		return c.Status(fiber.StatusConflict).JSON(StockErrorResponse{
			Error:     resp.Error,
			Message:   resp.Message,
			ProductID: p.ID,
			Remaining: resp.Remaining,
		})
	case cart.CodeInactiveProduct:
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   resp.Error,
			Message: "Product is not available",
		})
	}
	return cartResult(c, resp, nil)
}

// updateItem handles PUT /api/v1/cart/items/:id.
func (m *APIModule) updateItem(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil || req.Quantity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Body must be {\"quantity\": <int>}",
		})
	}
	resp, err := m.cartPort.UpdateQuantity(c.UserContext(), sessionID(c), c.Params("id"), *req.Quantity)
	return cartResult(c, resp, err)
}

// removeItem handles DELETE /api/v1/cart/items/:id.
func (m *APIModule) removeItem(c *fiber.Ctx) error {
	resp, err := m.cartPort.Remove(c.UserContext(), sessionID(c), c.Params("id"))
	return cartResult(c, resp, err)
}

// checkout handles POST /api/v1/cart/checkout.
func (m *APIModule) checkout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	ctx := c.UserContext()
	id := sessionID(c)

	current, err := m.cartPort.Get(ctx, id)
	if err == nil {
		err = cart.ResponseError(current)
	}
	if err != nil {
		return cartResult(c, nil, err)
	}
	if len(current.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "empty_cart",
			Message: "Cart is empty",
		})
	}

	place := order.PlaceRequest{
		SessionID:     id,
		Buyer:         req.Buyer,
		PaymentMethod: req.PaymentMethod,
		Origin:        req.Origin,
		Lines:         make([]order.LineRequest, 0, len(current.Items)),
	}
	for _, item := range current.Items {
		place.Lines = append(place.Lines, order.LineRequest{
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		})
	}

	placed, err := m.orderPort.Place(ctx, place)
	if err != nil {
		var shortage *catalog.ShortageError
		switch {
		case errors.As(err, &shortage):
			return c.Status(fiber.StatusConflict).JSON(ShortageResponse{
				Error:     "insufficient_stock",
				Message:   "Some items are no longer available in the requested quantity",
				Shortages: shortage.Shortages,
			})
		case errors.Is(err, order.ErrInvalidOrder):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
		}
		log.Printf("[api] Checkout failed for session %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "checkout_failed",
			Message: "Failed to place order",
		})
	}

	// The order exists from here on; cart cleanup failures are only logged.
	after := m.removeOrdered(ctx, id, placed.Code, place.Lines)
	if closed, err := m.cartPort.Close(ctx, id); err != nil {
		log.Printf("[api] Failed to close cart %s after order %s: %v", id, placed.Code, err)
	} else {
		after = closed
	}

	return c.Status(fiber.StatusCreated).JSON(CheckoutResponse{Order: placed, Cart: after})
}

// removeOrdered takes the ordered quantities out of the cart. Lines added
// while the order was being placed stay in the cart.
func (m *APIModule) removeOrdered(ctx context.Context, id, code string, lines []order.LineRequest) *cart.CartResponse {
	current, err := m.cartPort.Get(ctx, id)
	if err == nil {
		err = cart.ResponseError(current)
	}
	if err != nil {
		log.Printf("[api] Failed to read cart %s after order %s: %v", id, code, err)
		return nil
	}

	inCart := make(map[string]int, len(current.Items))
	for _, item := range current.Items {
		inCart[item.Product.ID] = item.Quantity
	}

	after := current
	for _, line := range lines {
		var resp *cart.CartResponse
		left := inCart[line.ProductID] - line.Quantity
		if left > 0 {
			resp, err = m.cartPort.UpdateQuantity(ctx, id, line.ProductID, left)
		} else {
			resp, err = m.cartPort.Remove(ctx, id, line.ProductID)
		}
		if err != nil {
			log.Printf("[api] Failed to remove %s from cart %s after order %s: %v", line.ProductID, id, code, err)
			continue
		}
		inCart[line.ProductID] = max(left, 0)
		after = resp
	}
	return after
}

// wsUpgrade admits WebSocket upgrades and resolves the optional session token.
func (m *APIModule) wsUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if token := c.Query("token"); token != "" {
		id, err := m.tokens.Validate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired session token",
			})
		}
		c.Locals(SessionContextKey, id)
	}
	return c.Next()
}

// handleWebSocket handles WebSocket connections at /ws.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	session, _ := c.Locals(SessionContextKey).(string)
	client := &broadcast.Client{
		ID:        uuid.New().String(),
		SessionID: session,
		Conn:      c,
	}

	// Written before registering so the hub is the only writer afterwards.
	if err := c.WriteJSON(WSMessage{Type: "connected", ClientID: client.ID, SessionID: session}); err != nil {
		log.Printf("[api] Failed to send welcome: %v", err)
		return
	}

	m.hub.Register(client)
	defer func() {
		m.hub.Unregister(client)
		log.Printf("[api] WebSocket client disconnected: %s", client.ID)
	}()

	log.Printf("[api] WebSocket client connected: %s (session %q)", client.ID, session)

	// The stream is server to client; reads only detect disconnects.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Read error from %s: %v", client.ID, err)
			}
			return
		}
	}
}

// cartResult writes a cart response or maps its failure to a status.
func cartResult(c *fiber.Ctx, resp *cart.CartResponse, err error) error {
	if err == nil {
		err = cart.ResponseError(resp)
	}
	switch {
	case err == nil:
		return c.JSON(resp)
	case errors.Is(err, cart.ErrInvalidSessionID):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "invalid_session",
			Message: "Session is not valid",
		})
	case errors.Is(err, cart.ErrSnapshotUnavailable):
		log.Printf("[api] Cart snapshot unavailable: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "cart_unavailable",
			Message: "Cart storage is temporarily unavailable",
		})
	}
	log.Printf("[api] Cart call failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "cart_failed",
		Message: "Cart operation failed",
	})
}

// orderError maps order failures to a status.
func orderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Order not found",
		})
	case errors.Is(err, order.ErrOrderCancelled):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "order_cancelled",
			Message: "Cancelled orders cannot change status",
		})
	case errors.Is(err, order.ErrInvalidOrder):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	}
	log.Printf("[api] Order call failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "order_failed",
		Message: "Order operation failed",
	})
}

// catalogError maps catalog failures to a status.
func catalogError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Product not found",
		})
	case errors.Is(err, catalog.ErrInvalidStock):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Stock must not be negative",
		})
	}
	log.Printf("[api] Catalog call failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "catalog_failed",
		Message: "Catalog operation failed",
	})
}
