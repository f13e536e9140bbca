package handler

import (
	"encoding/json"
	"errors"
	"strings"

	"studyhub-be/internal/dto"
	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/pkg/serverutils"
	"studyhub-be/internal/service"
	internalWS "studyhub-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// CanvasHandler upgrades editor connections that stream pointer input into
// a canvas session and receive its state.
type CanvasHandler struct {
	sessions  service.ICanvasSessionService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewCanvasHandler(sessions service.ICanvasSessionService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *CanvasHandler {
	return &CanvasHandler{
		sessions:  sessions,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *CanvasHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/canvas/:id", h.ServeWs)
}

// ServeWs authorizes the handshake. The token is optional; when the session
// belongs to a user the token must name that user.
func (h *CanvasHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sessionID := c.Params("id")
	owner, err := h.sessions.Owner(sessionID)
	if errors.Is(err, service.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, err.Error()))
	}
	if err != nil {
		return err
	}

	userID, err := h.identify(c)
	if err != nil {
		h.logger.Warn("CanvasHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}
	if owner != "" && owner != userID {
		return c.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(fiber.StatusForbidden, "Session belongs to another user"))
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("CanvasHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID, owner, h.apply)
		h.logger.Info("CanvasHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
	})(c)
}

// identify reads the token from the query (browsers) or the Authorization
// header (tooling). No token means anonymous.
func (h *CanvasHandler) identify(c *fiber.Ctx) (string, error) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr, _ = strings.CutPrefix(c.Get("Authorization"), "Bearer ")
	}
	if tokenStr == "" {
		return "", nil
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", errors.New("token missing user_id")
	}
	return userID, nil
}

func (h *CanvasHandler) apply(sessionID string, message []byte) error {
	var ev dto.PointerEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return errors.New("malformed pointer event")
	}
	if err := serverutils.ValidateRequest(ev); err != nil {
		return err
	}
	return h.sessions.ApplyPointer(sessionID, &ev)
}
