package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vericode/internal/auth"
	"vericode/internal/llm"
	"vericode/internal/service/chat"
)

// Handler wires HTTP routes to the chat service and the model registry.
type Handler struct {
	chats    *chat.Service
	auth     *auth.Service
	registry *llm.Registry
	opMode   llm.Mode
	log      *zap.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(chats *chat.Service, authService *auth.Service, registry *llm.Registry, opMode llm.Mode, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chats:    chats,
		auth:     authService,
		registry: registry,
		opMode:   opMode,
		log:      logger,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.health)

	api := router.Group("/api")
	api.GET("/models", h.listModels)
	api.POST("/auth/register", h.registerUser)
	api.POST("/auth/login", h.loginUser)

	protected := api.Group("")
	protected.Use(h.auth.Middleware(), h.auth.CSRFMiddleware())
	protected.POST("/auth/logout", h.logoutUser)
	protected.GET("/auth/me", h.getMe)
	protected.POST("/analyze", h.analyze)
	protected.GET("/chats", h.listChats)
	protected.GET("/chats/:id", h.getChat)
	protected.PUT("/chats/:id", h.renameChat)
	protected.DELETE("/chats/:id", h.deleteChat)
}

func (h *Handler) health(c *gin.Context) {
	c.String(http.StatusOK, "VeriCode backend is running")
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

// Models endpoint; unauthenticated, filtered by the configured operating
// mode.
func (h *Handler) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.registry.Models(h.opMode)})
}

type analyzeRequest struct {
	Code   string `json:"code"`
	Model  string `json:"model"`
	ChatID string `json:"chatId"`
}

func (h *Handler) analyze(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.chats.Analyze(c.Request.Context(), userID, req.Code, req.Model, req.ChatID)
	if err != nil {
		h.writeAnalyzeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"role":    "model",
		"content": result.Content,
		"chatId":  result.ChatID,
		"title":   result.Title,
	})
}

// writeAnalyzeError maps pipeline failures to HTTP statuses. Inference
// detail stays in the logs; the client gets a generic message.
func (h *Handler) writeAnalyzeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code snippet is required"})
	case errors.Is(err, chat.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
	default:
		var infErr *llm.InferenceError
		if errors.As(err, &infErr) {
			h.log.Error("analysis failed",
				zap.String("kind", string(infErr.Kind)),
				zap.String("detail", infErr.Detail))
			if infErr.Kind == llm.KindTimeout {
				c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Analysis timed out"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error analyzing code"})
			return
		}
		h.log.Error("analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error analyzing code"})
	}
}

func (h *Handler) listChats(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	summaries, err := h.chats.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *Handler) getChat(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	conversation, err := h.chats.FindChat(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (h *Handler) renameChat(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	conversation, err := h.chats.RenameChat(c.Request.Context(), userID, c.Param("id"), req.Title)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyTitle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
		case errors.Is(err, chat.ErrChatNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		}
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (h *Handler) deleteChat(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	if err := h.chats.DeleteChat(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat deleted"})
}

// User registration and login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.chats.RegisterUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.chats.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.setAuthCookies(c, authToken, csrfToken)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
		"auth_token": authToken,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) getMe(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	user, err := h.chats.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := gin.Mode() == gin.ReleaseMode
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
