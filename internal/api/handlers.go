package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"salachat/internal/auth"
	"salachat/internal/hub"
	"salachat/internal/media"
	"salachat/internal/service/account"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The websocket endpoint is cookie-authenticated; same-origin is assumed
	// for the bundled browser client.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler wires HTTP routes to the account service, the media store, and the
// real-time hub.
type Handler struct {
	accounts *account.Service
	auth     *auth.Service
	media    *media.Store
	hub      *hub.Hub
}

// NewHandler constructs a Handler instance.
func NewHandler(accounts *account.Service, authService *auth.Service, mediaStore *media.Store, h *hub.Hub) *Handler {
	return &Handler{
		accounts: accounts,
		auth:     authService,
		media:    mediaStore,
		hub:      h,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)

	authMW := h.auth.Middleware()
	authed := api.Group("")
	authed.Use(authMW, h.auth.CSRFMiddleware())
	authed.POST("/users/logout", h.logoutUser)
	authed.GET("/users", h.listUsers)
	authed.POST("/upload", h.uploadPhoto)

	router.GET("/uploads/:filename", h.serveUpload)
	router.GET("/ws", authMW, h.serveWebsocket)
}

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
	user, err := h.accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
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
	user, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID, user.Username)
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
		"auth_token": authToken,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

// listUsers returns the same active/inactive view the hub broadcasts, for
// clients that want it over plain HTTP.
func (h *Handler) listUsers(c *gin.Context) {
	statuses, err := h.hub.UserStatuses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": statuses})
}

// uploadPhoto stores an image and announces it to the default room. Upload
// failures are reported to the uploader only, never broadcast.
func (h *Handler) uploadPhoto(c *gin.Context) {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo is required"})
		return
	}
	url, err := h.media.Save(file)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save file failed"})
		return
	}
	h.hub.RelayImage(id.Username, h.hub.DefaultRoom(), url)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) serveUpload(c *gin.Context) {
	path, err := h.media.FilePath(c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.File(path)
}

// serveWebsocket upgrades an authenticated request and registers the
// connection with the hub. Without a valid session the auth middleware has
// already refused the request before any hub state changes.
func (h *Handler) serveWebsocket(c *gin.Context) {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade for %s: %v", id.Username, err)
		return
	}
	h.hub.Register(hub.NewClient(h.hub, conn, id.Username))
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	maxAge := int(h.auth.TokenTTL().Seconds())
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	http.SetCookie(c.Writer, ck)
}
