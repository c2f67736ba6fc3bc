// Package admin implements the admin panel: a JSON API behind username and
// password login, with JWT sessions carried in a cookie or a Bearer header.
//
// Routes (mounted under /admin):
//
//	POST   /login                     - exchange credentials for a token pair
//	POST   /refresh                   - exchange a refresh token for a new pair
//	POST   /logout                    - clear the session cookie
//	GET    /me                        - current admin
//	GET    /users                     - list users (?limit, ?offset, ?active)
//	GET    /users/{id}                - user with their items
//	POST   /users/{id}/toggle-active  - flip is_active
//	GET    /items                     - list items (?user_id, ?limit, ?offset)
//	POST   /items                     - create an item
//	GET    /items/{id}                - get an item
//	DELETE /items/{id}                - delete an item
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/api/handlers"
	"github.com/marmos91/botkit/pkg/models"
	"github.com/marmos91/botkit/pkg/store"
)

// Config configures the admin panel.
type Config struct {
	Enabled bool      `mapstructure:"enabled" yaml:"enabled"`
	JWT     JWTConfig `mapstructure:"jwt" yaml:"jwt"`

	// SecureCookie marks the session cookie Secure (HTTPS only).
	SecureCookie bool `mapstructure:"secure_cookie" yaml:"secure_cookie"`
}

// Store is the data the panel reads and edits.
type Store interface {
	AdminGetter
	ListUsers(ctx context.Context, opts store.ListOptions) ([]*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	ListItems(ctx context.Context, opts store.ListOptions) ([]*models.Item, error)
	ListItemsByUser(ctx context.Context, userID int64) ([]*models.Item, error)
	GetItem(ctx context.Context, id uint) (*models.Item, error)
	CreateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id uint) error
}

// Panel serves the admin API.
type Panel struct {
	store        Store
	jwt          *JWTService
	secureCookie bool
}

// NewPanel creates the panel. The JWT secret must be at least 32 characters.
func NewPanel(s Store, cfg Config) (*Panel, error) {
	jwtService, err := NewJWTService(cfg.JWT)
	if err != nil {
		return nil, err
	}
	return &Panel{store: s, jwt: jwtService, secureCookie: cfg.SecureCookie}, nil
}

// Mount registers the panel routes under /admin.
func (p *Panel) Mount(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", p.Login)
		r.Post("/refresh", p.Refresh)
		r.Post("/logout", p.Logout)

		r.Group(func(r chi.Router) {
			r.Use(JWTAuth(p.jwt))

			r.Get("/me", p.Me)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", p.ListUsers)
				r.Get("/{id}", p.GetUser)
				r.Post("/{id}/toggle-active", p.ToggleUserActive)
			})

			r.Route("/items", func(r chi.Router) {
				r.Get("/", p.ListItems)
				r.Post("/", p.CreateItem)
				r.Get("/{id}", p.GetItem)
				r.Delete("/{id}", p.DeleteItem)
			})
		})
	})
}

// LoginRequest is the request body for POST /admin/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for POST /admin/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is returned by login and refresh.
type LoginResponse struct {
	*TokenPair
	Admin AdminResponse `json:"admin"`
}

// AdminResponse is a sanitized admin representation.
type AdminResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func adminToResponse(a *models.Admin) AdminResponse {
	return AdminResponse{ID: a.ID, Username: a.Username, IsActive: a.IsActive, CreatedAt: a.CreatedAt}
}

// Login handles POST /admin/login.
func (p *Panel) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !handlers.DecodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		handlers.BadRequest(w, "Username and password are required")
		return
	}

	admin, err := Authenticate(r.Context(), p.store, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			logger.WarnCtx(r.Context(), "Admin login failed", logger.KeyUsername, req.Username)
			handlers.Unauthorized(w, "Invalid username or password")
		case errors.Is(err, models.ErrAdminDisabled):
			handlers.Forbidden(w, "Admin account is disabled")
		default:
			logger.ErrorCtx(r.Context(), "Admin authentication failed", logger.Err(err))
			handlers.InternalServerError(w, "Authentication failed")
		}
		return
	}

	p.issueSession(w, r, admin)
}

// Refresh handles POST /admin/refresh.
func (p *Panel) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !handlers.DecodeJSONBody(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		handlers.BadRequest(w, "Refresh token is required")
		return
	}

	claims, err := p.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			handlers.Unauthorized(w, "Refresh token has expired")
			return
		}
		handlers.Unauthorized(w, "Invalid refresh token")
		return
	}

	admin, ok := p.currentAdmin(w, r, claims.Username)
	if !ok {
		return
	}
	if !admin.IsActive {
		handlers.Forbidden(w, "Admin account is disabled")
		return
	}

	p.issueSession(w, r, admin)
}

// Logout handles POST /admin/logout.
func (p *Panel) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	handlers.WriteNoContent(w)
}

// Me handles GET /admin/me.
func (p *Panel) Me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		handlers.Unauthorized(w, "Authentication required")
		return
	}

	admin, ok := p.currentAdmin(w, r, claims.Username)
	if !ok {
		return
	}
	handlers.WriteJSONOK(w, adminToResponse(admin))
}

func (p *Panel) issueSession(w http.ResponseWriter, r *http.Request, admin *models.Admin) {
	pair, err := p.jwt.GenerateTokenPair(admin)
	if err != nil {
		logger.ErrorCtx(r.Context(), "Failed to generate admin token", logger.Err(err))
		handlers.InternalServerError(w, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    pair.AccessToken,
		Path:     "/admin",
		MaxAge:   int(p.jwt.AccessTokenDuration().Seconds()),
		HttpOnly: true,
		Secure:   p.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	logger.InfoCtx(r.Context(), "Admin session issued", logger.KeyUsername, admin.Username)
	handlers.WriteJSONOK(w, LoginResponse{TokenPair: pair, Admin: adminToResponse(admin)})
}

// currentAdmin fetches the admin named in a token. A missing admin means the
// token no longer identifies anyone: 401.
func (p *Panel) currentAdmin(w http.ResponseWriter, r *http.Request, username string) (*models.Admin, bool) {
	admin, err := p.store.GetAdmin(r.Context(), username)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			handlers.Unauthorized(w, "Admin no longer exists")
			return nil, false
		}
		handlers.InternalServerError(w, "Failed to get admin")
		return nil, false
	}
	return admin, true
}

// listOptions parses ?limit, ?offset and ?active.
func listOptions(r *http.Request) (store.ListOptions, error) {
	var opts store.ListOptions
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("active must be a boolean")
		}
		opts.ActiveOnly = b
	}
	return opts, nil
}
