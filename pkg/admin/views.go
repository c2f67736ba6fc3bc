package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/api/handlers"
	"github.com/marmos91/botkit/pkg/models"
)

// UserListResponse is the body of GET /admin/users.
type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

// UserDetailResponse is the body of GET /admin/users/{id}.
type UserDetailResponse struct {
	*models.User
	Items []*models.Item `json:"items"`
}

// CreateItemRequest is the body of POST /admin/items.
type CreateItemRequest struct {
	Title    string `json:"title"`
	ItemType string `json:"item_type"`
	UserID   int64  `json:"user_id"`
}

// ListUsers handles GET /admin/users.
func (p *Panel) ListUsers(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		handlers.BadRequest(w, err.Error())
		return
	}

	users, err := p.store.ListUsers(r.Context(), opts)
	if err != nil {
		handlers.InternalServerError(w, "Failed to list users")
		return
	}
	total, err := p.store.CountUsers(r.Context())
	if err != nil {
		handlers.InternalServerError(w, "Failed to count users")
		return
	}

	handlers.WriteJSONOK(w, UserListResponse{Users: users, Total: total})
}

// GetUser handles GET /admin/users/{id}.
func (p *Panel) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := p.userFromPath(w, r)
	if !ok {
		return
	}

	items, err := p.store.ListItemsByUser(r.Context(), user.ID)
	if err != nil {
		handlers.InternalServerError(w, "Failed to list items")
		return
	}

	handlers.WriteJSONOK(w, UserDetailResponse{User: user, Items: items})
}

// ToggleUserActive handles POST /admin/users/{id}/toggle-active.
func (p *Panel) ToggleUserActive(w http.ResponseWriter, r *http.Request) {
	user, ok := p.userFromPath(w, r)
	if !ok {
		return
	}

	if err := p.store.SetUserActive(r.Context(), user.ID, !user.IsActive); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			handlers.NotFound(w, "User not found")
			return
		}
		handlers.InternalServerError(w, "Failed to update user")
		return
	}
	user.IsActive = !user.IsActive

	logger.InfoCtx(r.Context(), "User activity toggled",
		logger.KeyChatID, user.ID, "is_active", user.IsActive, logger.KeyUsername, adminName(r))
	handlers.WriteJSONOK(w, user)
}

// ListItems handles GET /admin/items.
func (p *Panel) ListItems(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("user_id"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			handlers.BadRequest(w, "user_id must be an integer")
			return
		}
		items, err := p.store.ListItemsByUser(r.Context(), userID)
		if err != nil {
			handlers.InternalServerError(w, "Failed to list items")
			return
		}
		handlers.WriteJSONOK(w, items)
		return
	}

	opts, err := listOptions(r)
	if err != nil {
		handlers.BadRequest(w, err.Error())
		return
	}
	items, err := p.store.ListItems(r.Context(), opts)
	if err != nil {
		handlers.InternalServerError(w, "Failed to list items")
		return
	}
	handlers.WriteJSONOK(w, items)
}

// CreateItem handles POST /admin/items.
func (p *Panel) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !handlers.DecodeJSONBody(w, r, &req) {
		return
	}

	itemType, err := models.ParseItemType(req.ItemType)
	if err != nil {
		handlers.BadRequest(w, err.Error())
		return
	}

	item := &models.Item{Title: req.Title, Type: itemType, UserID: req.UserID, IsActive: true}
	if err := item.Validate(); err != nil {
		handlers.BadRequest(w, err.Error())
		return
	}

	if err := p.store.CreateItem(r.Context(), item); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			handlers.NotFound(w, "Item owner not found")
			return
		}
		handlers.InternalServerError(w, "Failed to create item")
		return
	}

	handlers.WriteJSONCreated(w, item)
}

// GetItem handles GET /admin/items/{id}.
func (p *Panel) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDFromPath(w, r)
	if !ok {
		return
	}

	item, err := p.store.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrItemNotFound) {
			handlers.NotFound(w, "Item not found")
			return
		}
		handlers.InternalServerError(w, "Failed to get item")
		return
	}
	handlers.WriteJSONOK(w, item)
}

// DeleteItem handles DELETE /admin/items/{id}.
func (p *Panel) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDFromPath(w, r)
	if !ok {
		return
	}

	if err := p.store.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrItemNotFound) {
			handlers.NotFound(w, "Item not found")
			return
		}
		handlers.InternalServerError(w, "Failed to delete item")
		return
	}
	handlers.WriteNoContent(w)
}

func (p *Panel) userFromPath(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		handlers.BadRequest(w, "User id must be an integer")
		return nil, false
	}

	user, err := p.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			handlers.NotFound(w, "User not found")
			return nil, false
		}
		handlers.InternalServerError(w, "Failed to get user")
		return nil, false
	}
	return user, true
}

func itemIDFromPath(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		handlers.BadRequest(w, "Item id must be an integer")
		return 0, false
	}
	return uint(id), true
}

func adminName(r *http.Request) string {
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		return claims.Username
	}
	return ""
}
