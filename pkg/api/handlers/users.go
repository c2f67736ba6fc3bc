package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/apiclient"
	"github.com/marmos91/botkit/pkg/bot"
	"github.com/marmos91/botkit/pkg/models"
)

// ExampleGreeting is sent to the user by the example endpoint.
const ExampleGreeting = "Hello, world!"

// UserStore is what the user endpoints read.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// ExternalUsers fetches user records from the external API.
type ExternalUsers interface {
	Get(ctx context.Context, id any) (*apiclient.UserData, error)
}

// UserHandler serves the /api/v1/users and /api/v1/statistics endpoints.
type UserHandler struct {
	store    UserStore
	external ExternalUsers
	sender   bot.Sender
}

// NewUserHandler creates a UserHandler. external and sender may be nil when
// the corresponding modules are not configured; the example endpoint then
// answers 503.
func NewUserHandler(store UserStore, external ExternalUsers, sender bot.Sender) *UserHandler {
	return &UserHandler{store: store, external: external, sender: sender}
}

// ExampleResponse is the body of the example endpoint.
type ExampleResponse struct {
	Message  string              `json:"message"`
	UserData *apiclient.UserData `json:"user_data"`
}

// Example handles GET /api/v1/users/example/{id}: it loads the user, fetches
// their external record and greets them through the bot.
func (h *UserHandler) Example(w http.ResponseWriter, r *http.Request) {
	if h.external == nil || h.sender == nil {
		WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "External API or bot not configured")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		BadRequest(w, "User id must be an integer")
		return
	}

	ctx := r.Context()
	user, err := h.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			NotFound(w, "User not found")
			return
		}
		logger.ErrorCtx(ctx, "Exception in example endpoint", logger.Err(err))
		InternalServerError(w, "Failed to get user")
		return
	}

	data, err := h.external.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			NotFound(w, "User not found in the external API")
			return
		}
		logger.ErrorCtx(ctx, "Exception in example endpoint", logger.KeyChatID, user.ID, logger.Err(err))
		BadGateway(w, "External API request failed")
		return
	}

	if err := h.sender.Send(ctx, user.ID, ExampleGreeting); err != nil {
		logger.ErrorCtx(ctx, "Exception in example endpoint", logger.KeyChatID, user.ID, logger.Err(err))
		BadGateway(w, "Failed to message the user")
		return
	}

	WriteJSONOK(w, ExampleResponse{Message: "Success", UserData: data})
}

// UserCount handles GET /api/v1/statistics/usercount.
func (h *UserHandler) UserCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.CountUsers(r.Context())
	if err != nil {
		logger.ErrorCtx(r.Context(), "Failed to count users", logger.Err(err))
		InternalServerError(w, "Failed to count users")
		return
	}
	WriteJSONOK(w, models.UserCount{UserCount: count})
}
