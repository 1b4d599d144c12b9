// Package handlers contains the Echo route handlers for the omni API. All
// (de)serialization of canonical entities happens here; the core packages
// have no wire format of their own.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/namastexlabs/automagik-omni/internal/channel"
	"github.com/namastexlabs/automagik-omni/internal/instance"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError translates the core error taxonomy into HTTP status codes:
// validation → 400, not found → 404, rate limited → 429, backend
// unavailable → 503, anything else → 500.
func httpError(err error) *echo.HTTPError {
	switch {
	case channel.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, channel.ErrNotFound), errors.Is(err, instance.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, instance.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, channel.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, channel.ErrBackendUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// queryInt parses an integer query parameter, returning fallback when absent.
func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, channel.NewValidationError(name, "must be an integer, got %q", raw)
	}
	return value, nil
}

func parseStatusFilter(raw string) (channel.ContactStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch channel.ContactStatus(raw) {
	case "", channel.StatusOnline, channel.StatusOffline, channel.StatusAway,
		channel.StatusDND, channel.StatusUnknown:
		return channel.ContactStatus(raw), nil
	default:
		return "", channel.NewValidationError("status_filter", "unknown status %q", raw)
	}
}

func parseChatTypeFilter(raw string) (channel.ChatType, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch channel.ChatType(raw) {
	case "", channel.ChatDirect, channel.ChatGroup, channel.ChatChannel, channel.ChatThread:
		return channel.ChatType(raw), nil
	default:
		return "", channel.NewValidationError("chat_type_filter", "unknown chat type %q", raw)
	}
}

func parseArchivedFilter(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, channel.NewValidationError("archived", "must be a boolean, got %q", raw)
	}
	return &value, nil
}
