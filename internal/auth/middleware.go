package auth

import (
	"errors"
	"log/slog"
	"strings"

	"clinic-authz/internal/principal"
	apperrors "clinic-authz/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	jwtService *JWTService
	resolver   principal.Resolver
	logger     *slog.Logger
}

func NewMiddleware(jwtService *JWTService, resolver principal.Resolver, logger *slog.Logger) *Middleware {
	return &Middleware{
		jwtService: jwtService,
		resolver:   resolver,
		logger:     logger,
	}
}

func (m *Middleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return apperrors.Unauthorized(msgMissingAuthorization)
			}

			claims, err := m.jwtService.Verify(token)
			if err != nil {
				m.logger.Debug("token rejected", "error", err)
				return apperrors.Unauthorized(msgInvalidOrExpiredToken)
			}

			c.Set(ContextKeyUserID, claims.UserID)

			return next(c)
		}
	}
}

// ResolvePrincipal loads the role of the authenticated user. It must run
// after RequireJWT.
func (m *Middleware) ResolvePrincipal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := GetUserID(c)
			if err != nil {
				return err
			}

			p, err := m.resolver.Resolve(c.Request().Context(), userID)
			if errors.Is(err, principal.ErrNotFound) {
				return apperrors.Forbidden(msgNoRoleAssigned)
			}
			if err != nil {
				return apperrors.InternalServer(msgPrincipalLookupFailed, err)
			}

			c.Set(ContextKeyPrincipal, p)

			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(headerAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}

	return parts[1]
}

func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID := c.Get(ContextKeyUserID)
	if userID == nil {
		return uuid.Nil, apperrors.Unauthorized(msgUserNotAuthenticated)
	}

	id, ok := userID.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalServer(msgInvalidUserIDCtx, nil)
	}

	return id, nil
}

// GetPrincipal returns the principal stored by ResolvePrincipal.
func GetPrincipal(c echo.Context) (principal.Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(principal.Principal)
	return p, ok
}
