package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/corphub/events-api/internal/core/domain"
)

// PrincipalKey is the echo context key under which the Auth middleware
// stores the resolved domain.Principal.
const PrincipalKey = "principal"

// ctxPrincipal returns the principal injected by the Auth middleware.
// A missing or empty principal means the route was mounted without auth.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, _ := c.Get(PrincipalKey).(domain.Principal)
	if !p.Authenticated() {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return p, nil
}
