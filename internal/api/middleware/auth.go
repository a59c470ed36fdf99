package middleware

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/corphub/events-api/internal/api/handler"
	"github.com/corphub/events-api/internal/core/domain"
)

// Auth validates the JWT and injects the resolved domain.Principal into the
// context. The header may carry "Bearer <token>" or the bare token.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
			}

			p := domain.Principal{
				UserID: stringClaim(claims, "sub"),
				Email:  stringClaim(claims, "email"),
				Name:   stringClaim(claims, "name"),
				Role:   stringClaim(claims, "role"),
			}
			if !p.Authenticated() {
				return fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
			}
			c.Set(handler.PrincipalKey, p)

			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrUnauthenticated)
	}

	parts := strings.Fields(header)
	switch {
	case len(parts) == 1:
		return parts[0], nil
	case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
		return parts[1], nil
	default:
		return "", fmt.Errorf("%w: invalid authorization header", domain.ErrUnauthenticated)
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
