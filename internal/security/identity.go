package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"document-routing-server/config"
	"document-routing-server/internal/util"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

const (
	RoleAdmin = "admin"
	RoleHead  = "head"
	RoleStaff = "staff"
)

// Claims — контекст действующего лица; токен подписывает внешний сервис
// аутентификации, здесь он только разбирается и проверяется
type Claims struct {
	UserUUID     string `json:"user_uuid"`
	DepartmentID string `json:"department_id"`
	Role         string `json:"role"`
	IsActive     bool   `json:"is_active"`
	jwt.RegisteredClaims
}

// Elevated — админ-эквивалентная роль внутри отдела; только такая роль
// закрывает документ финальным согласованием
func (c *Claims) Elevated() bool {
	return c.Role == RoleAdmin || c.Role == RoleHead
}

func IdentityMiddleware(cfg *config.JWTConfig) func(next http.Handler) http.Handler {
	secret := []byte(cfg.SecretKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") == false {
				util.HandleError(w, "требуется Bearer токен", http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || token.Valid == false {
				util.HandleError(w, "невалидный токен", http.StatusUnauthorized)
				return
			}

			if claims.UserUUID == "" || claims.DepartmentID == "" {
				util.HandleError(w, "токен не содержит контекста пользователя", http.StatusUnauthorized)
				return
			}
			if claims.IsActive == false {
				util.HandleError(w, "пользователь деактивирован", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	if ok == false || claims == nil {
		return nil, errors.New("пользователь не найден в контексте")
	}
	return claims, nil
}
