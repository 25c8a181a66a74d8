package middleware

import (
	"fmt"
	"strings"
	"time"

	"lms/auth"
	"lms/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const principalKey = "principal"

// GenerateJWT generates a JWT token for the user
func GenerateJWT(userID, clientID uint, role, email string) (string, error) {
	claims := jwt.MapClaims{
		"userId":   userID,
		"clientId": clientID,
		"role":     role,
		"email":    email,
		"iat":      time.Now().Unix(),                     // issued at
		"exp":      time.Now().Add(24 * time.Hour).Unix(), // expiry 24h
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := []byte(config.Current().JWTKey)

	return token.SignedString(jwtSecret)
}

func unauthorized(c *fiber.Ctx) error {
	return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
}

// JWTMiddleware checks the bearer token and stores the caller's principal in
// the request context. A token without both a user and a tenant is rejected.
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return unauthorized(c)
	}
	tokenString := authHeader[len("Bearer "):]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Current().JWTKey), nil
	})
	if err != nil || !token.Valid {
		return unauthorized(c)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthorized(c)
	}
	// JWT numbers decode as float64
	userID, _ := claims["userId"].(float64)
	clientID, _ := claims["clientId"].(float64)
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)

	p := auth.Principal{UserID: uint(userID), ClientID: uint(clientID), Role: role, Email: email}
	if !p.Valid() {
		return unauthorized(c)
	}
	c.Locals(principalKey, p)
	c.Locals("userId", p.UserID)
	return c.Next()
}

// PrincipalFrom returns the caller set by JWTMiddleware.
func PrincipalFrom(c *fiber.Ctx) (auth.Principal, bool) {
	p, ok := c.Locals(principalKey).(auth.Principal)
	if !ok || !p.Valid() {
		return auth.Principal{}, false
	}
	return p, true
}
