package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const tokenExpiry = time.Hour

type jwtAdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies admin bearer tokens. The admin password is
// bcrypt-hashed once at construction; the plaintext is not retained.
type Auth struct {
	secret       string
	passwordHash []byte
}

func NewAuth(secret, adminPassword string) (*Auth, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &Auth{secret: secret, passwordHash: hash}, nil
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/login: password in, one-hour bearer token out.
func (a *Auth) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
	}

	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(req.Password)) != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid password"})
	}

	claims := &jwtAdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.secret))
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to sign token"})
	}
	return c.JSON(fiber.Map{"token": token})
}

// Middleware rejects requests without a valid admin bearer token.
func (a *Auth) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "authorization header format must be Bearer {token}"})
		}

		claims := &jwtAdminClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(a.secret), nil
		})
		if err != nil || !token.Valid || claims.Role != "admin" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "not authorized or invalid token"})
		}
		return c.Next()
	}
}
