package stub

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aqarlink/aqarlink/internal/notification"
)

// userPayload is the wire shape of a user. The identity field is _id,
// matching the production API this stub mirrors.
type userPayload struct {
	ID          string `json:"_id"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name,omitempty"`
	IsNewUser   bool   `json:"isNewUser"`
}

func toUserPayload(u User) userPayload {
	return userPayload{ID: u.ID, PhoneNumber: u.PhoneNumber, Name: u.Name, IsNewUser: u.IsNewUser}
}

// AuthHandler exposes the verification and registration endpoints.
type AuthHandler struct {
	users    UserStore
	codes    CodeStore
	notifier notification.Notifier
	secret   []byte
	codeTTL  time.Duration
	tokenTTL time.Duration
	logger   *slog.Logger

	// generate is swapped in tests for a deterministic code.
	generate func() (string, error)
}

// NewAuthHandler builds the auth handler.
func NewAuthHandler(users UserStore, codes CodeStore, notifier notification.Notifier, secret []byte, codeTTL, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		codes:    codes,
		notifier: notifier,
		secret:   secret,
		codeTTL:  codeTTL,
		tokenTTL: tokenTTL,
		logger:   logger,
		generate: randomCode,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type sendVerificationRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// SendVerification generates a one-time code, stores its hash with a TTL
// and hands the clear text to the notifier for out-of-band delivery.
func (h *AuthHandler) SendVerification(c *fiber.Ctx) error {
	var req sendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return fiber.NewError(http.StatusBadRequest, "phoneNumber is required")
	}

	code, err := h.generate()
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "hash code")
	}
	if err := h.codes.Put(c.UserContext(), phone, string(hash), h.codeTTL); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "store code")
	}

	h.notifier.Send(c.UserContext(), notification.Message{
		Kind:        notification.KindVerificationCode,
		Destination: phone,
		Body:        "Your verification code is " + code,
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "sent"})
}

type verifyRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
}

// Verify checks the code, creating the user on first verification, and
// issues a bearer token.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	phone := strings.TrimSpace(req.PhoneNumber)

	hash, err := h.codes.Get(c.UserContext(), phone)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid or expired verification code")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Code)) != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid verification code")
	}
	h.codes.Delete(c.UserContext(), phone)

	user, err := h.users.GetByPhone(c.UserContext(), phone)
	if errors.Is(err, ErrNotFound) {
		user = User{
			ID:          uuid.NewString(),
			PhoneNumber: phone,
			IsNewUser:   true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := h.users.Create(c.UserContext(), user); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "create user")
		}
		h.logger.Info("user created", "user_id", user.ID, "phone", phone)
	} else if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "lookup user")
	}

	token, err := mintToken(user.ID, user.PhoneNumber, h.secret, h.tokenTTL)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "mint token")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":  toUserPayload(user),
		"token": token,
	})
}

type completeRegistrationRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// CompleteRegistration names the user and clears the newness flag.
func (h *AuthHandler) CompleteRegistration(c *fiber.Ctx) error {
	var req completeRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < 2 {
		return fiber.NewError(http.StatusBadRequest, "name must be at least 2 characters")
	}

	user, err := h.users.GetByID(c.UserContext(), req.UserID)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "user not found")
	} else if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "lookup user")
	}

	user.Name = name
	user.IsNewUser = false
	if err := h.users.Update(c.UserContext(), user); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "update user")
	}

	token, err := mintToken(user.ID, user.PhoneNumber, h.secret, h.tokenTTL)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "mint token")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user":  toUserPayload(user),
		"token": token,
	})
}
