package handler

import (
	"net/http"
	"strings"
	"time"

	"threadloom/internal/model"
	"threadloom/internal/service"

	"github.com/rs/zerolog"
)

const (
	// otpEmailCookie remembers which account is being verified.
	otpEmailCookie = "otp_email"
	otpEmailMaxAge = 15 * time.Minute

	msgOTPSent = "OTP has been sent to your email."
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// UserHandler handles registration, OTP verification, login and logout.
type UserHandler struct {
	service service.UserService
	cookie  CookieConfig
	logger  zerolog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(service service.UserService, cookie CookieConfig, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		cookie:  cookie,
		logger:  logger.With().Str("handler", "user").Logger(),
	}
}

// Register handles POST /signup.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.setCookie(w, otpEmailCookie, user.Email, otpEmailMaxAge)
	writeJSON(w, http.StatusOK, model.RedirectResponse{Status: true, URL: "/verifyOtp"})
}

// VerifyOTP handles POST /verifyOtp. The email comes from the cookie set at
// registration, or from the body when the cookie is gone.
func (h *UserHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyOTPRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if email := cookieValue(r, otpEmailCookie); email != "" {
		req.Email = email
	}

	if err := h.service.VerifyOTP(r.Context(), &req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.clearCookie(w, otpEmailCookie)
	writeJSON(w, http.StatusOK, model.RedirectResponse{Status: true, URL: "/login"})
}

// ResendOTP handles POST /resendOtp.
func (h *UserHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	email := cookieValue(r, otpEmailCookie)
	if email == "" {
		var body struct {
			Email string `json:"email"`
		}
		if _, ok := decodeOptionalJSON(w, r, &body, h.logger); !ok {
			return
		}
		email = strings.TrimSpace(body.Email)
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeUserNotFound, model.ErrUserNotFound.Message, h.logger)
		return
	}

	if err := h.service.ResendOTP(r.Context(), email); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.setCookie(w, otpEmailCookie, email, otpEmailMaxAge)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgOTPSent})
}

// Login handles POST /login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	user, token, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	h.setCookie(w, h.cookie.Name, token, h.cookie.MaxAge)
	h.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	writeJSON(w, http.StatusOK, model.RedirectResponse{Status: true, URL: "/"})
}

// Logout handles GET /logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, h.cookie.Name)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UserHandler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *UserHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
