package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"threadloom/internal/model"
	"threadloom/internal/notify"
	"threadloom/internal/otp"
	"threadloom/internal/repository"
	"threadloom/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// userService implements UserService.
type userService struct {
	userRepo repository.UserRepository
	otps     otp.Store
	mailer   notify.Mailer
	sessions *session.Manager
	logger   zerolog.Logger

	generate func() (string, error)
	cost     int
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	otps otp.Store,
	mailer notify.Mailer,
	sessions *session.Manager,
	logger zerolog.Logger,
) UserService {
	return &userService{
		userRepo: userRepo,
		otps:     otps,
		mailer:   mailer,
		sessions: sessions,
		logger:   logger.With().Str("service", "user").Logger(),
		generate: otp.Generate,
		cost:     bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and mails it a verification code.
func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	mobile := strings.TrimSpace(req.Mobile)

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, model.ErrEmailExists
	}

	existing, err = s.userRepo.GetByMobile(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to check mobile: %w", err)
	}
	if existing != nil {
		return nil, model.ErrMobileExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Mobile:       mobile,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// A failed mail is recoverable through ResendOTP.
	if err := s.sendOTP(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send verification code")
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, nil
}

func (s *userService) sendOTP(ctx context.Context, user *model.User) error {
	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}
	if err := s.otps.Save(ctx, user.Email, code, otp.TTL); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	if err := s.mailer.SendOTP(ctx, user.Name, user.Email, code); err != nil {
		return fmt.Errorf("failed to mail otp: %w", err)
	}
	return nil
}

// VerifyOTP checks the submitted digits against the stored code and marks
// the account verified.
func (s *userService) VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) error {
	var b strings.Builder
	for _, d := range req.Digits() {
		if len(d) != 1 || !unicode.IsDigit(rune(d[0])) {
			return model.ErrInvalidOTPFormat
		}
		b.WriteString(d)
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		return model.ErrInvalidOTP
	}

	stored, err := s.otps.Get(ctx, email)
	if err != nil {
		if errors.Is(err, otp.ErrNotFound) {
			return model.ErrInvalidOTP
		}
		return fmt.Errorf("failed to load otp: %w", err)
	}
	if stored != b.String() {
		s.logger.Debug().Str("email", email).Msg("otp mismatch")
		if err := s.otps.RecordFailure(ctx, email); err != nil {
			if errors.Is(err, otp.ErrTooManyAttempts) {
				s.logger.Warn().Str("email", email).Msg("otp invalidated after repeated failures")
				return model.ErrOTPAttemptsExceeded
			}
			return fmt.Errorf("failed to record otp attempt: %w", err)
		}
		return model.ErrInvalidOTP
	}

	if err := s.userRepo.MarkVerified(ctx, email); err != nil {
		return err
	}
	if err := s.otps.Delete(ctx, email); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("failed to delete used otp")
	}

	s.logger.Info().Str("email", email).Msg("account verified")
	return nil
}

// ResendOTP replaces the pending code for an existing account.
func (s *userService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}
	return s.sendOTP(ctx, user)
}

// Login checks the credentials and account state and issues a session token.
func (s *userService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, "", model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", model.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, "", model.ErrAccountNotVerified
	}
	if user.IsBlocked {
		return nil, "", model.ErrAccountBlocked
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return user, token, nil
}
