package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mediconnect/booking-service/internal/clinic"
	"github.com/mediconnect/booking-service/internal/eventlog"
	redisclient "github.com/mediconnect/booking-service/internal/redis"
)

var (
	ErrUserExists           = errors.New("user already exists")
	ErrBadCredentials       = errors.New("invalid email or password")
	ErrCodeInvalid          = errors.New("invalid or expired code")
	ErrRegistrationRequired = errors.New("registration number is required for doctors")
	ErrInvalidRole          = errors.New("role must be patient or doctor")
	ErrMissingIdentifier    = errors.New("email or phone identifier is required")
	ErrMissingFields        = errors.New("missing required fields")
)

// Service handles registration, login, and account maintenance. Appointment
// lifecycle lives in the clinic service; this one owns users and sessions.
type Service struct {
	repo   clinic.Repository
	otp    *OTPManager
	tokens *TokenIssuer
	locker redisclient.Locker
	events eventlog.Recorder
	now    func() time.Time
}

func NewService(repo clinic.Repository, otp *OTPManager, tokens *TokenIssuer, locker redisclient.Locker, events eventlog.Recorder) *Service {
	return &Service{
		repo:   repo,
		otp:    otp,
		tokens: tokens,
		locker: locker,
		events: events,
		now:    time.Now,
	}
}

type RegisterInput struct {
	Email              string
	Password           string
	Name               string
	Role               clinic.Role
	Phone              string
	RegistrationNumber string // required for doctors

	// OTP verification, optional. When Code is set the identifier picked by
	// VerifyMethod must have a valid pending code.
	Code         string
	VerifyMethod string // "email" or "phone"
}

// Register creates a user account. Doctors must supply a registration number.
// When an OTP code is provided it is verified first and the matching contact
// channel is marked verified.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*clinic.User, TokenPair, error) {
	if in.Role != clinic.RolePatient && in.Role != clinic.RoleDoctor {
		return nil, TokenPair{}, ErrInvalidRole
	}
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, TokenPair{}, fmt.Errorf("%w: email, password, and name", ErrMissingFields)
	}
	if in.Role == clinic.RoleDoctor && in.RegistrationNumber == "" {
		return nil, TokenPair{}, ErrRegistrationRequired
	}

	emailVerified, phoneVerified := false, false
	if in.Code != "" {
		identifier := in.Email
		if in.VerifyMethod == "phone" {
			identifier = in.Phone
		}
		if identifier == "" {
			return nil, TokenPair{}, ErrMissingIdentifier
		}
		ok, err := s.otp.Verify(ctx, identifier, in.Code)
		if err != nil {
			return nil, TokenPair{}, err
		}
		if !ok {
			return nil, TokenPair{}, ErrCodeInvalid
		}
		emailVerified = in.VerifyMethod != "phone"
		phoneVerified = in.VerifyMethod == "phone"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	var created *clinic.User

	err = s.locker.WithLock(ctx, clinic.LockUsers, func(lockCtx context.Context) error {
		users, err := s.repo.Users(lockCtx)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}

		if findUserByEmail(users, in.Email) >= 0 {
			return ErrUserExists
		}

		now := s.now()
		user := clinic.User{
			ID:            uuid.NewString(),
			Email:         strings.ToLower(in.Email),
			PasswordHash:  string(hash),
			Name:          in.Name,
			Role:          in.Role,
			PhoneNumber:   in.Phone,
			EmailVerified: emailVerified,
			PhoneVerified: phoneVerified,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		switch in.Role {
		case clinic.RolePatient:
			user.Patient = &clinic.PatientProfile{PaymentMethods: []clinic.PaymentMethod{}}
		case clinic.RoleDoctor:
			user.Doctor = &clinic.DoctorProfile{
				RegistrationNumber: in.RegistrationNumber,
				Availability:       clinic.Availability{},
			}
		}

		users = append(users, user)
		if err := s.repo.SaveUsers(lockCtx, users); err != nil {
			return fmt.Errorf("save users: %w", err)
		}
		created = &user
		return nil
	})
	if err != nil {
		return nil, TokenPair{}, err
	}

	tokens, err := s.tokens.Issue(created)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.events.Record(ctx, eventlog.Event{
		Type:      eventlog.EventUserRegistered,
		ActorID:   created.ID,
		SubjectID: created.ID,
		Payload:   map[string]any{"role": string(created.Role)},
	})

	return created, tokens, nil
}

// Login verifies credentials and returns fresh tokens. An optional OTP code
// is checked against the email identifier; a successful OTP login marks the
// email verified.
func (s *Service) Login(ctx context.Context, email, password, code string) (*clinic.User, TokenPair, error) {
	if code != "" {
		ok, err := s.otp.Verify(ctx, email, code)
		if err != nil {
			return nil, TokenPair{}, err
		}
		if !ok {
			return nil, TokenPair{}, ErrCodeInvalid
		}
	}

	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("load users: %w", err)
	}

	idx := findUserByEmail(users, email)
	if idx < 0 {
		return nil, TokenPair{}, ErrBadCredentials
	}
	user := users[idx]

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, TokenPair{}, ErrBadCredentials
	}

	if code != "" && !user.EmailVerified {
		if err := s.updateUser(ctx, user.ID, func(u *clinic.User) error {
			u.EmailVerified = true
			return nil
		}); err != nil {
			return nil, TokenPair{}, err
		}
		user.EmailVerified = true
	}

	tokens, err := s.tokens.Issue(&user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.events.Record(ctx, eventlog.Event{
		Type:      eventlog.EventUserLoggedIn,
		ActorID:   user.ID,
		SubjectID: user.ID,
		Payload:   map[string]any{"otp": code != ""},
	})

	return &user, tokens, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.UserByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, err
	}
	return s.tokens.Issue(user)
}

// SendOTP issues a code for the identifier and returns the record so the
// transport layer can deliver (or, in dev, log) it.
func (s *Service) SendOTP(ctx context.Context, identifier string) (*OTPRecord, error) {
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}
	return s.otp.Send(ctx, identifier)
}

func (s *Service) UserByID(ctx context.Context, id string) (*clinic.User, error) {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, clinic.ErrUserNotFound
}

type ProfileUpdate struct {
	Name        string
	Phone       string
	DateOfBirth string
	Patient     *clinic.PatientProfile
	Doctor      *clinic.DoctorProfile
}

// UpdateProfile applies role-appropriate profile fields to the calling user
// and marks the profile completed. Doctor availability is normalized (sorted,
// overlap-checked) before it is stored.
func (s *Service) UpdateProfile(ctx context.Context, sess clinic.Session, in ProfileUpdate) (*clinic.User, error) {
	var updated *clinic.User

	err := s.updateUser(ctx, sess.UserID, func(u *clinic.User) error {
		if in.Name != "" {
			u.Name = in.Name
		}
		if in.Phone != "" {
			u.PhoneNumber = in.Phone
		}

		switch u.Role {
		case clinic.RolePatient:
			if in.Patient != nil {
				methods := u.Patient.PaymentMethods
				u.Patient = in.Patient
				u.Patient.PaymentMethods = methods // payment methods change via their own endpoints
			}
			if in.DateOfBirth != "" {
				u.Patient.DateOfBirth = in.DateOfBirth
			}
		case clinic.RoleDoctor:
			if in.Doctor != nil {
				normalized, err := clinic.NormalizeAvailability(in.Doctor.Availability)
				if err != nil {
					return err
				}
				reg := u.Doctor.RegistrationNumber
				u.Doctor = in.Doctor
				u.Doctor.Availability = normalized
				if u.Doctor.RegistrationNumber == "" {
					u.Doctor.RegistrationNumber = reg
				}
			}
		}

		u.ProfileCompleted = true
		u.UpdatedAt = s.now()
		cp := *u
		updated = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PaymentMethods returns the calling patient's stored payment methods.
func (s *Service) PaymentMethods(ctx context.Context, sess clinic.Session) ([]clinic.PaymentMethod, error) {
	if sess.Role != clinic.RolePatient {
		return nil, clinic.ErrPatientOnly
	}
	user, err := s.UserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user.Patient == nil {
		return []clinic.PaymentMethod{}, nil
	}
	return user.Patient.PaymentMethods, nil
}

// AddPaymentMethod stores a payment method on the calling patient's profile.
// Marking one as default clears the flag on the others.
func (s *Service) AddPaymentMethod(ctx context.Context, sess clinic.Session, pm clinic.PaymentMethod) (*clinic.PaymentMethod, error) {
	if sess.Role != clinic.RolePatient {
		return nil, clinic.ErrPatientOnly
	}

	pm.ID = uuid.NewString()

	err := s.updateUser(ctx, sess.UserID, func(u *clinic.User) error {
		if u.Patient == nil {
			u.Patient = &clinic.PatientProfile{}
		}
		if pm.IsDefault {
			for i := range u.Patient.PaymentMethods {
				u.Patient.PaymentMethods[i].IsDefault = false
			}
		}
		u.Patient.PaymentMethods = append(u.Patient.PaymentMethods, pm)
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

// RemovePaymentMethod deletes a stored payment method. When the default is
// removed and others remain, the first one becomes the default.
func (s *Service) RemovePaymentMethod(ctx context.Context, sess clinic.Session, paymentMethodID string) error {
	if sess.Role != clinic.RolePatient {
		return clinic.ErrPatientOnly
	}

	return s.updateUser(ctx, sess.UserID, func(u *clinic.User) error {
		if u.Patient == nil {
			return nil
		}
		kept := u.Patient.PaymentMethods[:0]
		for _, pm := range u.Patient.PaymentMethods {
			if pm.ID != paymentMethodID {
				kept = append(kept, pm)
			}
		}
		u.Patient.PaymentMethods = kept

		hasDefault := false
		for _, pm := range kept {
			if pm.IsDefault {
				hasDefault = true
				break
			}
		}
		if !hasDefault && len(kept) > 0 {
			u.Patient.PaymentMethods[0].IsDefault = true
		}
		u.UpdatedAt = s.now()
		return nil
	})
}

// updateUser applies fn to the stored user with the given ID under the users
// collection lock.
func (s *Service) updateUser(ctx context.Context, userID string, fn func(u *clinic.User) error) error {
	err := s.locker.WithLock(ctx, clinic.LockUsers, func(lockCtx context.Context) error {
		users, err := s.repo.Users(lockCtx)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}

		idx := -1
		for i := range users {
			if users[i].ID == userID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return clinic.ErrUserNotFound
		}

		if err := fn(&users[idx]); err != nil {
			return err
		}
		return s.repo.SaveUsers(lockCtx, users)
	})
	if err != nil {
		return err
	}
	return nil
}

func findUserByEmail(users []clinic.User, email string) int {
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return i
		}
	}
	return -1
}
