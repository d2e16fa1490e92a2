package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mediconnect/booking-service/internal/clinic"
	redisclient "github.com/mediconnect/booking-service/internal/redis"
)

var (
	ErrResendTooSoon   = errors.New("please wait before requesting another code")
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new code")
)

// OTPRecord is one issued one-time password. The identifier is the email or
// phone number the code was sent to.
type OTPRecord struct {
	Identifier string    `json:"identifier"`
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Attempts   int       `json:"attempts"`
	LastSent   time.Time `json:"lastSent"`
}

// OTPStore persists the issued codes. Implemented by the record repository.
type OTPStore interface {
	OTPs(ctx context.Context) ([]OTPRecord, error)
	SaveOTPs(ctx context.Context, records []OTPRecord) error
}

// OTPManager owns the OTP lifecycle: issue with a resend cooldown, verify
// with an attempt cap, purge on consumption or lockout. Verification runs
// inside the otps collection lock so the attempt counter cannot be raced past
// its limit.
type OTPManager struct {
	store       OTPStore
	locker      redisclient.Locker
	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewOTPManager(store OTPStore, locker redisclient.Locker, ttl, cooldown time.Duration, maxAttempts int) *OTPManager {
	return &OTPManager{
		store:       store,
		locker:      locker,
		ttl:         ttl,
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Send issues a fresh 6-digit code for the identifier, replacing any earlier
// record and resetting its attempt counter. A second send inside the cooldown
// window fails with ErrResendTooSoon. The record (including the code) is
// returned so the caller can hand it to a delivery channel.
func (m *OTPManager) Send(ctx context.Context, identifier string) (*OTPRecord, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	var issued *OTPRecord

	err = m.locker.WithLock(ctx, clinic.LockOTPs, func(lockCtx context.Context) error {
		records, err := m.store.OTPs(lockCtx)
		if err != nil {
			return fmt.Errorf("load otps: %w", err)
		}

		now := m.now()
		idx := findOTP(records, identifier)
		if idx >= 0 && now.Sub(records[idx].LastSent) < m.cooldown {
			return ErrResendTooSoon
		}

		rec := OTPRecord{
			Identifier: identifier,
			Code:       code,
			ExpiresAt:  now.Add(m.ttl),
			Attempts:   0,
			LastSent:   now,
		}
		if idx >= 0 {
			records[idx] = rec
		} else {
			records = append(records, rec)
		}

		if err := m.store.SaveOTPs(lockCtx, records); err != nil {
			return fmt.Errorf("save otps: %w", err)
		}
		issued = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return issued, nil
}

// Verify checks a submitted code. It fails closed (false, nil) when no record
// exists or the record has expired. Every call counts against the attempt
// cap; exceeding it deletes the record and returns ErrTooManyAttempts. A
// matching code consumes the record, so a code verifies at most once.
func (m *OTPManager) Verify(ctx context.Context, identifier, code string) (bool, error) {
	var ok bool

	err := m.locker.WithLock(ctx, clinic.LockOTPs, func(lockCtx context.Context) error {
		records, err := m.store.OTPs(lockCtx)
		if err != nil {
			return fmt.Errorf("load otps: %w", err)
		}

		idx := findOTP(records, identifier)
		if idx < 0 {
			return nil
		}
		if m.now().After(records[idx].ExpiresAt) {
			return nil
		}

		records[idx].Attempts++

		if records[idx].Attempts > m.maxAttempts {
			records = append(records[:idx], records[idx+1:]...)
			if err := m.store.SaveOTPs(lockCtx, records); err != nil {
				return fmt.Errorf("save otps: %w", err)
			}
			return ErrTooManyAttempts
		}

		if records[idx].Code != code {
			return m.store.SaveOTPs(lockCtx, records)
		}

		records = append(records[:idx], records[idx+1:]...)
		if err := m.store.SaveOTPs(lockCtx, records); err != nil {
			return fmt.Errorf("save otps: %w", err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return ok, nil
}

// SweepExpired deletes records whose expiry has passed. Called periodically
// by the otp-sweeper worker; Verify does not rely on it for correctness.
func (m *OTPManager) SweepExpired(ctx context.Context) (int, error) {
	removed := 0

	err := m.locker.WithLock(ctx, clinic.LockOTPs, func(lockCtx context.Context) error {
		records, err := m.store.OTPs(lockCtx)
		if err != nil {
			return fmt.Errorf("load otps: %w", err)
		}

		now := m.now()
		kept := records[:0]
		for _, rec := range records {
			if now.After(rec.ExpiresAt) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if removed == 0 {
			return nil
		}
		return m.store.SaveOTPs(lockCtx, kept)
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func findOTP(records []OTPRecord, identifier string) int {
	for i := range records {
		if records[i].Identifier == identifier {
			return i
		}
	}
	return -1
}

// generateCode draws a uniformly random 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
