package registration

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/billiard-reservation/internal/mailer"
	"github.com/iliyamo/billiard-reservation/internal/model"
	"github.com/iliyamo/billiard-reservation/internal/utils"
)

var logger = log.New("registration")

// MaxAttempts is how many wrong codes are accepted before the pending
// registration is discarded.
const MaxAttempts = 5

var (
	ErrEmailTaken      = errors.New("an account with this email already exists")
	ErrInvalidCode     = errors.New("invalid OTP, please try again")
	ErrTooManyAttempts = errors.New("too many invalid codes, please register again")
	ErrSendFailed      = errors.New("failed to send OTP, please try again")
)

// ResendTooSoonError is returned when a code is requested again before the
// resend interval has passed.
type ResendTooSoonError struct {
	RetryAfter time.Duration
}

func (e *ResendTooSoonError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting a new code", int(math.Ceil(e.RetryAfter.Seconds())))
}

// Sender delivers codes.  *mailer.Client satisfies it.
type Sender interface {
	SendOTP(ctx context.Context, msg mailer.OTPMessage) error
}

// Accounts is the part of the account repository registration needs.
type Accounts interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateCustomer(ctx context.Context, acct *model.Account, cust *model.Customer) error
}

// Options wires a Service.
type Options struct {
	Store          Store
	Sender         Sender
	Accounts       Accounts
	TTL            time.Duration
	ResendInterval time.Duration
	BcryptCost     int
	Now            func() time.Time
	// NewCode returns a six digit code; nil means crypto/rand.
	NewCode func() (string, error)
}

// Service runs the register, resend and verify steps.
type Service struct {
	store    Store
	sender   Sender
	accounts Accounts
	ttl      time.Duration
	resend   time.Duration
	cost     int
	now      func() time.Time
	newCode  func() (string, error)
}

// NewService returns a Service with defaults for unset options.
func NewService(opts Options) *Service {
	s := &Service{
		store:    opts.Store,
		sender:   opts.Sender,
		accounts: opts.Accounts,
		ttl:      opts.TTL,
		resend:   opts.ResendInterval,
		cost:     opts.BcryptCost,
		now:      opts.Now,
		newCode:  opts.NewCode,
	}
	if s.ttl <= 0 {
		s.ttl = 10 * time.Minute
	}
	if s.resend < 0 {
		s.resend = 0
	}
	if s.cost == 0 {
		s.cost = 10
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCode == nil {
		s.newCode = GenerateCode
	}
	return s
}

// Ticket tells the client where the registration stands.
type Ticket struct {
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
	ResendAfter time.Time `json:"resend_after"`
}

// Start validates the form, parks it and emails a code.
func (s *Service) Start(ctx context.Context, f Form) (Ticket, error) {
	f.Normalize()
	now := s.now()
	if err := f.Validate(now); err != nil {
		return Ticket{}, err
	}
	taken, err := s.accounts.EmailExists(ctx, f.Email)
	if err != nil {
		return Ticket{}, err
	}
	if taken {
		return Ticket{}, ErrEmailTaken
	}
	hash, err := utils.HashPassword(f.Password, s.cost)
	if err != nil {
		return Ticket{}, err
	}
	f.Password, f.ConfirmPassword = "", ""
	return s.issue(ctx, Pending{Form: f, PasswordHash: hash}, now)
}

// Resend replaces the code of a pending registration once the resend
// interval has passed.
func (s *Service) Resend(ctx context.Context, email string) (Ticket, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := s.store.Load(ctx, email)
	if err != nil {
		return Ticket{}, err
	}
	now := s.now()
	if wait := p.SentAt.Add(s.resend).Sub(now); wait > 0 {
		return Ticket{}, &ResendTooSoonError{RetryAfter: wait}
	}
	p.Attempts = 0
	return s.issue(ctx, p, now)
}

func (s *Service) issue(ctx context.Context, p Pending, now time.Time) (Ticket, error) {
	code, err := s.newCode()
	if err != nil {
		return Ticket{}, err
	}
	p.Code = code
	p.SentAt = now
	p.ExpiresAt = now.Add(s.ttl)
	if err := s.store.Save(ctx, p.Form.Email, p, s.ttl); err != nil {
		return Ticket{}, err
	}
	err = s.sender.SendOTP(ctx, mailer.OTPMessage{
		ToEmail: p.Form.Email,
		ToName:  p.Form.FirstName,
		Code:    code,
		Expiry:  s.ttl,
	})
	if err != nil {
		logger.Errorf("send otp to %s: %v", p.Form.Email, err)
		_ = s.store.Delete(ctx, p.Form.Email)
		return Ticket{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return Ticket{Email: p.Form.Email, ExpiresAt: p.ExpiresAt, ResendAfter: now.Add(s.resend)}, nil
}

// Verify checks code and, on success, creates the customer account.
func (s *Service) Verify(ctx context.Context, email, code string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := s.store.Load(ctx, email)
	if err != nil {
		return model.Account{}, err
	}
	now := s.now()
	if !now.Before(p.ExpiresAt) {
		_ = s.store.Delete(ctx, email)
		return model.Account{}, ErrNoPending
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(p.Code)) != 1 {
		p.Attempts++
		if p.Attempts >= MaxAttempts {
			_ = s.store.Delete(ctx, email)
			return model.Account{}, ErrTooManyAttempts
		}
		if err := s.store.Save(ctx, email, p, p.ExpiresAt.Sub(now)); err != nil {
			logger.Warnf("save attempt count for %s: %v", email, err)
		}
		return model.Account{}, ErrInvalidCode
	}

	f := p.Form
	acct := model.Account{Email: f.Email, PasswordHash: p.PasswordHash, Role: model.RoleCustomer}
	cust := model.Customer{
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		Birthdate:     f.Birthdate,
		Gender:        f.Gender,
		Email:         f.Email,
		ContactNumber: f.ContactNumber,
		Username:      f.Username(),
	}
	if f.MiddleName != "" {
		m := f.MiddleName
		cust.MiddleName = &m
	}
	if err := s.accounts.CreateCustomer(ctx, &acct, &cust); err != nil {
		return model.Account{}, err
	}
	if err := s.store.Delete(ctx, email); err != nil {
		logger.Warnf("drop pending registration %s: %v", email, err)
	}
	logger.Infof("customer account %d registered", acct.AccountID)
	return acct, nil
}

// GenerateCode returns a uniformly random code in 100000..999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
