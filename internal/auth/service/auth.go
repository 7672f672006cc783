package service

import (
	"context"
	"time"

	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/auth/token"
	"github.com/rancho/rancho-backend/internal/user/domain"
	userrepo "github.com/rancho/rancho-backend/internal/user/repository"
	"github.com/rancho/rancho-backend/pkg/config"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/logger"
)

const (
	lockoutWindow   = 10
	lockoutFailures = 5
	lockoutDuration = 15 * time.Minute
	systemIDPrefix  = "system:"
)

// systemAccount is a hard-coded operational login honoured outside
// production only
type systemAccount struct {
	password string
	role     string
	year     int
}

var systemAccounts = map[string]systemAccount{
	"cozinha": {password: "cozinha", role: domain.RoleKitchen},
	"odia":    {password: "odia", role: domain.RoleDutyOfficer},
	"admin":   {password: "admin", role: domain.RoleAdmin},
}

// LoginResult is the outcome of a successful authentication
type LoginResult struct {
	Identity           token.Identity
	MustChangePassword bool
}

// AuthService implements login, lockout and logout
type AuthService struct {
	users       *userrepo.UserRepository
	audit       *auditrepo.AuditRepository
	environment string
	now         func() time.Time
	logger      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *userrepo.UserRepository, audit *auditrepo.AuditRepository, environment string, log *logger.Logger) *AuthService {
	return &AuthService{
		users:       users,
		audit:       audit,
		environment: environment,
		now:         time.Now,
		logger:      log,
	}
}

// SetClock replaces the service clock, for tests
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Login authenticates a NII/password pair. Failed attempts are counted per
// NII over the last attempts; reaching the threshold locks the account.
func (s *AuthService) Login(ctx context.Context, nii, password, ip string) (*LoginResult, error) {
	if result, handled, err := s.loginSystem(ctx, nii, password, ip); handled {
		return result, err
	}

	user, err := s.users.GetByNII(ctx, nii)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, s.fail(ctx, nii, ip)
		}
		return nil, err
	}
	if !user.Active {
		return nil, s.fail(ctx, nii, ip)
	}

	if until := user.LockExpiry(); until != nil && until.After(s.now()) {
		return nil, errors.AccountLocked(until.Sub(s.now()))
	}

	if !domain.VerifyPassword(password, user.PasswordHash) {
		failErr := s.fail(ctx, nii, ip)

		failures, err := s.recentFailures(ctx, nii)
		if err != nil {
			return nil, err
		}
		if failures >= lockoutFailures {
			until := s.now().Add(lockoutDuration)
			if err := s.users.SetLock(ctx, user.ID, &until); err != nil {
				return nil, err
			}
			s.logger.Warn().Str("nii", nii).Int("failures", failures).Msg("account locked")
			return nil, errors.AccountLocked(lockoutDuration)
		}
		return nil, failErr
	}

	if err := s.audit.RecordLogin(ctx, nii, true, ip); err != nil {
		return nil, err
	}
	if user.LockedUntil != nil {
		if err := s.users.SetLock(ctx, user.ID, nil); err != nil {
			return nil, err
		}
	}

	return &LoginResult{
		Identity: token.Identity{
			UserID: user.ID,
			NII:    user.NII,
			Role:   user.Role,
			Year:   user.Year,
		},
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// Logout records the end of a session. Tokens are stateless, so
// invalidation is a client-side discard.
func (s *AuthService) Logout(ctx context.Context, nii string) {
	s.logger.Info().Str("nii", nii).Msg("logout")
}

// loginSystem handles the hard-coded operational accounts. They are never
// honoured in production, and the fallback admin only applies while no
// admin account exists in the store.
func (s *AuthService) loginSystem(ctx context.Context, nii, password, ip string) (*LoginResult, bool, error) {
	if s.environment == config.EnvProduction {
		return nil, false, nil
	}
	account, ok := systemAccounts[nii]
	if !ok {
		return nil, false, nil
	}

	if account.role == domain.RoleAdmin {
		hasAdmin, err := s.users.HasAdmin(ctx)
		if err != nil {
			return nil, true, err
		}
		if hasAdmin {
			return nil, false, nil
		}
	}

	if password != account.password {
		return nil, true, s.fail(ctx, nii, ip)
	}

	if err := s.audit.RecordLogin(ctx, nii, true, ip); err != nil {
		return nil, true, err
	}
	return &LoginResult{
		Identity: token.Identity{
			UserID: systemIDPrefix + nii,
			NII:    nii,
			Role:   account.role,
			Year:   account.year,
		},
	}, true, nil
}

func (s *AuthService) fail(ctx context.Context, nii, ip string) error {
	if err := s.audit.RecordLogin(ctx, nii, false, ip); err != nil {
		return err
	}
	return errors.InvalidCredentials()
}

// recentFailures counts the consecutive failures since the last
// successful login. Events arrive newest first; a success resets the
// count, so only the streak at the head of the history matters.
func (s *AuthService) recentFailures(ctx context.Context, nii string) (int, error) {
	results, err := s.audit.RecentLoginResults(ctx, nii, lockoutWindow)
	if err != nil {
		return 0, err
	}
	failures := 0
	for _, success := range results {
		if success {
			break
		}
		failures++
	}
	return failures, nil
}
