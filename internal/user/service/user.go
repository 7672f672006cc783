package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/internal/user/repository"
	"github.com/rancho/rancho-backend/pkg/config"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// CreateInput holds the fields an admin supplies when creating a user
type CreateInput struct {
	NII      string `json:"nii" validate:"required"`
	NI       string `json:"ni"`
	FullName string `json:"full_name" validate:"required"`
	Year     int    `json:"year" validate:"min=0,max=8"`
	Role     string `json:"role"`
	Password string `json:"password"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// UpdateInput holds the admin-editable fields of a user
type UpdateInput struct {
	NII      string `json:"nii" validate:"required"`
	NI       string `json:"ni"`
	FullName string `json:"full_name" validate:"required"`
	Year     int    `json:"year" validate:"min=0,max=8"`
	Role     string `json:"role" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Active   bool   `json:"active"`
}

// ImportResult reports the outcome of one bulk import
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// UserService implements account management
type UserService struct {
	repo      *repository.UserRepository
	audit     *auditrepo.AuditRepository
	promotion config.PromotionConfig
	logger    *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(repo *repository.UserRepository, audit *auditrepo.AuditRepository, promotion config.PromotionConfig, log *logger.Logger) *UserService {
	return &UserService{
		repo:      repo,
		audit:     audit,
		promotion: promotion,
		logger:    log,
	}
}

// Create creates a user. An empty password defaults to the NII with a
// forced change on first login.
func (s *UserService) Create(ctx context.Context, actor string, input CreateInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if !domain.ValidRole(role) {
		return nil, errors.BadInput("unknown role")
	}

	password := input.Password
	mustChange := false
	if password == "" {
		password = input.NII
		mustChange = true
	}

	hash, err := domain.HashPassword(password)
	if err != nil {
		return nil, errors.Storage(err)
	}

	user := &domain.User{
		NII:                strings.TrimSpace(input.NII),
		NI:                 strings.TrimSpace(input.NI),
		FullName:           strings.TrimSpace(input.FullName),
		Year:               input.Year,
		Role:               role,
		PasswordHash:       hash,
		MustChangePassword: mustChange,
		Email:              input.Email,
		Phone:              input.Phone,
		Active:             true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "user.create", user.NII)
	return user, nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists users with filters
func (s *UserService) List(ctx context.Context, params repository.ListParams) ([]*domain.User, int64, error) {
	return s.repo.List(ctx, params)
}

// SearchByName finds users by full-text match on the name
func (s *UserService) SearchByName(ctx context.Context, query string) ([]*domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.BadInput("empty search query")
	}
	return s.repo.SearchByName(ctx, query)
}

// Update applies admin edits to a user
func (s *UserService) Update(ctx context.Context, actor, id string, input UpdateInput) (*domain.User, error) {
	if !domain.ValidRole(input.Role) {
		return nil, errors.BadInput("unknown role")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.NII = strings.TrimSpace(input.NII)
	user.NI = strings.TrimSpace(input.NI)
	user.FullName = strings.TrimSpace(input.FullName)
	user.Year = input.Year
	user.Role = input.Role
	user.Email = input.Email
	user.Phone = input.Phone
	user.Active = input.Active

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "user.update", user.NII)
	return user, nil
}

// Delete removes a user and their dependent rows
func (s *UserService) Delete(ctx context.Context, actor, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recordAudit(ctx, actor, "user.delete", user.NII)
	return nil
}

// ResetPassword sets the password to the user's NII and forces a change
func (s *UserService) ResetPassword(ctx context.Context, actor, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := domain.HashPassword(user.NII)
	if err != nil {
		return errors.Storage(err)
	}
	if err := s.repo.SetPassword(ctx, id, hash, true); err != nil {
		return err
	}

	s.recordAudit(ctx, actor, "user.reset_password", user.NII)
	return nil
}

// ChangeOwnPassword verifies the current password and replaces it,
// clearing the forced-change flag.
func (s *UserService) ChangeOwnPassword(ctx context.Context, id, current, next string) error {
	if len(next) < 6 {
		return errors.BadInput("password must have at least 6 characters")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.VerifyPassword(current, user.PasswordHash) {
		return errors.InvalidCredentials()
	}

	hash, err := domain.HashPassword(next)
	if err != nil {
		return errors.Storage(err)
	}
	return s.repo.SetPassword(ctx, id, hash, false)
}

// UpdateOwnContacts updates the caller's email and phone
func (s *UserService) UpdateOwnContacts(ctx context.Context, id, email, phone string) error {
	return s.repo.UpdateContacts(ctx, id, email, phone)
}

// ImportCSV bulk-creates users from comma-separated rows
// `NII, NI, full_name, year [, role] [, password]`. Rows whose first field
// is a header marker are skipped, as are NIIs that already exist.
func (s *UserService) ImportCSV(ctx context.Context, actor string, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{}
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(record) == 0 {
			continue
		}

		first := strings.ToUpper(strings.TrimSpace(record[0]))
		if first == "" {
			continue
		}
		if first == "NII" || first == "#" || first == "ID" || first == "NUM" {
			continue
		}

		if len(record) < 4 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: expected at least 4 fields, got %d", line, len(record)))
			continue
		}

		nii := strings.TrimSpace(record[0])
		ni := strings.TrimSpace(record[1])
		fullName := strings.TrimSpace(record[2])
		year, err := strconv.Atoi(strings.TrimSpace(record[3]))
		if err != nil || year < 0 || year > 8 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid year %q", line, record[3]))
			continue
		}

		role := domain.RoleStudent
		if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
			role = strings.TrimSpace(record[4])
			if !domain.ValidRole(role) {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: unknown role %q", line, role))
				continue
			}
		}

		password := nii
		mustChange := true
		if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
			password = strings.TrimSpace(record[5])
			mustChange = false
		}

		if existing, err := s.repo.GetByNII(ctx, nii); err == nil && existing != nil {
			result.Skipped++
			continue
		} else if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}

		hash, err := domain.HashPassword(password)
		if err != nil {
			return nil, errors.Storage(err)
		}

		user := &domain.User{
			NII:                nii,
			NI:                 ni,
			FullName:           fullName,
			Year:               year,
			Role:               role,
			PasswordHash:       hash,
			MustChangePassword: mustChange,
			Active:             true,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Created++
	}

	s.recordAudit(ctx, actor, "user.import",
		fmt.Sprintf("created=%d skipped=%d errors=%d", result.Created, result.Skipped, len(result.Errors)))
	s.logger.Info().Int("created", result.Created).Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).Msg("user import finished")

	return result, nil
}

// Promote advances every active student one academic step: years 1-5 move
// up one, year 6 concludes, and the foundation/complementary courses move
// to their configured destinations.
func (s *UserService) Promote(ctx context.Context, actor string) (int64, error) {
	mapping := map[int]int{
		1: 2,
		2: 3,
		3: 4,
		4: 5,
		5: 6,
		6: domain.YearConcluded,
		domain.YearFoundation:    s.promotion.FoundationTo,
		domain.YearComplementary: s.promotion.ComplementaryTo,
	}

	promoted, err := s.repo.Promote(ctx, mapping)
	if err != nil {
		return 0, err
	}

	s.recordAudit(ctx, actor, "user.promote", fmt.Sprintf("promoted=%d", promoted))
	s.logger.Info().Int64("promoted", promoted).Msg("year promotion applied")
	return promoted, nil
}

func (s *UserService) recordAudit(ctx context.Context, actor, action, detail string) {
	if err := s.audit.RecordAdmin(ctx, actor, action, detail); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("audit record failed")
	}
}
