package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/internal/user/repository"
	"github.com/rancho/rancho-backend/pkg/config"
	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/testutil"
)

func newService(t *testing.T) (*UserService, *database.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	svc := NewUserService(
		repository.NewUserRepository(db),
		auditrepo.NewAuditRepository(db),
		config.PromotionConfig{FoundationTo: 1, ComplementaryTo: 0},
		testutil.NewLogger(),
	)
	return svc, db
}

func TestCreate_DefaultsPasswordToNII(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "admin", CreateInput{
		NII:      "123456",
		FullName: "Ana Silva",
		Year:     2,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleStudent, user.Role)
	assert.True(t, user.MustChangePassword)
	assert.True(t, domain.VerifyPassword("123456", user.PasswordHash))
}

func TestCreate_DuplicateNII(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin", CreateInput{NII: "123456", FullName: "Ana Silva", Year: 2})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "admin", CreateInput{NII: "123456", FullName: "Outra Pessoa", Year: 3})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestChangeOwnPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "admin", CreateInput{NII: "123456", FullName: "Ana Silva", Year: 2})
	require.NoError(t, err)

	err = svc.ChangeOwnPassword(ctx, user.ID, "errada", "novasenha")
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))

	require.NoError(t, svc.ChangeOwnPassword(ctx, user.ID, "123456", "novasenha"))

	updated, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, updated.MustChangePassword)
	assert.True(t, domain.VerifyPassword("novasenha", updated.PasswordHash))
}

func TestImportCSV(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "admin", CreateInput{NII: "111111", FullName: "Já Existe", Year: 1})
	require.NoError(t, err)

	input := strings.Join([]string{
		"NII,NI,Nome,Ano",
		"111111,10,Já Existe,1",
		"222222,11,Bruno Costa,3",
		"333333,12,Carla Nunes,7,kitchen",
		"444444,13,Duarte Melo,bad-year",
		"555555,14,Eva Pinto,2,student,ownpass",
	}, "\n")

	result, err := svc.ImportCSV(ctx, "admin", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "invalid year")

	bruno, err := svc.repo.GetByNII(ctx, "222222")
	require.NoError(t, err)
	assert.True(t, bruno.MustChangePassword)
	assert.True(t, domain.VerifyPassword("222222", bruno.PasswordHash))

	carla, err := svc.repo.GetByNII(ctx, "333333")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleKitchen, carla.Role)

	eva, err := svc.repo.GetByNII(ctx, "555555")
	require.NoError(t, err)
	assert.False(t, eva.MustChangePassword)
	assert.True(t, domain.VerifyPassword("ownpass", eva.PasswordHash))
}

func TestPromote_MappingDoesNotCascade(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	first := testutil.SeedUser(t, db, "100001", "Primeiro Ano", 1, domain.RoleStudent)
	sixth := testutil.SeedUser(t, db, "100006", "Sexto Ano", 6, domain.RoleStudent)
	foundation := testutil.SeedUser(t, db, "100007", "Curso Base", 7, domain.RoleStudent)
	staff := testutil.SeedUser(t, db, "900001", "Oficial Dia", 3, domain.RoleDutyOfficer)

	promoted, err := svc.Promote(ctx, "admin")
	require.NoError(t, err)
	assert.EqualValues(t, 3, promoted)

	years := map[string]int{}
	for _, id := range []string{first, sixth, foundation, staff} {
		u, err := svc.Get(ctx, id)
		require.NoError(t, err)
		years[id] = u.Year
	}

	assert.Equal(t, 2, years[first])
	assert.Equal(t, domain.YearConcluded, years[sixth])
	assert.Equal(t, 1, years[foundation])
	assert.Equal(t, 3, years[staff])
}

func TestSearchByName(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	testutil.SeedUser(t, db, "100001", "Ana Beatriz Silva", 1, domain.RoleStudent)
	testutil.SeedUser(t, db, "100002", "Bruno Costa", 2, domain.RoleStudent)

	found, err := svc.SearchByName(ctx, "silva")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100001", found[0].NII)

	_, err = svc.SearchByName(ctx, "  ")
	assert.True(t, errors.Is(err, errors.ErrBadInput))
}
