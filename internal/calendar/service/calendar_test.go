package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancho/rancho-backend/internal/calendar/repository"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/testutil"
)

func newService(t *testing.T) *CalendarService {
	t.Helper()
	db := testutil.NewDB(t)
	return NewCalendarService(repository.NewCalendarRepository(db), 48, testutil.NewLogger())
}

func TestClassify_DefaultsFromWeekday(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	// 2026-03-07 is a Saturday, 2026-03-09 a Monday
	kind, err := svc.Classify(ctx, "2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, KindWeekend, kind)

	kind, err = svc.Classify(ctx, "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, KindNormal, kind)
}

func TestClassify_EntryOverridesWeekday(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetEntry(ctx, &repository.Entry{Date: "2026-03-09", Kind: KindHoliday}))

	kind, err := svc.Classify(ctx, "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, KindHoliday, kind)

	closed, err := svc.Closed(ctx, "2026-03-09")
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestClosed_WeekendServesMeals(t *testing.T) {
	svc := newService(t)

	closed, err := svc.Closed(context.Background(), "2026-03-07")
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestSetEntry_RejectsUnknownKind(t *testing.T) {
	svc := newService(t)

	err := svc.SetEntry(context.Background(), &repository.Entry{Date: "2026-03-09", Kind: "fiesta"})
	assert.True(t, errors.Is(err, errors.ErrBadInput))
}

func TestDeadlineFor(t *testing.T) {
	svc := newService(t)

	deadline, has, err := svc.DeadlineFor("2026-03-09")
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.Local), deadline)

	// zero hours disables the deadline entirely
	open := NewCalendarService(nil, 0, testutil.NewLogger())
	_, has, err = open.DeadlineFor("2026-03-09")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDeleteEntry_MissingIsNotFound(t *testing.T) {
	svc := newService(t)

	err := svc.DeleteEntry(context.Background(), "2026-03-09")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
