package service

import (
	"testing"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	apperrors "github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type criteriaEnv struct {
	store    *fakeCriteriaStore
	service  *CriteriaService
	fixtures *testutil.FixtureFactory
}

func newCriteriaEnv(t *testing.T) *criteriaEnv {
	t.Helper()
	store := newFakeCriteriaStore()
	return &criteriaEnv{
		store:    store,
		service:  NewCriteriaService(store, testLogger()),
		fixtures: testutil.NewFixtureFactory(),
	}
}

func TestCriteria_SeedDefaults(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.SystemContext()

	require.NoError(t, env.service.SeedDefaults(ctx))

	criteria, err := env.service.ListCriteria(ctx)
	require.NoError(t, err)
	assert.Len(t, criteria, 5)

	balance, err := env.service.WeightBalance(ctx)
	require.NoError(t, err)
	assert.True(t, balance.Balanced)
	assert.InDelta(t, 100.0, balance.TotalWeight, 0.001)

	bands, err := env.service.ListLevelBands(ctx)
	require.NoError(t, err)
	require.Len(t, bands, 4)
	assert.Equal(t, "Associate", bands[0].Name)
	assert.Equal(t, "Expert", bands[3].Name)
	assert.Nil(t, bands[3].MaxYears)
}

func TestCriteria_SeedDefaults_LeavesConfiguredInstallAlone(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.SystemContext()

	custom := &domain.Criterion{Name: "Custom", Category: domain.CategoryEducation, Weight: 50, Active: true}
	require.NoError(t, env.store.UpsertCriterion(ctx, custom))

	require.NoError(t, env.service.SeedDefaults(ctx))

	criteria, err := env.service.ListCriteria(ctx)
	require.NoError(t, err)
	require.Len(t, criteria, 1)
	assert.Equal(t, "Custom", criteria[0].Name)
}

func TestCriteria_SaveCriterion(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())

	c := &domain.Criterion{Name: "Peer review", Category: domain.CategoryResearch, Weight: 20, Active: true}
	require.NoError(t, env.service.SaveCriterion(ctx, c))
	assert.NotEmpty(t, c.ID)

	got, err := env.service.GetCriterion(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Peer review", got.Name)
}

func TestCriteria_SaveCriterion_Validation(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())

	err := env.service.SaveCriterion(ctx, &domain.Criterion{Category: domain.CategoryResearch, Weight: 20})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	err = env.service.SaveCriterion(ctx, &domain.Criterion{Name: "x", Category: "charisma", Weight: 20})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	err = env.service.SaveCriterion(ctx, &domain.Criterion{Name: "x", Category: domain.CategoryResearch, Weight: 120})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	// only the criteria capability may change the configuration
	err = env.service.SaveCriterion(testutil.Context(env.fixtures.Registrar()), &domain.Criterion{
		Name: "x", Category: domain.CategoryResearch, Weight: 20,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCriteria_WeightBalance_Unbalanced(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())

	require.NoError(t, env.service.SaveCriterion(ctx, &domain.Criterion{
		Name: "Degree", Category: domain.CategoryEducation, Weight: 30, Active: true,
	}))
	require.NoError(t, env.service.SaveCriterion(ctx, &domain.Criterion{
		Name: "Experience", Category: domain.CategoryExperience, Weight: 40, Active: true,
	}))
	// inactive weights are ignored
	require.NoError(t, env.service.SaveCriterion(ctx, &domain.Criterion{
		Name: "Disabled", Category: domain.CategoryProjects, Weight: 50, Active: false,
	}))

	balance, err := env.service.WeightBalance(ctx)
	require.NoError(t, err)
	assert.False(t, balance.Balanced)
	assert.InDelta(t, 70.0, balance.TotalWeight, 0.001)
	assert.InDelta(t, 30.0, balance.Remaining, 0.001)
	assert.Zero(t, balance.Excess)
}

func TestCriteria_ActiveCriteria(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())

	require.NoError(t, env.service.SaveCriterion(ctx, &domain.Criterion{
		Name: "Active one", Category: domain.CategoryEducation, Weight: 25, Active: true,
	}))
	require.NoError(t, env.service.SaveCriterion(ctx, &domain.Criterion{
		Name: "Inactive one", Category: domain.CategoryResearch, Weight: 10, Active: false,
	}))

	active, err := env.service.ActiveCriteria(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Active one", active[0].Name)
}

func TestCriteria_SaveLevelBand_OverlapRejected(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())
	require.NoError(t, env.service.SeedDefaults(testutil.SystemContext()))

	err := env.service.SaveLevelBand(ctx, &domain.LevelBand{
		Name: "Overlapping", MinYears: 4, MaxYears: intPtr(7),
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestCriteria_SaveLevelBand_UpdateSameBandAllowed(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())
	require.NoError(t, env.service.SeedDefaults(testutil.SystemContext()))

	bands, err := env.service.ListLevelBands(ctx)
	require.NoError(t, err)

	// renaming a band in place must not conflict with itself
	first := bands[0]
	first.Name = "Junior"
	require.NoError(t, env.service.SaveLevelBand(ctx, first))
}

func TestCriteria_SaveLevelBand_Validation(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())

	err := env.service.SaveLevelBand(ctx, &domain.LevelBand{MinYears: 0})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	err = env.service.SaveLevelBand(ctx, &domain.LevelBand{Name: "Bad", MinYears: -1})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	err = env.service.SaveLevelBand(ctx, &domain.LevelBand{Name: "Bad", MinYears: 5, MaxYears: intPtr(3)})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestCriteria_LevelForYears(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.SystemContext()
	require.NoError(t, env.service.SeedDefaults(ctx))

	cases := []struct {
		years float64
		want  string
	}{
		{0, "Associate"},
		{2.9, "Associate"}, // max 2 covers fractional years up to 3
		{3, "Professional"},
		{5.5, "Professional"},
		{6, "Advanced"},
		{8.99, "Advanced"},
		{9, "Expert"},
		{40, "Expert"},
	}
	for _, tc := range cases {
		band, err := env.service.LevelForYears(ctx, tc.years)
		require.NoError(t, err, "years=%v", tc.years)
		assert.Equal(t, tc.want, band.Name, "years=%v", tc.years)
	}
}

func TestCriteria_LevelForYears_ConfigurationGap(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())

	// a band ladder with a hole between 3 and 5 years
	require.NoError(t, env.store.UpsertLevelBand(ctx, &domain.LevelBand{Name: "Entry", MinYears: 0, MaxYears: intPtr(2)}))
	require.NoError(t, env.store.UpsertLevelBand(ctx, &domain.LevelBand{Name: "Senior", MinYears: 5}))

	_, err := env.service.LevelForYears(ctx, 4)
	require.ErrorIs(t, err, apperrors.ErrNoMatchingBand)
}

func TestCriteria_LevelAtLeast(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.SystemContext()
	require.NoError(t, env.service.SeedDefaults(ctx))

	ok, err := env.service.LevelAtLeast(ctx, "Advanced", "Professional")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.service.LevelAtLeast(ctx, "Professional", "Professional")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.service.LevelAtLeast(ctx, "Associate", "Expert")
	require.NoError(t, err)
	assert.False(t, ok)

	// an unknown held level is simply below everything
	ok, err = env.service.LevelAtLeast(ctx, "Unknown", "Professional")
	require.NoError(t, err)
	assert.False(t, ok)

	// an unknown required level is an operator error
	_, err = env.service.LevelAtLeast(ctx, "Advanced", "Galactic")
	assert.ErrorIs(t, err, apperrors.ErrInternal)
}

func TestCriteria_RemoveCriterion(t *testing.T) {
	env := newCriteriaEnv(t)
	ctx := testutil.Context(env.fixtures.Admin())

	c := &domain.Criterion{Name: "Temp", Category: domain.CategoryProjects, Weight: 10, Active: true}
	require.NoError(t, env.service.SaveCriterion(ctx, c))
	require.NoError(t, env.service.RemoveCriterion(ctx, c.ID))

	_, err := env.service.GetCriterion(ctx, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = env.service.RemoveCriterion(testutil.Context(env.fixtures.Reviewer()), c.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
