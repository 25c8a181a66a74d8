package progress_test

import (
	"context"
	"fmt"
	"testing"

	"lms/apperr"
	courseModels "lms/models/course"
	"lms/services/progress"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const clientID = 7

type fixture struct {
	db     *gorm.DB
	course courseModels.Course
	module courseModels.Module
	reg    *progress.Registry
}

func setup(t *testing.T) fixture {
	db := testutil.DB(t)
	course := testutil.SeedCourse(t, db, clientID, "Go basics")
	return fixture{
		db:     db,
		course: course,
		module: testutil.SeedModule(t, db, course, "Intro", 1),
		reg:    progress.NewRegistry(),
	}
}

// item seeds a package of typ in the fixture module and resolves it for user 1.
func (f fixture) item(t *testing.T, typ progress.ContentType, cfg courseModels.PackageConfig) (progress.ProgressStore, progress.Target) {
	t.Helper()
	pkg := testutil.SeedPackage(t, f.db, clientID, string(typ), cfg)
	it := testutil.SeedItem(t, f.db, f.module, string(typ), pkg.ID)
	target, err := progress.ResolveTarget(context.Background(), f.db, testutil.Learner(1, clientID), typ, f.course.ID, progress.ModuleContext(it.ID))
	require.NoError(t, err)
	store, err := f.reg.Store(typ)
	require.NoError(t, err)
	return store, target
}

func TestVideo_CompletesOnceAtThreshold(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store, target := f.item(t, progress.Video, courseModels.PackageConfig{CompletionThreshold: 90})

	out, err := store.Update(ctx, f.db, target, progress.Metrics{WatchedPercentage: testutil.Ptr(50.0), TimeSpent: 30})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)
	assert.Equal(t, courseModels.StatusInProgress, out.Row.Base().Status)

	out, err = store.Update(ctx, f.db, target, progress.Metrics{WatchedPercentage: testutil.Ptr(92.0), TimeSpent: 30})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)
	first := out.Row.Base().CompletedAt
	require.NotNil(t, first)

	out, err = store.Update(ctx, f.db, target, progress.Metrics{WatchedPercentage: testutil.Ptr(100.0)})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete, "a second report over the threshold must not complete again")

	// a lower report never lowers the high-water mark or reopens the row
	out, err = store.Update(ctx, f.db, target, progress.Metrics{WatchedPercentage: testutil.Ptr(10.0)})
	require.NoError(t, err)
	row := out.Row.(*courseModels.VideoProgress)
	assert.Equal(t, 100.0, row.WatchedPercentage)
	assert.True(t, row.IsCompleted)
	assert.Equal(t, first.Unix(), row.CompletedAt.Unix())
	assert.Equal(t, 60, row.TimeSpent)
}

func TestVideo_DefaultThresholdIsFullWatch(t *testing.T) {
	f := setup(t)
	store, target := f.item(t, progress.Video, courseModels.PackageConfig{})

	out, err := store.Update(context.Background(), f.db, target, progress.Metrics{WatchedPercentage: testutil.Ptr(99.0)})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)

	out, err = store.Update(context.Background(), f.db, target, progress.Metrics{WatchedPercentage: testutil.Ptr(140.0)})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)
	assert.Equal(t, 100.0, out.Row.(*courseModels.VideoProgress).WatchedPercentage)
}

func TestDocument_DistinctPagesDriveCompletion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store, target := f.item(t, progress.Document, courseModels.PackageConfig{TotalPages: 4})

	out, err := store.Update(ctx, f.db, target, progress.Metrics{PagesViewed: []int{1, 2, 2, 9}})
	require.NoError(t, err)
	row := out.Row.(*courseModels.DocumentProgress)
	assert.False(t, out.BecameComplete)
	assert.Equal(t, 50.0, row.ViewedPercentage)
	assert.JSONEq(t, `[1,2]`, string(row.PagesViewed))

	out, err = store.Update(ctx, f.db, target, progress.Metrics{CurrentPage: testutil.Ptr(3), PagesViewed: []int{4}})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)
	assert.Equal(t, 3, out.Row.(*courseModels.DocumentProgress).CurrentPage)
}

func TestImage_CompletesOnFirstView(t *testing.T) {
	f := setup(t)
	store, target := f.item(t, progress.Image, courseModels.PackageConfig{})

	out, err := store.Update(context.Background(), f.db, target, progress.Metrics{})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)

	out, err = store.Update(context.Background(), f.db, target, progress.Metrics{})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)
	assert.Equal(t, 2, out.Row.(*courseModels.ImageProgress).ViewCount)
}

func TestExternal_NeedsExplicitCompletion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store, target := f.item(t, progress.External, courseModels.PackageConfig{})

	out, err := store.Update(ctx, f.db, target, progress.Metrics{Visit: true, TimeSpent: 600})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)
	assert.Equal(t, 1, out.Row.(*courseModels.ExternalProgress).VisitCount)

	out, err = store.MarkComplete(ctx, f.db, target)
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)

	out, err = store.MarkComplete(ctx, f.db, target)
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)
}

func TestExternal_MinTimeCompletes(t *testing.T) {
	f := setup(t)
	store, target := f.item(t, progress.External, courseModels.PackageConfig{MinTimeSeconds: 60})

	out, err := store.Update(context.Background(), f.db, target, progress.Metrics{TimeSpent: 45})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)

	out, err = store.Update(context.Background(), f.db, target, progress.Metrics{TimeSpent: 20})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)
}

func TestInteractive_ReportedCompletion(t *testing.T) {
	f := setup(t)
	store, target := f.item(t, progress.Interactive, courseModels.PackageConfig{})

	out, err := store.Update(context.Background(), f.db, target, progress.Metrics{
		CompletionPercentage: testutil.Ptr(40.0),
		SuspendData:          []byte(`{"slide":4}`),
	})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)

	out, err = store.Update(context.Background(), f.db, target, progress.Metrics{IsCompleted: testutil.Ptr(true), Score: testutil.Ptr(8.5)})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)
	row := out.Row.(*courseModels.InteractiveProgress)
	assert.Equal(t, 100.0, row.CompletionPercentage)
	assert.JSONEq(t, `{"slide":4}`, string(row.SuspendData))
}

func TestScorm_TerminalStatusSticks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store, target := f.item(t, progress.Scorm, courseModels.PackageConfig{})

	out, err := store.Update(ctx, f.db, target, progress.Metrics{LessonStatus: testutil.Ptr("incomplete")})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)

	out, err = store.Update(ctx, f.db, target, progress.Metrics{LessonStatus: testutil.Ptr("Passed")})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)

	out, err = store.Update(ctx, f.db, target, progress.Metrics{LessonStatus: testutil.Ptr("incomplete")})
	require.NoError(t, err)
	row := out.Row.(*courseModels.ScormProgress)
	assert.Equal(t, "passed", row.LessonStatus)
	assert.True(t, row.IsCompleted)
}

func TestActivity_SubmissionCompletesAndTypesStaySeparate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	survey, surveyTarget := f.item(t, progress.Survey, courseModels.PackageConfig{})
	feedback, _ := f.item(t, progress.Feedback, courseModels.PackageConfig{})

	out, err := survey.Update(ctx, f.db, surveyTarget, progress.Metrics{})
	require.NoError(t, err)
	assert.False(t, out.BecameComplete)

	out, err = survey.Update(ctx, f.db, surveyTarget, progress.Metrics{Submitted: true})
	require.NoError(t, err)
	assert.True(t, out.BecameComplete)

	done, err := survey.CompletedContexts(ctx, f.db, surveyTarget.Scope, courseModels.ContextModule)
	require.NoError(t, err)
	assert.True(t, done[surveyTarget.Ref.ID])

	done, err = feedback.CompletedContexts(ctx, f.db, surveyTarget.Scope, courseModels.ContextModule)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestGetOrCreate_StartsNotStartedAndIsStable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store, target := f.item(t, progress.Audio, courseModels.PackageConfig{})

	_, err := store.Get(ctx, f.db, target)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	a, err := store.GetOrCreate(ctx, f.db, target)
	require.NoError(t, err)
	b, err := store.GetOrCreate(ctx, f.db, target)
	require.NoError(t, err)
	assert.Equal(t, a.Base().ID, b.Base().ID)
	assert.Equal(t, courseModels.StatusNotStarted, b.Base().Status)
	assert.Equal(t, fmt.Sprintf("module:%d", target.Ref.ID), b.Base().ContextKey)

	var n int64
	require.NoError(t, f.db.Model(&courseModels.AudioProgress{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestProgressRows_AreScopedPerUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	store, target := f.item(t, progress.Image, courseModels.PackageConfig{})

	_, err := store.Update(ctx, f.db, target, progress.Metrics{})
	require.NoError(t, err)

	other := target
	other.UserID = 2
	row, err := store.GetOrCreate(ctx, f.db, other)
	require.NoError(t, err)
	assert.False(t, row.Base().IsCompleted)
}

func TestResolveTarget_TenantAndTypeChecks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pkg := testutil.SeedPackage(t, f.db, clientID, string(progress.Video), courseModels.PackageConfig{})
	it := testutil.SeedItem(t, f.db, f.module, string(progress.Video), pkg.ID)
	ref := progress.ModuleContext(it.ID)

	_, err := progress.ResolveTarget(ctx, f.db, testutil.Learner(1, clientID+1), progress.Video, f.course.ID, ref)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "another tenant must not see the item")

	_, err = progress.ResolveTarget(ctx, f.db, testutil.Learner(1, clientID), progress.Document, f.course.ID, ref)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = progress.ResolveTarget(ctx, f.db, testutil.Learner(0, clientID), progress.Video, f.course.ID, ref)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	target, err := progress.ResolveTarget(ctx, f.db, testutil.Learner(1, clientID), progress.Video, f.course.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, pkg.ID, target.PackageID)
}

func TestProgressBase_NeedsExactlyOneContext(t *testing.T) {
	db := testutil.DB(t)
	row := courseModels.ImageProgress{ProgressBase: courseModels.ProgressBase{ClientID: clientID, UserID: 1, CourseID: 1, PackageID: 1}}
	assert.ErrorIs(t, db.Create(&row).Error, courseModels.ErrProgressContext)

	id := uint(3)
	row.ContentID, row.PrerequisiteID = &id, &id
	assert.ErrorIs(t, db.Create(&row).Error, courseModels.ErrProgressContext)
}
