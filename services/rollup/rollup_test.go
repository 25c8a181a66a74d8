package rollup_test

import (
	"context"
	"testing"
	"time"

	courseModels "lms/models/course"
	"lms/services/progress"
	"lms/services/rollup"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const clientID = 9

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, rollup.Percentage(0, 0))
	assert.Equal(t, 33.0, rollup.Percentage(1, 3))
	assert.Equal(t, 67.0, rollup.Percentage(2, 3))
	assert.Equal(t, 100.0, rollup.Percentage(5, 5))

	assert.Equal(t, courseModels.StatusNotStarted, rollup.StatusFor(0, 0))
	assert.Equal(t, courseModels.StatusNotStarted, rollup.StatusFor(0, 3))
	assert.Equal(t, courseModels.StatusInProgress, rollup.StatusFor(1, 3))
	assert.Equal(t, courseModels.StatusCompleted, rollup.StatusFor(3, 3))

	// rounding never decides the status
	assert.Equal(t, 100.0, rollup.Percentage(199, 200))
	assert.Equal(t, courseModels.StatusInProgress, rollup.StatusFor(199, 200))
	assert.Equal(t, 0.0, rollup.Percentage(1, 201))
	assert.Equal(t, courseModels.StatusInProgress, rollup.StatusFor(1, 201))
}

// complete marks a module item done for user 1 through its store.
func complete(t *testing.T, db *gorm.DB, reg *progress.Registry, course courseModels.Course, item courseModels.CourseModuleContent) {
	t.Helper()
	typ := progress.ContentType(item.ContentType)
	target, err := progress.ResolveTarget(context.Background(), db, testutil.Learner(1, clientID), typ, course.ID, progress.ModuleContext(item.ID))
	require.NoError(t, err)
	store, err := reg.Store(typ)
	require.NoError(t, err)
	_, err = store.MarkComplete(context.Background(), db, target)
	require.NoError(t, err)
}

func TestCalculateCourseProgress_EmptyCourse(t *testing.T) {
	db := testutil.DB(t)
	svc := rollup.NewService(progress.NewRegistry())
	course := testutil.SeedCourse(t, db, clientID, "empty")

	sum, err := svc.CalculateCourseProgress(context.Background(), db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.Progress.CompletionPercentage)
	assert.Equal(t, courseModels.StatusNotStarted, sum.Progress.Status)
	assert.False(t, sum.JustCompleted)
}

func TestCalculateCourseProgress_FiveItems(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	reg := progress.NewRegistry()
	svc := rollup.NewService(reg)

	course := testutil.SeedCourse(t, db, clientID, "five")
	m1 := testutil.SeedModule(t, db, course, "First", 1)
	m2 := testutil.SeedModule(t, db, course, "Second", 2)
	var items []courseModels.CourseModuleContent
	for _, typ := range []string{courseModels.TypeImage, courseModels.TypeExternal, courseModels.TypeImage} {
		pkg := testutil.SeedPackage(t, db, clientID, typ, courseModels.PackageConfig{})
		items = append(items, testutil.SeedItem(t, db, m1, typ, pkg.ID))
	}
	for _, typ := range []string{courseModels.TypeSurvey, courseModels.TypeImage} {
		pkg := testutil.SeedPackage(t, db, clientID, typ, courseModels.PackageConfig{})
		items = append(items, testutil.SeedItem(t, db, m2, typ, pkg.ID))
	}
	// optional items never count
	optional := testutil.SeedPackage(t, db, clientID, courseModels.TypeImage, courseModels.PackageConfig{})
	testutil.SeedItemRequired(t, db, m2, courseModels.TypeImage, optional.ID, false)

	require.NoError(t, db.Create(&courseModels.Enrollment{ClientID: clientID, UserID: 1, CourseID: course.ID}).Error)

	sum, err := svc.CalculateCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.Progress.CompletionPercentage)
	assert.Equal(t, courseModels.StatusNotStarted, sum.Progress.Status)
	assert.Equal(t, 5, sum.Progress.TotalItems)
	require.NotNil(t, sum.Progress.CurrentContentID)
	assert.Equal(t, items[0].ID, *sum.Progress.CurrentContentID)

	for i, it := range items {
		complete(t, db, reg, course, it)
		sum, err = svc.CalculateCourseProgress(ctx, db, 1, course.ID, clientID)
		require.NoError(t, err)
		assert.Equal(t, rollup.Percentage(i+1, 5), sum.Progress.CompletionPercentage)
		assert.Equal(t, i == len(items)-1, sum.JustCompleted)
	}
	assert.Equal(t, 100.0, sum.Progress.CompletionPercentage)
	assert.Equal(t, courseModels.StatusCompleted, sum.Progress.Status)
	require.Len(t, sum.Modules, 2)
	assert.Equal(t, 3, sum.Modules[0].TotalContents)
	assert.Equal(t, 100.0, sum.Modules[1].Progress)

	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", 1, course.ID).First(&enrollment).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, enrollment.Status)
	assert.Equal(t, 5, enrollment.CompletedContents)
	assert.NotNil(t, enrollment.CompletedAt)

	// recomputing a finished course issues no second certificate
	sum, err = svc.CalculateCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.False(t, sum.JustCompleted)
	var certs int64
	require.NoError(t, db.Model(&courseModels.Certificate{}).Count(&certs).Error)
	assert.EqualValues(t, 1, certs)
}

func TestCalculateCourseProgress_PrerequisitesCount(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	reg := progress.NewRegistry()
	svc := rollup.NewService(reg)

	course := testutil.SeedCourse(t, db, clientID, "mixed")
	m := testutil.SeedModule(t, db, course, "M", 1)
	pkg := testutil.SeedPackage(t, db, clientID, courseModels.TypeImage, courseModels.PackageConfig{})
	item := testutil.SeedItem(t, db, m, courseModels.TypeImage, pkg.ID)
	testutil.SeedPrerequisite(t, db, course, courseModels.TypeImage, pkg.ID)
	doc := testutil.SeedPackage(t, db, clientID, courseModels.TypeDocument, courseModels.PackageConfig{})
	testutil.SeedPrerequisite(t, db, course, courseModels.TypeDocument, doc.ID)

	complete(t, db, reg, course, item)
	sum, err := svc.CalculateCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Progress.TotalItems)
	assert.Equal(t, 33.0, sum.Progress.CompletionPercentage)
	assert.Equal(t, 2, sum.Prerequisites.Total)
	assert.Equal(t, 0, sum.Prerequisites.Completed)

	// another tenant's rollup is untouched
	other, err := svc.GetCourseProgress(ctx, db, 1, course.ID, clientID+1)
	require.NoError(t, err)
	assert.Zero(t, other.ID)
	assert.Equal(t, courseModels.StatusNotStarted, other.Status)
}

func TestReconcileSince_RepairsStaleRollups(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	reg := progress.NewRegistry()
	svc := rollup.NewService(reg)

	course := testutil.SeedCourse(t, db, clientID, "stale")
	m := testutil.SeedModule(t, db, course, "M", 1)
	pkg := testutil.SeedPackage(t, db, clientID, courseModels.TypeImage, courseModels.PackageConfig{})
	item := testutil.SeedItem(t, db, m, courseModels.TypeImage, pkg.ID)

	// leaf completed without the cascade running; sqlite compares timestamps
	// as text, so stay in gorm's local clock
	since := time.Now().Add(-time.Minute)
	complete(t, db, reg, course, item)

	n, err := svc.ReconcileSince(ctx, db, since, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cp, err := svc.GetCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cp.CompletionPercentage)

	n, err = svc.ReconcileSince(ctx, db, time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCalculateCourseProgress_OneOpenItemOfMany(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	reg := progress.NewRegistry()
	svc := rollup.NewService(reg)

	course := testutil.SeedCourse(t, db, clientID, "long")
	m := testutil.SeedModule(t, db, course, "M", 1)
	pkg := testutil.SeedPackage(t, db, clientID, courseModels.TypeImage, courseModels.PackageConfig{})
	items := make([]courseModels.CourseModuleContent, 200)
	for i := range items {
		items[i] = testutil.SeedItem(t, db, m, courseModels.TypeImage, pkg.ID)
	}
	require.NoError(t, db.Create(&courseModels.Enrollment{ClientID: clientID, UserID: 1, CourseID: course.ID}).Error)

	for _, it := range items[:199] {
		complete(t, db, reg, course, it)
	}
	sum, err := svc.CalculateCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, sum.Progress.CompletionPercentage)
	assert.Equal(t, 199, sum.Progress.CompletedItems)
	assert.Equal(t, courseModels.StatusInProgress, sum.Progress.Status)
	assert.Nil(t, sum.Progress.CompletedAt)
	assert.False(t, sum.JustCompleted)
	require.NotNil(t, sum.Progress.CurrentContentID)
	assert.Equal(t, items[199].ID, *sum.Progress.CurrentContentID)

	var certs int64
	require.NoError(t, db.Model(&courseModels.Certificate{}).Count(&certs).Error)
	assert.Zero(t, certs)
	var enrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", 1, course.ID).First(&enrollment).Error)
	assert.Equal(t, courseModels.EnrollmentInProgress, enrollment.Status)

	complete(t, db, reg, course, items[199])
	sum, err = svc.CalculateCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.StatusCompleted, sum.Progress.Status)
	assert.True(t, sum.JustCompleted)
}

func TestCalculateCourseProgress_PrerequisiteLeafWithoutCompletionRow(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	reg := progress.NewRegistry()
	svc := rollup.NewService(reg)

	course := testutil.SeedCourse(t, db, clientID, "prereq only")
	pkg := testutil.SeedPackage(t, db, clientID, courseModels.TypeImage, courseModels.PackageConfig{})
	pre := testutil.SeedPrerequisite(t, db, course, courseModels.TypeImage, pkg.ID)

	// the leaf completes but the cascade that records the prerequisite never ran
	since := time.Now().Add(-time.Minute)
	target, err := progress.ResolveTarget(ctx, db, testutil.Learner(1, clientID), progress.Image, course.ID, progress.PrerequisiteContext(pre.ID))
	require.NoError(t, err)
	store, err := reg.Store(progress.Image)
	require.NoError(t, err)
	out, err := store.MarkComplete(ctx, db, target)
	require.NoError(t, err)
	require.True(t, out.BecameComplete)

	var n int64
	require.NoError(t, db.Model(&courseModels.PrerequisiteCompletion{}).Count(&n).Error)
	require.Zero(t, n)

	sum, err := svc.CalculateCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, sum.Progress.CompletionPercentage)
	assert.Equal(t, courseModels.StatusCompleted, sum.Progress.Status)
	assert.Equal(t, 1, sum.Prerequisites.Completed)

	// the reconcile sweep reaches the same answer from scratch
	require.NoError(t, db.Where("1 = 1").Delete(&courseModels.CourseProgress{}).Error)
	repaired, err := svc.ReconcileSince(ctx, db, since, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	cp, err := svc.GetCourseProgress(ctx, db, 1, course.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.StatusCompleted, cp.Status)
}
