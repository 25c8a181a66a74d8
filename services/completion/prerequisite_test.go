package completion

import (
	"context"
	"testing"
	"time"

	courseModels "lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertPrerequisiteCompletion_CompletesExistingRow(t *testing.T) {
	db := testutil.DB(t)
	course := testutil.SeedCourse(t, db, 4, "C")
	pkg := testutil.SeedPackage(t, db, 4, courseModels.TypeImage, courseModels.PackageConfig{})
	pre := testutil.SeedPrerequisite(t, db, course, courseModels.TypeImage, pkg.ID)

	// another request created the row between our lookup and insert
	existing := courseModels.PrerequisiteCompletion{ClientID: 4, UserID: 1, CourseID: course.ID, PrerequisiteID: pre.ID}
	require.NoError(t, db.Create(&existing).Error)

	now := time.Now()
	row := courseModels.PrerequisiteCompletion{
		ClientID: 4, UserID: 1, CourseID: course.ID, PrerequisiteID: pre.ID,
		PackageID: pkg.ID, PrerequisiteType: courseModels.TypeImage, IsCompleted: true, CompletedAt: &now,
	}
	require.NoError(t, upsertPrerequisiteCompletion(db, &row, now))

	var got courseModels.PrerequisiteCompletion
	require.NoError(t, db.First(&got, existing.ID).Error)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, now, *got.CompletedAt, time.Second)

	var n int64
	require.NoError(t, db.Model(&courseModels.PrerequisiteCompletion{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestMarkPrerequisiteComplete_ReportsFirstCompletionOnly(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, db, 4, "C")
	pkg := testutil.SeedPackage(t, db, 4, courseModels.TypeImage, courseModels.PackageConfig{})
	pre := testutil.SeedPrerequisite(t, db, course, courseModels.TypeImage, pkg.ID)

	first, err := MarkPrerequisiteComplete(ctx, db, 1, 4, pre, time.Now())
	require.NoError(t, err)
	assert.True(t, first)

	again, err := MarkPrerequisiteComplete(ctx, db, 1, 4, pre, time.Now())
	require.NoError(t, err)
	assert.False(t, again)
}
