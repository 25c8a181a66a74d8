package controllers

import (
	"context"
	"testing"
	"time"

	"lms/database"
	courseModels "lms/models/course"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateNumber(t *testing.T) {
	db := testutil.DB(t)
	prev := database.Database.Db
	database.Database.Db = db
	t.Cleanup(func() { database.Database.Db = prev })
	ctx := context.Background()

	assert.Empty(t, certificateNumber(ctx, 3, 1, 8))

	require.NoError(t, db.Create(&courseModels.Certificate{
		ClientID: 3, UserID: 1, CourseID: 8, CertificateNumber: "cert-8", IssuedAt: time.Now(),
	}).Error)
	assert.Equal(t, "cert-8", certificateNumber(ctx, 3, 1, 8))
	assert.Empty(t, certificateNumber(ctx, 4, 1, 8), "other tenant")

	require.NoError(t, db.Migrator().DropTable(&courseModels.Certificate{}))
	assert.Empty(t, certificateNumber(ctx, 3, 1, 8))
}
