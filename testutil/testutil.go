// Package testutil opens throwaway databases and seeds course structure for tests.
package testutil

import (
	"encoding/json"
	"testing"

	"lms/auth"
	"lms/database"
	courseModels "lms/models/course"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB returns a migrated in-memory sqlite database private to t.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func Learner(userID, clientID uint) auth.Principal {
	return auth.Principal{UserID: userID, ClientID: clientID, Role: "user", Email: "learner@example.com"}
}

func Admin(userID, clientID uint) auth.Principal {
	return auth.Principal{UserID: userID, ClientID: clientID, Role: auth.RoleAdmin, Email: "admin@example.com"}
}

func SeedCourse(t *testing.T, db *gorm.DB, clientID uint, title string) courseModels.Course {
	t.Helper()
	c := courseModels.Course{ClientID: clientID, Title: title, Status: "ACTIVE", IsPublished: true}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func SeedModule(t *testing.T, db *gorm.DB, course courseModels.Course, title string, sortOrder int) courseModels.Module {
	t.Helper()
	m := courseModels.Module{ClientID: course.ClientID, CourseID: course.ID, Title: title, SortOrder: sortOrder}
	require.NoError(t, db.Create(&m).Error)
	return m
}

// SeedPackage creates a content package with the given settings.
func SeedPackage(t *testing.T, db *gorm.DB, clientID uint, typ string, cfg courseModels.PackageConfig) courseModels.ContentPackage {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	p := courseModels.ContentPackage{ClientID: clientID, ContentType: typ, Title: typ + " package", Config: datatypes.JSON(raw)}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// SeedItem places package packageID of type typ in module m as a required item.
func SeedItem(t *testing.T, db *gorm.DB, m courseModels.Module, typ string, packageID uint) courseModels.CourseModuleContent {
	t.Helper()
	return SeedItemRequired(t, db, m, typ, packageID, true)
}

func SeedItemRequired(t *testing.T, db *gorm.DB, m courseModels.Module, typ string, packageID uint, required bool) courseModels.CourseModuleContent {
	t.Helper()
	it := courseModels.CourseModuleContent{
		ClientID:    m.ClientID,
		CourseID:    m.CourseID,
		ModuleID:    m.ID,
		ContentType: typ,
		ContentID:   packageID,
		Title:       typ,
		IsRequired:  required,
	}
	require.NoError(t, db.Create(&it).Error)
	return it
}

func SeedPrerequisite(t *testing.T, db *gorm.DB, course courseModels.Course, typ string, packageID uint) courseModels.CoursePrerequisite {
	t.Helper()
	pre := courseModels.CoursePrerequisite{
		ClientID:         course.ClientID,
		CourseID:         course.ID,
		PrerequisiteID:   packageID,
		PrerequisiteType: typ,
		Title:            typ + " prerequisite",
		IsRequired:       true,
	}
	require.NoError(t, db.Create(&pre).Error)
	return pre
}

// Question is a compact question definition for SeedAssessment. Correct lists
// the indexes of the correct options.
type Question struct {
	Type        string
	Points      float64
	Options     []string
	Correct     []int
	CorrectText string
}

// SeedAssessment creates an assessment package with its questions. Option
// ids are available on the returned questions.
func SeedAssessment(t *testing.T, db *gorm.DB, clientID uint, passingScore float64, numAttempts int, questions ...Question) (courseModels.AssessmentPackage, []courseModels.AssessmentQuestion) {
	t.Helper()
	pkg := courseModels.AssessmentPackage{
		ClientID:     clientID,
		Title:        "quiz",
		PassingScore: passingScore,
		NumAttempts:  numAttempts,
	}
	require.NoError(t, db.Create(&pkg).Error)

	out := make([]courseModels.AssessmentQuestion, 0, len(questions))
	for i, q := range questions {
		row := courseModels.AssessmentQuestion{
			ClientID:     clientID,
			AssessmentID: pkg.ID,
			QuestionType: q.Type,
			Prompt:       "question",
			CorrectText:  q.CorrectText,
			Points:       q.Points,
			SortOrder:    i,
		}
		for j, text := range q.Options {
			correct := false
			for _, c := range q.Correct {
				if c == j {
					correct = true
				}
			}
			row.Options = append(row.Options, courseModels.AssessmentOption{OptionText: text, IsCorrect: correct, SortOrder: j})
		}
		require.NoError(t, db.Create(&row).Error)
		out = append(out, row)
	}
	return pkg, out
}

func Ptr[T any](v T) *T { return &v }
