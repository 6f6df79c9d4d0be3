package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vnkhanh/e-learning-backend/config"
	"github.com/vnkhanh/e-learning-backend/models"
)

// NewDB returns a migrated, isolated in-memory SQLite database. A single
// connection is used so transactions serialize like a row lock would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedLesson creates a course -> module -> lesson chain and returns all three.
func SeedLesson(t *testing.T, db *gorm.DB, content string) (models.Course, models.Module, models.Lesson) {
	t.Helper()

	course := models.Course{Title: "Occupational Safety"}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course, SeedModule(t, db, course.ID), SeedLessonIn(t, db, course.ID, content)
}

func SeedModule(t *testing.T, db *gorm.DB, courseID uuid.UUID) models.Module {
	t.Helper()

	var mod models.Module
	if err := db.Where("course_id = ?", courseID).First(&mod).Error; err == nil {
		return mod
	}
	mod = models.Module{CourseID: courseID, Title: "Module 1"}
	if err := db.Create(&mod).Error; err != nil {
		t.Fatalf("create module: %v", err)
	}
	return mod
}

// SeedLessonIn adds a lesson to the course's first module. content is
// stored as a JSON string; pass "" for a lesson with no content.
func SeedLessonIn(t *testing.T, db *gorm.DB, courseID uuid.UUID, content string) models.Lesson {
	t.Helper()

	mod := SeedModule(t, db, courseID)
	lesson := models.Lesson{ModuleID: mod.ID, Title: "Lesson"}
	if content != "" {
		lesson.Content = JSONString(content)
	}
	if err := db.Create(&lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	return lesson
}
