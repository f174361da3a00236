// Package enrollment supplies the student's current course list. The real
// source of truth is the academic system; this package holds the port, a
// static implementation for development, and a Redis read-through cache.
package enrollment

import (
	"context"

	id "medleave/pkg/domain"
)

// Provider returns the courses a student is currently enrolled in. The
// decision engine fans one delivery out per returned course.
type Provider interface {
	CoursesForStudent(ctx context.Context, studentID id.StudentID) ([]id.CourseID, error)
}
