package enrollment

import (
	"context"
	"sync"

	id "medleave/pkg/domain"
)

// StaticProvider serves a fixed enrollment snapshot. Used in tests and local
// development.
type StaticProvider struct {
	mu      sync.RWMutex
	courses map[id.StudentID][]id.CourseID
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{courses: make(map[id.StudentID][]id.CourseID)}
}

// Enroll replaces the student's course list.
func (p *StaticProvider) Enroll(studentID id.StudentID, courses ...id.CourseID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.courses[studentID] = append([]id.CourseID{}, courses...)
}

func (p *StaticProvider) CoursesForStudent(_ context.Context, studentID id.StudentID) ([]id.CourseID, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]id.CourseID{}, p.courses[studentID]...), nil
}
