package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "medleave/pkg/domain"
)

// CachedProvider is a Redis read-through cache in front of the enrollment
// source. A stale snapshot is acceptable within the TTL; a Redis outage
// degrades to direct lookups rather than failing the decision.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(studentID id.StudentID) string {
	return "enrollment:courses:" + studentID.String()
}

func (p *CachedProvider) CoursesForStudent(ctx context.Context, studentID id.StudentID) ([]id.CourseID, error) {
	key := cacheKey(studentID)

	cached, err := p.client.Get(ctx, key).Bytes()
	if err == nil {
		courses, decodeErr := decodeCourses(cached)
		if decodeErr == nil {
			return courses, nil
		}
		p.logger.WarnContext(ctx, "corrupt enrollment cache entry, refetching",
			"student_id", studentID,
			"error", decodeErr,
		)
	} else if !errors.Is(err, redis.Nil) {
		p.logger.WarnContext(ctx, "enrollment cache read failed, falling back to source",
			"student_id", studentID,
			"error", err,
		)
	}

	courses, err := p.inner.CoursesForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if encoded, encodeErr := encodeCourses(courses); encodeErr == nil {
		if setErr := p.client.Set(ctx, key, encoded, p.ttl).Err(); setErr != nil {
			p.logger.WarnContext(ctx, "enrollment cache write failed",
				"student_id", studentID,
				"error", setErr,
			)
		}
	}

	return courses, nil
}

// Invalidate drops the cached snapshot, forcing the next lookup to refetch.
func (p *CachedProvider) Invalidate(ctx context.Context, studentID id.StudentID) error {
	return p.client.Del(ctx, cacheKey(studentID)).Err()
}

func encodeCourses(courses []id.CourseID) ([]byte, error) {
	raw := make([]string, len(courses))
	for i, c := range courses {
		raw[i] = c.String()
	}
	return json.Marshal(raw)
}

func decodeCourses(data []byte) ([]id.CourseID, error) {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	courses := make([]id.CourseID, len(raw))
	for i, r := range raw {
		parsed, err := id.ParseCourseID(r)
		if err != nil {
			return nil, fmt.Errorf("decode cached course id: %w", err)
		}
		courses[i] = parsed
	}
	return courses, nil
}
