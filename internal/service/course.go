package service

import (
	"context"
	"fmt"

	"storefront-service/internal/store"
	"storefront-service/internal/util"
)

// ErrCourseNotFound is returned for unknown course ids
var ErrCourseNotFound = fmt.Errorf("course not found")

// ErrNotEntitled is returned when the identity has not purchased the course
var ErrNotEntitled = fmt.Errorf("course access requires a completed purchase")

// CourseModule is one lesson in a course. The catalog is static: courses are
// hard-coded lists of lessons, not managed content.
type CourseModule struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	VideoURL    string   `json:"video_url,omitempty"`
	Resources   []string `json:"resources,omitempty"`
	Completed   bool     `json:"completed"`
}

// courseCatalog maps course product ids to their lesson lists
var courseCatalog = map[string][]CourseModule{
	"theme-page-masterclass": {
		{ID: "1", Title: "Introduction to Faceless Theme Pages", Description: "Fundamentals of engaging faceless content.", Duration: "15 min"},
		{ID: "2", Title: "Niche Selection & Market Research", Description: "Identify profitable niches and understand your audience.", Duration: "25 min"},
		{ID: "3", Title: "Profile Setup & Optimization", Description: "Build a profile that converts visitors into followers.", Duration: "20 min"},
		{ID: "4", Title: "Content Creation Strategies", Description: "Create viral-worthy content that drives engagement.", Duration: "35 min"},
		{ID: "5", Title: "Growth & Engagement Tactics", Description: "Grow an audience with proven engagement tactics.", Duration: "30 min"},
		{ID: "6", Title: "Monetization Strategies", Description: "Turn a theme page into a revenue stream.", Duration: "40 min"},
	},
}

// CourseView is a course payload with per-lesson completion and progress
type CourseView struct {
	CourseID        string         `json:"course_id"`
	Modules         []CourseModule `json:"modules"`
	CompletedCount  int            `json:"completed_count"`
	ProgressPercent int            `json:"progress_percent"`
}

// CourseService serves purchase-gated course content with per-lesson
// completion tracking.
type CourseService struct {
	store       *store.Store
	entitlement *EntitlementService
}

// NewCourseService creates a new course service
func NewCourseService(st *store.Store, entitlement *EntitlementService) *CourseService {
	return &CourseService{store: st, entitlement: entitlement}
}

// GetCourse returns the course modules with the identity's completion state.
// Access requires a completed purchase of the course product.
func (s *CourseService) GetCourse(ctx context.Context, identity Identity, courseID string) (*CourseView, error) {
	ctx, span := util.StartSpan(ctx, "CourseService.GetCourse")
	defer span.End()

	catalog, ok := courseCatalog[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}

	hasAccess, _, err := s.entitlement.HasAccess(ctx, identity, courseID)
	if err != nil {
		return nil, err
	}
	if !hasAccess {
		return nil, ErrNotEntitled
	}

	completed := map[string]bool{}
	if identity.UserID != nil {
		rows, err := s.store.ListCourseProgress(ctx, *identity.UserID, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load course progress: %w", err)
		}
		for _, row := range rows {
			if row.Completed {
				completed[row.LessonID] = true
			}
		}
	}

	view := &CourseView{CourseID: courseID, Modules: make([]CourseModule, len(catalog))}
	copy(view.Modules, catalog)
	for i := range view.Modules {
		if completed[view.Modules[i].ID] {
			view.Modules[i].Completed = true
			view.CompletedCount++
		}
	}
	if len(view.Modules) > 0 {
		view.ProgressPercent = view.CompletedCount * 100 / len(view.Modules)
	}
	return view, nil
}

// CompleteLesson marks a lesson completed for the user
func (s *CourseService) CompleteLesson(ctx context.Context, userID, courseID, lessonID string) error {
	if !lessonExists(courseID, lessonID) {
		return ErrCourseNotFound
	}
	return s.store.UpsertCourseProgress(ctx, userID, courseID, lessonID)
}

// UncompleteLesson removes a lesson completion mark
func (s *CourseService) UncompleteLesson(ctx context.Context, userID, courseID, lessonID string) error {
	if !lessonExists(courseID, lessonID) {
		return ErrCourseNotFound
	}
	return s.store.DeleteCourseProgress(ctx, userID, courseID, lessonID)
}

func lessonExists(courseID, lessonID string) bool {
	for _, m := range courseCatalog[courseID] {
		if m.ID == lessonID {
			return true
		}
	}
	return false
}
