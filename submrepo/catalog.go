package submrepo

import (
	"context"
	"fmt"

	"github.com/profound-academy/backend/docstore"
	"github.com/profound-academy/backend/submdomain"
)

type Courses struct{}

func (Courses) Ref(courseID string) docstore.Ref {
	return docstore.Collection("courses").Doc(courseID)
}

func (c Courses) Get(ctx context.Context, rd docstore.Reader, courseID string) (*submdomain.Course, error) {
	doc, err := rd.Get(ctx, c.Ref(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	var course submdomain.Course
	if err := doc.DataTo(&course); err != nil {
		return nil, err
	}
	course.ID = courseID
	return &course, nil
}

func (c Courses) Put(ctx context.Context, store docstore.Store, course submdomain.Course) error {
	fields := docstore.Fields{"title": course.Title}
	if !course.FreezeAt.IsZero() {
		fields["freezeAt"] = course.FreezeAt
	}
	return store.Set(ctx, c.Ref(course.ID), fields, docstore.Merge())
}

type Exercises struct{}

func (Exercises) Ref(courseID, exerciseID string) docstore.Ref {
	return Courses{}.Ref(courseID).Collection("exercises").Doc(exerciseID)
}

func (e Exercises) Get(ctx context.Context, rd docstore.Reader, courseID, exerciseID string) (*submdomain.Exercise, error) {
	doc, err := rd.Get(ctx, e.Ref(courseID, exerciseID))
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	var ex submdomain.Exercise
	if err := doc.DataTo(&ex); err != nil {
		return nil, err
	}
	ex.ID = exerciseID
	return &ex, nil
}

func (e Exercises) Put(ctx context.Context, store docstore.Store, courseID string, ex submdomain.Exercise) error {
	fields := docstore.Fields{
		"title": ex.Title,
		"order": ex.Order,
	}
	optional := map[string]float64{
		"memoryLimit":    ex.MemoryLimit,
		"timeLimit":      ex.TimeLimit,
		"outputLimit":    ex.OutputLimit,
		"floatPrecision": ex.FloatPrecision,
	}
	for k, v := range optional {
		if v != 0 {
			fields[k] = v
		}
	}
	if ex.ComparisonMode != "" {
		fields["comparisonMode"] = ex.ComparisonMode
	}
	return store.Set(ctx, e.Ref(courseID, ex.ID), fields, docstore.Merge())
}

type Profiles struct{}

func (Profiles) Ref(userID string) docstore.Ref {
	return docstore.Collection("users").Doc(userID)
}

func (p Profiles) Get(ctx context.Context, rd docstore.Reader, userID string) (*submdomain.Profile, error) {
	doc, err := rd.Get(ctx, p.Ref(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if !doc.Exists() {
		return nil, nil
	}
	var prof submdomain.Profile
	if err := doc.DataTo(&prof); err != nil {
		return nil, err
	}
	prof.ID = userID
	return &prof, nil
}

func (p Profiles) Merge(ctx context.Context, store docstore.Store, userID string, fields docstore.Fields) error {
	return store.Set(ctx, p.Ref(userID), fields, docstore.Merge())
}
