package models

import (
	"strings"
	"time"
)

// Level is a school level.
type Level string

const (
	LevelSD  Level = "SD"
	LevelSMP Level = "SMP"
	LevelSMA Level = "SMA"
	LevelSMK Level = "SMK"
)

// Levels lists every level in grouping order.
var Levels = []Level{LevelSD, LevelSMP, LevelSMA, LevelSMK}

var gradeRanges = map[Level][2]int{
	LevelSD:  {1, 6},
	LevelSMP: {7, 9},
	LevelSMA: {10, 12},
	LevelSMK: {10, 12},
}

// Valid reports whether the level is known.
func (l Level) Valid() bool {
	_, ok := gradeRanges[l]
	return ok
}

// GradeRange returns the first and last grade taught at the level.
func (l Level) GradeRange() (int, int) {
	r := gradeRanges[l]
	return r[0], r[1]
}

// AcceptsGrade reports whether grade belongs to the level.
func (l Level) AcceptsGrade(grade int) bool {
	r, ok := gradeRanges[l]
	return ok && grade >= r[0] && grade <= r[1]
}

// Objective is the learning objective.
type Objective string

const (
	ObjectiveUnderstanding Objective = "UNDERSTANDING"
	ObjectiveApplication   Objective = "APPLICATION"
	ObjectiveAnalysis      Objective = "ANALYSIS"
	ObjectiveCreation      Objective = "CREATION"
)

// Valid reports whether the objective is known.
func (o Objective) Valid() bool {
	switch o {
	case ObjectiveUnderstanding, ObjectiveApplication, ObjectiveAnalysis, ObjectiveCreation:
		return true
	}
	return false
}

// Method is the teaching method.
type Method string

const (
	MethodDiscovery         Method = "DISCOVERY"
	MethodProjectBased      Method = "PROJECT_BASED"
	MethodProblemBased      Method = "PROBLEM_BASED"
	MethodCooperative       Method = "COOPERATIVE"
	MethodDirectInstruction Method = "DIRECT_INSTRUCTION"
)

// Valid reports whether the method is known.
func (m Method) Valid() bool {
	switch m {
	case MethodDiscovery, MethodProjectBased, MethodProblemBased, MethodCooperative, MethodDirectInstruction:
		return true
	}
	return false
}

// Lesson is a persisted lesson plan.
type Lesson struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"-"`
	Subject         string    `db:"subject" json:"subject"`
	Level           Level     `db:"level" json:"level"`
	Grade           int       `db:"grade" json:"grade"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Objective       Objective `db:"objective" json:"objective"`
	Method          Method    `db:"method" json:"method"`
	Content         string    `db:"content" json:"content"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	LastModified    time.Time `db:"last_modified" json:"last_modified"`
}

// Summary projects the lesson without its content.
func (l *Lesson) Summary() LessonSummary {
	return LessonSummary{
		ID:              l.ID,
		UserID:          l.UserID,
		Subject:         l.Subject,
		Level:           l.Level,
		Grade:           l.Grade,
		DurationMinutes: l.DurationMinutes,
		Objective:       l.Objective,
		Method:          l.Method,
		CreatedAt:       l.CreatedAt,
		LastModified:    l.LastModified,
	}
}

// LessonSummary is the list projection of a lesson.
type LessonSummary struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"-"`
	Subject         string    `db:"subject" json:"subject"`
	Level           Level     `db:"level" json:"level"`
	Grade           int       `db:"grade" json:"grade"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Objective       Objective `db:"objective" json:"objective"`
	Method          Method    `db:"method" json:"method"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	LastModified    time.Time `db:"last_modified" json:"last_modified"`
}

// LessonSort orders a summary list.
type LessonSort string

const (
	SortModifiedDesc LessonSort = "modified_desc"
	SortModifiedAsc  LessonSort = "modified_asc"
	SortSubjectAsc   LessonSort = "subject_asc"
)

// LessonFilter narrows a summary list.
type LessonFilter struct {
	Search string     `form:"search"`
	Level  Level      `form:"level"`
	Grade  int        `form:"grade"`
	Sort   LessonSort `form:"sort"`
}

// Normalize trims input and drops settings that do not apply: a grade only counts under a level that accepts it.
func (f LessonFilter) Normalize() LessonFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Level = Level(strings.ToUpper(strings.TrimSpace(string(f.Level))))
	if !f.Level.Valid() {
		f.Level = ""
	}
	if f.Level == "" || !f.Level.AcceptsGrade(f.Grade) {
		f.Grade = 0
	}
	switch f.Sort {
	case SortModifiedAsc, SortSubjectAsc:
	default:
		f.Sort = SortModifiedDesc
	}
	return f
}
