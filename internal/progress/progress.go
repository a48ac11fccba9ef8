// Package progress computes read-only lesson progress summaries for a course.
// It never writes progress; the caller supplies a lookup of stored records.
package progress

import (
	"github.com/terra-clan/academy-engine/internal/models"
)

// Status is the derived state of a lesson for one student
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in_progress"
	StatusNotStarted Status = "not_started"
)

// Lookup maps lesson ID to its stored progress record
type Lookup map[string]models.ProgressRecord

// NewLookup indexes progress records by lesson ID
func NewLookup(records []*models.ProgressRecord) Lookup {
	lookup := make(Lookup, len(records))
	for _, rec := range records {
		if rec != nil {
			lookup[rec.LessonID] = *rec
		}
	}
	return lookup
}

// LessonProgress is the display state of one lesson
type LessonProgress struct {
	LessonID        string  `json:"lesson_id"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug,omitempty"`
	DurationMinutes float64 `json:"duration_minutes"`
	WatchTime       float64 `json:"watch_time"`
	Status          Status  `json:"status"`
	// Percent is clamped to [0, 100] for progress bars
	Percent float64 `json:"percent"`
	// RawPercent may exceed 100 when watch time overshoots stale duration metadata
	RawPercent float64 `json:"raw_percent"`
}

// Summary holds the aggregate progress of a course
type Summary struct {
	Lessons              []LessonProgress `json:"lessons"`
	LessonCount          int              `json:"lesson_count"`
	CompletedCount       int              `json:"completed_count"`
	InProgressCount      int              `json:"in_progress_count"`
	TotalDurationMinutes float64          `json:"total_duration_minutes"`
	CompletionRatio      float64          `json:"completion_ratio"`
	CompletionPercent    float64          `json:"completion_percent"`
}

// StatusOf derives the lesson status. Completed takes precedence over any watch time.
func StatusOf(rec *models.ProgressRecord) Status {
	switch {
	case rec == nil:
		return StatusNotStarted
	case rec.Completed:
		return StatusCompleted
	case rec.WatchTime > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// WatchedPercent returns watch time as a percentage of the duration, unclamped.
// Zero or negative inputs yield 0.
func WatchedPercent(watchSeconds, durationMinutes float64) float64 {
	if durationMinutes <= 0 || watchSeconds <= 0 {
		return 0
	}
	return watchSeconds / 60 / durationMinutes * 100
}

// Clamp bounds a percentage to [0, 100]
func Clamp(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// Ratio returns part/total, or 0 when total is 0
func Ratio(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// Summarize computes the progress of lessons in the given order.
// Lessons missing from lookup are not started.
func Summarize(lessons []models.Lesson, lookup Lookup) Summary {
	summary := Summary{
		Lessons:     make([]LessonProgress, 0, len(lessons)),
		LessonCount: len(lessons),
	}

	for _, lesson := range lessons {
		duration := lesson.Duration()
		summary.TotalDurationMinutes += duration

		lp := LessonProgress{
			LessonID:        lesson.ID,
			Title:           lesson.Title,
			Slug:            lesson.Slug,
			DurationMinutes: duration,
			Status:          StatusNotStarted,
		}

		if rec, ok := lookup[lesson.ID]; ok {
			lp.Status = StatusOf(&rec)
			lp.WatchTime = rec.WatchTime

			switch lp.Status {
			case StatusCompleted:
				summary.CompletedCount++
				lp.RawPercent = 100
			case StatusInProgress:
				summary.InProgressCount++
				lp.RawPercent = WatchedPercent(rec.WatchTime, duration)
			}
			lp.Percent = Clamp(lp.RawPercent)
		}

		summary.Lessons = append(summary.Lessons, lp)
	}

	summary.CompletionRatio = Ratio(summary.CompletedCount, summary.LessonCount)
	summary.CompletionPercent = summary.CompletionRatio * 100

	return summary
}

// Overshoots returns lessons whose raw watched percentage exceeds 100
func (s Summary) Overshoots() []LessonProgress {
	var out []LessonProgress
	for _, lp := range s.Lessons {
		if lp.RawPercent > 100 {
			out = append(out, lp)
		}
	}
	return out
}
