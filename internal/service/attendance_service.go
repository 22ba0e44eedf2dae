package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

const defaultLecturesPerDay = 5

var weekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri"}

type attendanceStore interface {
	Load(ctx context.Context) (models.AttendanceBook, error)
	Save(ctx context.Context, book models.AttendanceBook) error
}

// AttendanceService records teacher presence per lecture and summarises the week.
type AttendanceService struct {
	repo           attendanceStore
	notifier       NotificationSink
	lecturesPerDay int
	logger         *zap.Logger

	mu sync.Mutex
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceStore, notifier NotificationSink, lecturesPerDay int, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lecturesPerDay <= 0 {
		lecturesPerDay = defaultLecturesPerDay
	}
	return &AttendanceService{repo: repo, notifier: notifier, lecturesPerDay: lecturesPerDay, logger: logger}
}

// MarkPresence counts one attended lecture for the teacher on the day of now.
func (s *AttendanceService) MarkPresence(ctx context.Context, session *models.Session, now time.Time) (*models.DailyPresence, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !session.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can mark presence")
	}
	if isWeekend(now) {
		s.notify(ctx, session.ID, "It's the weekend!", "You can only mark presence on weekdays.", models.NotificationVariantDestructive)
		return nil, appErrors.Clone(appErrors.ErrValidation, "It's the weekend!")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.repo.Load(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}
	week := weekStart(now)
	day := now.Weekday().String()[:3]

	teacher := book[session.ID]
	if teacher == nil {
		teacher = models.TeacherAttendance{}
		book[session.ID] = teacher
	}
	days := teacher[week]
	if days == nil {
		days = models.WeeklyPresence{}
		teacher[week] = days
	}

	presence := days[day]
	if presence.Present >= s.lecturesPerDay {
		s.notify(ctx, session.ID, "Maximum Presence Marked", "You have already marked presence for all lectures today.", models.NotificationVariantDefault)
		return nil, appErrors.Clone(appErrors.ErrConflict, "Maximum presence marked")
	}
	presence.Present++
	presence.Total = s.lecturesPerDay
	days[day] = presence

	if err := s.repo.Save(ctx, book); err != nil {
		return nil, storeError(err, "failed to save attendance")
	}

	s.logger.Info("presence marked", zap.String("teacher_id", session.ID), zap.String("week", week), zap.String("day", day), zap.Int("present", presence.Present))
	s.notify(ctx, session.ID, "Presence Marked", fmt.Sprintf("You have marked your presence for one lecture on %s.", day), models.NotificationVariantDefault)
	return &presence, nil
}

// WeeklySummary builds the Mon-Fri attendance chart of the week containing now.
func (s *AttendanceService) WeeklySummary(ctx context.Context, session *models.Session, now time.Time) (*models.AttendanceSummary, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !session.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attendance analytics are available to teachers only")
	}

	book, err := s.repo.Load(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}
	week := weekStart(now)
	days := book[session.ID][week]

	summary := &models.AttendanceSummary{WeekStart: week, Chart: make([]models.AttendanceChartPoint, 0, len(weekdayNames))}
	for _, name := range weekdayNames {
		summary.Chart = append(summary.Chart, models.AttendanceChartPoint{Name: name, Total: round1(percentage(days[name]))})
	}

	today := percentage(days[now.Weekday().String()[:3]])
	yesterday := percentage(days[now.AddDate(0, 0, -1).Weekday().String()[:3]])
	if now.Weekday() == time.Monday {
		// Sunday belongs to the previous week.
		yesterday = 0
	}
	summary.Today = round1(today)
	switch {
	case yesterday > 0:
		summary.Change = round1(today - yesterday)
	case today > 0:
		summary.Change = 100
	}
	return summary, nil
}

func (s *AttendanceService) notify(ctx context.Context, userID, title, description string, variant models.NotificationVariant) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, models.Notification{Title: title, Description: description, Variant: variant})
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// weekStart returns the Monday of t's week as YYYY-MM-DD in t's location.
func weekStart(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format("2006-01-02")
}

func percentage(p models.DailyPresence) float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Present) / float64(p.Total) * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
