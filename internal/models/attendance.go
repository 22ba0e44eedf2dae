package models

// DailyPresence counts marked lectures for one weekday.
type DailyPresence struct {
	Present int `json:"present"`
	Total   int `json:"total"`
}

// WeeklyPresence maps weekday short names (Mon..Fri) to presence counts.
type WeeklyPresence map[string]DailyPresence

// TeacherAttendance maps a week start date (YYYY-MM-DD, Monday) to that week.
type TeacherAttendance map[string]WeeklyPresence

// AttendanceBook is the persisted attendance of every teacher keyed by user id.
type AttendanceBook map[string]TeacherAttendance

// AttendanceChartPoint is one bar of the weekly chart.
type AttendanceChartPoint struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// AttendanceSummary is the weekly analytics shown on the teacher dashboard.
type AttendanceSummary struct {
	WeekStart string                 `json:"weekStart"`
	Chart     []AttendanceChartPoint `json:"chart"`
	Today     float64                `json:"today"`
	Change    float64                `json:"change"`
}
