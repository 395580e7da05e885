package api

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. The backend emits naive ISO-8601
// timestamps without a zone; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a time.Time that accepts the backend's zone-less format.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", b, err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unrecognized format", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.Format(time.RFC3339Nano))), nil
}

// Display formats t for tables, or "N/A" when unset.
func (t Timestamp) Display() string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04")
}

// Teacher is one teacher record.
type Teacher struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Subject        string `json:"subject,omitempty"`
	Grade          string `json:"grade,omitempty"`
	BunnyLibraryID int    `json:"bunny_library_id"`
}

// Label is the teacher name; used by the selection widget.
func (t Teacher) Label() string { return t.Name }

// Value is the teacher id as a string; used by the selection widget.
func (t Teacher) Value() string { return strconv.Itoa(t.ID) }

// MonthlyReport is one row of a teacher's report history.
type MonthlyReport struct {
	Month                     int      `json:"month"`
	Year                      int      `json:"year"`
	VideoViews                *int     `json:"video_views"`
	BandwidthGB               *float64 `json:"bandwidth_gb"`
	QualityScore              *float64 `json:"quality_score"`
	QualitySummary            *string  `json:"quality_summary,omitempty"`
	StudentFeedbackScore      *float64 `json:"student_feedback_score"`
	StudentFeedbackSummary    *string  `json:"student_feedback_summary,omitempty"`
	OperationsOnSchedule      *bool    `json:"operations_on_schedule"`
	OperationsAttitudeSummary *string  `json:"operations_attitude_summary"`
}

// Period returns the report's (year, month) key.
func (r MonthlyReport) Period() Period { return Period{Year: r.Year, Month: r.Month} }

// MonthlyStats are the Bunny video statistics for one teacher and month.
type MonthlyStats struct {
	ID                    int       `json:"id"`
	TeacherID             int       `json:"teacher_id"`
	Month                 int       `json:"month"`
	Year                  int       `json:"year"`
	VideoViews            *int      `json:"video_views"`
	BandwidthGB           *float64  `json:"bandwidth_gb"`
	TotalWatchTimeSeconds *int      `json:"total_watch_time_seconds"`
	CreatedAt             Timestamp `json:"created_at"`
	UpdatedAt             Timestamp `json:"updated_at"`
}

// Period is a (year, month) pair.
type Period struct {
	Year  int
	Month int
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Valid reports whether the month is 1-12 and the year is positive.
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

// ReportType names one of the uploadable report kinds.
type ReportType string

const (
	ReportQuality    ReportType = "quality"
	ReportStudent    ReportType = "student"
	ReportOperations ReportType = "operations"
)

// AllReportTypes lists every report type in display order.
var AllReportTypes = []ReportType{ReportQuality, ReportStudent, ReportOperations}

// ParseReportType accepts a report type name, ignoring case and spaces.
func ParseReportType(s string) (ReportType, error) {
	switch rt := ReportType(strings.ToLower(strings.TrimSpace(s))); rt {
	case ReportQuality, ReportStudent, ReportOperations:
		return rt, nil
	}
	return "", fmt.Errorf("unknown report type %q (want quality, student or operations)", s)
}

// Title is the human label for the report type.
func (r ReportType) Title() string {
	switch r {
	case ReportQuality:
		return "Quality"
	case ReportStudent:
		return "Student feedback"
	case ReportOperations:
		return "Operations"
	}
	return string(r)
}

// UploadPath is the backend endpoint for uploading this report type.
func (r ReportType) UploadPath() string {
	return "/upload-" + string(r) + "-report/"
}

// ScoreReport is a quality or student report entry on the dashboard.
type ScoreReport struct {
	Score      *float64  `json:"score"`
	Summary    *string   `json:"summary"`
	UploadedAt Timestamp `json:"uploaded_at"`
}

// OperationsReport is an operations report entry on the dashboard.
type OperationsReport struct {
	OnSchedule      *bool     `json:"on_schedule"`
	AttitudeSummary *string   `json:"attitude_summary"`
	UploadedAt      Timestamp `json:"uploaded_at"`
}

// DashboardStats is the monthly video summary shown on the dashboard.
type DashboardStats struct {
	VideoViews  *int     `json:"video_views"`
	BandwidthGB *float64 `json:"bandwidth_gb"`
}

// DashboardData is the aggregate for one teacher and month.
type DashboardData struct {
	TeacherName  string
	Month        int
	Year         int
	MonthlyStats *DashboardStats
	Quality      []ScoreReport
	Student      []ScoreReport
	Operations   []OperationsReport
}

// UploadRecord is one entry of a teacher's upload history.
type UploadRecord struct {
	ID          int        `json:"id"`
	TeacherName string     `json:"teacher_name"`
	ReportType  ReportType `json:"report_type"`
	Month       int        `json:"month"`
	Year        int        `json:"year"`
	UploadedAt  Timestamp  `json:"uploaded_at"`
}

// UploadResult is the backend reply to a report upload.
type UploadResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	TeacherID  int    `json:"teacher_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	ReportType string `json:"report_type"`
}

// LibraryConfig holds the API key and active flag for one video library.
type LibraryConfig struct {
	ID           int       `json:"id"`
	LibraryID    int       `json:"library_id"`
	LibraryName  string    `json:"library_name"`
	StreamAPIKey *string   `json:"stream_api_key"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// HasKey reports whether an API key is stored.
func (c LibraryConfig) HasKey() bool {
	return c.StreamAPIKey != nil && *c.StreamAPIKey != ""
}

// MaskedKey shows only the last four characters of the key.
func (c LibraryConfig) MaskedKey() string {
	if !c.HasKey() {
		return "not set"
	}
	k := *c.StreamAPIKey
	if len(k) <= 4 {
		return strings.Repeat("•", len(k))
	}
	return strings.Repeat("•", 8) + k[len(k)-4:]
}

// LibraryConfigUpdate is a partial update; nil fields are left unchanged.
type LibraryConfigUpdate struct {
	StreamAPIKey *string `json:"stream_api_key,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// Apply returns c with the update's fields set.
func (u LibraryConfigUpdate) Apply(c LibraryConfig) LibraryConfig {
	if u.StreamAPIKey != nil {
		key := *u.StreamAPIKey
		c.StreamAPIKey = &key
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	return c
}

// SyncResult is the reply of the library-config sync.
type SyncResult struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// BunnyLibrary is a live library reported by the video platform.
type BunnyLibrary struct {
	ID                    int
	Name                  string
	VideoViews            int
	TotalWatchTimeSeconds int
}

// UpsertResult is the per-library outcome of a teacher upsert.
type UpsertResult struct {
	BunnyLibraryID int    `json:"bunny_library_id"`
	Name           string `json:"name"`
	Action         string `json:"action"`
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

// UpsertTeachersResult is the reply of the teacher upsert from Bunny.
type UpsertTeachersResult struct {
	Success        bool           `json:"success"`
	TotalLibraries int            `json:"total_libraries"`
	Created        int            `json:"created"`
	Updated        int            `json:"updated"`
	Unchanged      int            `json:"unchanged"`
	Failed         int            `json:"failed"`
	Results        []UpsertResult `json:"results"`
}

// LoginResult is the reply to a successful login.
type LoginResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	UserID       int      `json:"user_id"`
	Email        string   `json:"email"`
	AllowedPages []string `json:"allowed_pages"`
}

// NewLibraryConfig creates a library configuration, or replaces the stored
// one for the same library.
type NewLibraryConfig struct {
	LibraryID    int     `json:"library_id"`
	LibraryName  string  `json:"library_name"`
	StreamAPIKey *string `json:"stream_api_key,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// StatsRequest selects libraries and a month for the historical stats calls.
// An empty LibraryIDs means every library the call applies to.
type StatsRequest struct {
	LibraryIDs []int `json:"library_ids,omitempty"`
	Month      int   `json:"month"`
	Year       int   `json:"year"`
}

// LibraryStatsStatus is the per-library outcome of a stats fetch or sync.
type LibraryStatsStatus struct {
	LibraryID   int    `json:"library_id"`
	LibraryName string `json:"library_name"`
	Status      string `json:"status"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
}

// Reason is the error when set, else the message.
func (s LibraryStatsStatus) Reason() string {
	if s.Error != "" {
		return s.Error
	}
	return s.Message
}

// BatchFetchResult is the reply of a historical stats fetch.
type BatchFetchResult struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message"`
	TotalLibraries int                  `json:"total_libraries"`
	Successful     int                  `json:"successful_fetches"`
	Failed         int                  `json:"failed_fetches"`
	Skipped        int                  `json:"skipped_fetches"`
	Results        []LibraryStatsStatus `json:"results"`
}

// FetchedIDs lists the libraries whose stats were stored.
func (r BatchFetchResult) FetchedIDs() []int {
	var ids []int
	for _, s := range r.Results {
		if s.Success {
			ids = append(ids, s.LibraryID)
		}
	}
	return ids
}

// HistorySyncResult is the reply of marking fetched stats as published.
type HistorySyncResult struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message"`
	TotalLibraries int                  `json:"total_libraries"`
	Synced         int                  `json:"synced_libraries"`
	Failed         int                  `json:"failed_syncs"`
	AlreadySynced  int                  `json:"already_synced"`
	Results        []LibraryStatsStatus `json:"results"`
}

// MonthlyViews is one month of stored library statistics.
type MonthlyViews struct {
	Month                 int       `json:"month"`
	Year                  int       `json:"year"`
	TotalViews            int       `json:"total_views"`
	TotalWatchTimeSeconds int       `json:"total_watch_time_seconds"`
	BandwidthGB           float64   `json:"bandwidth_gb"`
	FetchDate             Timestamp `json:"fetch_date"`
}

// Period is the month the numbers belong to.
func (m MonthlyViews) Period() Period { return Period{Year: m.Year, Month: m.Month} }

// LibraryHistory is a library with its stored monthly statistics.
type LibraryHistory struct {
	LibraryID   int            `json:"library_id"`
	LibraryName string         `json:"library_name"`
	HasStats    bool           `json:"has_stats"`
	MonthlyData []MonthlyViews `json:"monthly_data"`
	LastUpdated Timestamp      `json:"last_updated"`
}

// Latest returns the newest month of data.
func (h LibraryHistory) Latest() (MonthlyViews, bool) {
	if len(h.MonthlyData) == 0 {
		return MonthlyViews{}, false
	}
	latest := h.MonthlyData[0]
	for _, m := range h.MonthlyData[1:] {
		if latest.Period().Before(m.Period()) {
			latest = m
		}
	}
	return latest, true
}

// SyncedLibraryStats is one library whose views were copied into its
// teacher's monthly statistics.
type SyncedLibraryStats struct {
	LibraryID        int `json:"library_id"`
	Views            int `json:"views"`
	WatchTimeSeconds int `json:"watch_time_seconds"`
}

// LibraryStatsSyncResult is the reply of the teacher monthly stats sync.
// Libraries missing from Synced were skipped by the backend.
type LibraryStatsSyncResult struct {
	Message string               `json:"message"`
	Count   int                  `json:"count"`
	Synced  []SyncedLibraryStats `json:"synced_libraries"`
}

// Password length accepted by the backend for new users.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// User is a dashboard account.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	AllowedPages []string  `json:"allowed_pages"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// NewUser is the payload of user creation.
type NewUser struct {
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	AllowedPages []string `json:"allowed_pages"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

// Validate checks the fields the backend would reject.
func (u NewUser) Validate() error {
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("invalid email %q", u.Email)
	}
	return validatePassword(u.Password)
}

// UserUpdate is a partial update; nil fields are left unchanged. A non-nil
// empty AllowedPages removes every page.
type UserUpdate struct {
	Email        *string   `json:"email,omitempty"`
	Password     *string   `json:"password,omitempty"`
	AllowedPages *[]string `json:"allowed_pages,omitempty"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Password == nil && u.AllowedPages == nil && u.IsActive == nil
}

func validatePassword(p string) error {
	if n := len(p); n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("password must be %d to %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}
