package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"teachdash/internal/jsonutil"
)

// dashboardWire accepts both reply shapes: per-type lists, or the backend's
// "reports" object keyed by type with one entry each.
type dashboardWire struct {
	TeacherName       string                     `json:"teacher_name"`
	Month             int                        `json:"month"`
	Year              int                        `json:"year"`
	MonthlyStats      *DashboardStats            `json:"monthly_stats"`
	Reports           map[string]json.RawMessage `json:"reports"`
	QualityReports    []ScoreReport              `json:"quality_reports"`
	StudentReports    []ScoreReport              `json:"student_reports"`
	OperationsReports []OperationsReport         `json:"operations_reports"`
}

func decodeDashboard(data []byte) (DashboardData, error) {
	var w dashboardWire
	if err := jsonutil.UnmarshalWithContext(data, &w, "decode dashboard data"); err != nil {
		return DashboardData{}, err
	}
	out := DashboardData{
		TeacherName:  w.TeacherName,
		Month:        w.Month,
		Year:         w.Year,
		MonthlyStats: w.MonthlyStats,
		Quality:      w.QualityReports,
		Student:      w.StudentReports,
		Operations:   w.OperationsReports,
	}
	for kind, raw := range w.Reports {
		if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
			continue
		}
		what := "decode dashboard " + kind + " report"
		switch ReportType(kind) {
		case ReportQuality, ReportStudent:
			var r ScoreReport
			if err := jsonutil.UnmarshalWithContext(raw, &r, what); err != nil {
				return DashboardData{}, err
			}
			if kind == string(ReportQuality) {
				out.Quality = append(out.Quality, r)
			} else {
				out.Student = append(out.Student, r)
			}
		case ReportOperations:
			var r OperationsReport
			if err := jsonutil.UnmarshalWithContext(raw, &r, what); err != nil {
				return DashboardData{}, err
			}
			out.Operations = append(out.Operations, r)
		}
	}
	return out, nil
}

// DashboardData returns stats and the requested reports for one teacher and month.
func (c *Client) DashboardData(ctx context.Context, teacherID int, p Period, types []ReportType) (DashboardData, error) {
	if len(types) == 0 {
		types = AllReportTypes
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	q := url.Values{}
	q.Set("teacher_id", strconv.Itoa(teacherID))
	q.Set("month", strconv.Itoa(p.Month))
	q.Set("year", strconv.Itoa(p.Year))
	q.Set("report_types", strings.Join(names, ","))

	data, err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard-data/", query: q})
	if err != nil {
		return DashboardData{}, err
	}
	return decodeDashboard(data)
}

// UploadHistory returns the past report uploads of a teacher, newest first.
func (c *Client) UploadHistory(ctx context.Context, teacherID int) ([]UploadRecord, error) {
	var out []UploadRecord
	if err := c.getJSON(ctx, fmt.Sprintf("/upload-history/%d", teacherID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload describes one report file submission.
type Upload struct {
	Type      ReportType
	TeacherID int
	Period    Period
	FileName  string
	File      io.Reader
}

// UploadReport posts a report spreadsheet as multipart form data.
func (c *Client) UploadReport(ctx context.Context, u Upload) (UploadResult, error) {
	if _, err := ParseReportType(string(u.Type)); err != nil {
		return UploadResult{}, err
	}
	if !u.Period.Valid() {
		return UploadResult{}, fmt.Errorf("invalid period %s", u.Period)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"teacher_id", strconv.Itoa(u.TeacherID)},
		{"month", strconv.Itoa(u.Period.Month)},
		{"year", strconv.Itoa(u.Period.Year)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return UploadResult{}, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(u.FileName))
	if err != nil {
		return UploadResult{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, u.File); err != nil {
		return UploadResult{}, fmt.Errorf("copy %s: %w", u.FileName, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close multipart body: %w", err)
	}

	data, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        u.Type.UploadPath(),
		body:        &body,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return UploadResult{}, err
	}
	var out UploadResult
	if err := jsonutil.UnmarshalWithContext(data, &out, "decode upload result"); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// UploadReportFile opens path and uploads it.
func (c *Client) UploadReportFile(ctx context.Context, rt ReportType, teacherID int, p Period, path string) (UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open report file: %w", err)
	}
	defer f.Close()
	return c.UploadReport(ctx, Upload{Type: rt, TeacherID: teacherID, Period: p, FileName: path, File: f})
}
