package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	c, err = New("http://api.local/v1/")
	require.NoError(t, err)
	assert.Equal(t, "http://api.local/v1/teachers/", c.endpoint("/teachers/", nil))
}

func TestListTeachers_SendsPaging(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teachers/", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("skip"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, 200, []map[string]any{
			{"id": 1, "name": "Alice", "subject": "Math", "grade": "7", "bunny_library_id": 11},
		})
	}))

	got, err := c.ListTeachers(context.Background(), 10, 5)
	require.NoError(t, err)
	want := []Teacher{{ID: 1, Name: "Alice", Subject: "Math", Grade: "7", BunnyLibraryID: 11}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("teachers mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Alice", got[0].Label())
	assert.Equal(t, "1", got[0].Value())
}

func TestListAllTeachers_PagesUntilShortPage(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		skip := r.URL.Query().Get("skip")
		switch skip {
		case "0":
			writeJSON(w, 200, []Teacher{{ID: 1}, {ID: 2}})
		case "2":
			writeJSON(w, 200, []Teacher{{ID: 3}})
		default:
			t.Errorf("unexpected skip %s", skip)
		}
	}))

	got, err := c.ListAllTeachers(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, calls)
}

func TestErrorDetailIsSurfaced(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]any{"detail": "Teacher not found"})
	}))

	_, err := c.GetTeacher(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, "Teacher not found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))
}

func TestErrorDetailValidationList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, map[string]any{"detail": []map[string]any{
			{"msg": "field required"}, {"msg": "value is not a valid integer"},
		}})
	}))

	_, err := c.GetTeacher(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "field required; value is not a valid integer", err.Error())
}

func TestErrorWithoutJSONBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		_, _ = io.WriteString(w, "bad gateway")
	}))

	_, err := c.ListLibraryConfigs(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Detail)
}

func TestMalformedJSONIsWrapped(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "[{")
	}))

	_, err := c.ListTeachers(context.Background(), 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode /teachers/")
}

func TestDashboardData_ReportsObjectShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard-data/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "3", q.Get("teacher_id"))
		assert.Equal(t, "4", q.Get("month"))
		assert.Equal(t, "2024", q.Get("year"))
		assert.Equal(t, "quality,operations", q.Get("report_types"))
		_, _ = io.WriteString(w, `{
			"teacher_name": "Alice", "month": 4, "year": 2024,
			"monthly_stats": {"video_views": 120, "bandwidth_gb": 1.5},
			"reports": {
				"quality": {"score": 8.5, "summary": "Good", "uploaded_at": "2024-05-01T10:00:00.123456"},
				"operations": {"on_schedule": true, "attitude_summary": null, "uploaded_at": "2024-05-02T09:00:00"}
			}
		}`)
	}))

	got, err := c.DashboardData(context.Background(), 3, Period{Year: 2024, Month: 4},
		[]ReportType{ReportQuality, ReportOperations})
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.TeacherName)
	require.NotNil(t, got.MonthlyStats)
	assert.Equal(t, 120, *got.MonthlyStats.VideoViews)
	require.Len(t, got.Quality, 1)
	assert.Equal(t, 8.5, *got.Quality[0].Score)
	assert.Equal(t, 2024, got.Quality[0].UploadedAt.Year())
	assert.Empty(t, got.Student)
	require.Len(t, got.Operations, 1)
	assert.True(t, *got.Operations[0].OnSchedule)
	assert.Nil(t, got.Operations[0].AttitudeSummary)
}

func TestDashboardData_ListShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"monthly_stats": null,
			"quality_reports": [],
			"student_reports": [{"score": 4.2, "summary": "ok", "uploaded_at": "2024-05-01 08:00:00"}],
			"operations_reports": []
		}`)
	}))

	got, err := c.DashboardData(context.Background(), 1, Period{Year: 2024, Month: 5}, nil)
	require.NoError(t, err)
	assert.Nil(t, got.MonthlyStats)
	require.Len(t, got.Student, 1)
	assert.Equal(t, 4.2, *got.Student[0].Score)
}

func TestUploadReport_Multipart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload-student-report/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("teacher_id"))
		assert.Equal(t, "2", r.FormValue("month"))
		assert.Equal(t, "2025", r.FormValue("year"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "report.xlsx", hdr.Filename)
		assert.Equal(t, "payload", string(body))
		writeJSON(w, 200, UploadResult{Success: true, Message: "Uploaded", TeacherID: 7, Month: 2, Year: 2025, ReportType: "student"})
	}))

	res, err := c.UploadReport(context.Background(), Upload{
		Type:      ReportStudent,
		TeacherID: 7,
		Period:    Period{Year: 2025, Month: 2},
		FileName:  "/tmp/report.xlsx",
		File:      strings.NewReader("payload"),
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestUploadReport_RejectsBadInput(t *testing.T) {
	c, err := New("http://unused.invalid")
	require.NoError(t, err)

	_, err = c.UploadReport(context.Background(), Upload{Type: "finance", Period: Period{Year: 2024, Month: 1}})
	assert.ErrorContains(t, err, "unknown report type")

	_, err = c.UploadReport(context.Background(), Upload{Type: ReportQuality, Period: Period{Year: 2024, Month: 13}})
	assert.ErrorContains(t, err, "invalid period")
}

func TestUploadReport_DetailError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, map[string]any{"detail": "Error processing Excel file: KeyError"})
	}))
	_, err := c.UploadReport(context.Background(), Upload{
		Type: ReportQuality, TeacherID: 1, Period: Period{Year: 2024, Month: 1},
		FileName: "q.xlsx", File: strings.NewReader("x"),
	})
	assert.EqualError(t, err, "Error processing Excel file: KeyError")
}

func TestUpdateLibraryConfig_SendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/library-configs/42", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"is_active": false}, body)
		writeJSON(w, 200, map[string]any{
			"id": 1, "library_id": 42, "library_name": "Lib", "stream_api_key": nil,
			"is_active": false, "created_at": "2024-01-01T00:00:00", "updated_at": "2024-01-02T00:00:00",
		})
	}))

	inactive := false
	got, err := c.UpdateLibraryConfig(context.Background(), 42, LibraryConfigUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.False(t, got.HasKey())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got.UpdatedAt.Time)
}

func TestBunnyLibraries_MixedShapes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[5, {"Id": 6, "Name": "Six"}, {"id": 7, "name": "Seven", "video_views": 3}, {"name": "no id"}, "junk"]`)
	}))

	got, err := c.BunnyLibraries(context.Background())
	require.NoError(t, err)
	want := []BunnyLibrary{{ID: 5}, {ID: 6, Name: "Six"}, {ID: 7, Name: "Seven", VideoViews: 3}}
	assert.Equal(t, want, got)
}

func TestLiveLibraryConfigs_FiltersStale(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library-configs/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []map[string]any{
			{"library_id": 1, "library_name": "A", "is_active": true},
			{"library_id": 2, "library_name": "Stale", "is_active": true},
			{"library_id": 3, "library_name": "C", "is_active": false},
		})
	})
	mux.HandleFunc("/bunny-libraries/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []map[string]any{{"id": 3}, {"id": 1}})
	})
	c := newTestClient(t, mux)

	got, err := c.LiveLibraryConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].LibraryID)
	assert.Equal(t, 3, got[1].LibraryID)
}

func TestLiveLibraryConfigs_FallsBackWhenBunnyDown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library-configs/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []map[string]any{{"library_id": 1, "library_name": "A"}})
	})
	mux.HandleFunc("/bunny-libraries/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, map[string]any{"detail": "bunny down"})
	})
	c := newTestClient(t, mux)

	got, err := c.LiveLibraryConfigs(context.Background())
	assert.ErrorContains(t, err, "bunny down")
	assert.Len(t, got, 1)
}

func TestSyncAndUpsert(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library-configs/sync-from-bunny/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, 200, SyncResult{Message: "Sync complete: created 2, updated 1", Created: 2, Updated: 1})
	})
	mux.HandleFunc("/teachers/upsert-from-bunny/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, UpsertTeachersResult{Success: true, TotalLibraries: 3, Created: 1, Unchanged: 2})
	})
	c := newTestClient(t, mux)

	sync, err := c.SyncLibraryConfigs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sync.Created)
	assert.Equal(t, 1, sync.Updated)

	up, err := c.UpsertTeachersFromBunny(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, up.TotalLibraries)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret123" {
			writeJSON(w, 401, map[string]any{"detail": "Invalid credentials"})
			return
		}
		writeJSON(w, 200, LoginResult{Success: true, UserID: 4, Email: req.Email, AllowedPages: []string{"dashboard"}})
	}))

	res, err := c.Login(context.Background(), "a@b.c", "secret123")
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard"}, res.AllowedPages)

	_, err = c.Login(context.Background(), "a@b.c", "nope")
	assert.True(t, IsUnauthorized(err))
}

func TestTeacherReportsAndHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/teachers/2/reports", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"month": 1, "year": 2024, "video_views": 10, "quality_score": null, "operations_on_schedule": false}]`)
	})
	mux.HandleFunc("/upload-history/2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id": 1, "teacher_name": "Bob", "report_type": "quality", "month": 1, "year": 2024, "uploaded_at": "2024-02-01T00:00:00"}]`)
	})
	mux.HandleFunc("/teachers/2/monthly-stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id": 1, "teacher_id": 2, "month": 1, "year": 2024, "video_views": 10, "created_at": "2024-02-01T00:00:00", "updated_at": "2024-02-01T00:00:00"}]`)
	})
	c := newTestClient(t, mux)

	reports, err := c.TeacherReports(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Nil(t, reports[0].QualityScore)
	assert.Equal(t, Period{Year: 2024, Month: 1}, reports[0].Period())

	hist, err := c.UploadHistory(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, ReportQuality, hist[0].ReportType)

	stats, err := c.TeacherMonthlyStats(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 10, *stats[0].VideoViews)
}
