package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultPageSize is the page size used by ListAllTeachers.
const DefaultPageSize = 100

// ListTeachers returns one page of teachers.
func (c *Client) ListTeachers(ctx context.Context, skip, limit int) ([]Teacher, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	var out []Teacher
	if err := c.getJSON(ctx, "/teachers/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllTeachers pages through the teacher list until a short page.
func (c *Client) ListAllTeachers(ctx context.Context, pageSize int) ([]Teacher, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	var all []Teacher
	for skip := 0; ; skip += pageSize {
		page, err := c.ListTeachers(ctx, skip, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// GetTeacher returns one teacher.
func (c *Client) GetTeacher(ctx context.Context, id int) (Teacher, error) {
	var t Teacher
	if err := c.getJSON(ctx, fmt.Sprintf("/teachers/%d", id), nil, &t); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// TeacherReports returns the monthly report history of a teacher.
func (c *Client) TeacherReports(ctx context.Context, id int) ([]MonthlyReport, error) {
	var out []MonthlyReport
	if err := c.getJSON(ctx, fmt.Sprintf("/teachers/%d/reports", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TeacherMonthlyStats returns the video statistics of a teacher, newest first.
func (c *Client) TeacherMonthlyStats(ctx context.Context, id int) ([]MonthlyStats, error) {
	var out []MonthlyStats
	if err := c.getJSON(ctx, fmt.Sprintf("/teachers/%d/monthly-stats", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertTeachersFromBunny creates or renames teachers from live Bunny libraries.
func (c *Client) UpsertTeachersFromBunny(ctx context.Context) (UpsertTeachersResult, error) {
	var out UpsertTeachersResult
	if err := c.sendJSON(ctx, http.MethodPost, "/teachers/upsert-from-bunny/", nil, &out); err != nil {
		return UpsertTeachersResult{}, err
	}
	return out, nil
}
