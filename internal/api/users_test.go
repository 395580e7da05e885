package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_ValidatesBeforeSending(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"email": "new@example.com", "password": "longenough",
			"allowed_pages": []any{"dashboard", "library-config"},
		}, body)
		writeJSON(w, 200, map[string]any{
			"id": 9, "email": "new@example.com", "allowed_pages": []string{"dashboard", "library-config"},
			"is_active": true, "created_at": "2024-03-01T00:00:00", "updated_at": "2024-03-01T00:00:00",
		})
	}))

	_, err := c.CreateUser(context.Background(), NewUser{Email: "new@example.com", Password: "short"})
	assert.EqualError(t, err, "password must be 8 to 128 characters")
	_, err = c.CreateUser(context.Background(), NewUser{Email: "nobody", Password: "longenough"})
	assert.ErrorContains(t, err, "invalid email")
	assert.Zero(t, calls)

	u, err := c.CreateUser(context.Background(), NewUser{
		Email: "new@example.com", Password: "longenough", AllowedPages: []string{"dashboard", "library-config"},
	})
	require.NoError(t, err)
	assert.Equal(t, 9, u.ID)
	assert.True(t, u.IsActive)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]any{"detail": "Email already exists"})
	}))

	_, err := c.CreateUser(context.Background(), NewUser{Email: "a@b.c", Password: "longenough"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Email already exists", apiErr.Detail)
}

func TestUpdateUser_EmptyPagesAreSent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/3", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"allowed_pages": []any{}, "is_active": false}, body)
		writeJSON(w, 200, map[string]any{"id": 3, "email": "a@b.c", "allowed_pages": []string{}, "is_active": false})
	}))

	none := []string{}
	inactive := false
	u, err := c.UpdateUser(context.Background(), 3, UserUpdate{AllowedPages: &none, IsActive: &inactive})
	require.NoError(t, err)
	assert.Empty(t, u.AllowedPages)
	assert.False(t, u.IsActive)

	short := "abc"
	_, err = c.UpdateUser(context.Background(), 3, UserUpdate{Password: &short})
	assert.ErrorContains(t, err, "password must be")
	assert.True(t, UserUpdate{}.Empty())
}

func TestListAndDeleteUsers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []map[string]any{{"id": 1, "email": "a@b.c", "allowed_pages": []string{"dashboard"}, "is_active": true}})
	})
	mux.HandleFunc("DELETE /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			writeJSON(w, 404, map[string]any{"detail": "User not found"})
			return
		}
		writeJSON(w, 200, map[string]any{"success": true})
	})
	c := newTestClient(t, mux)

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@b.c", users[0].Email)

	require.NoError(t, c.DeleteUser(context.Background(), 1))
	err = c.DeleteUser(context.Background(), 2)
	assert.True(t, IsNotFound(err))
}

func TestCreateAndDeleteLibraryConfig(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /library-configs/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"library_id": 7.0, "library_name": "Seven", "stream_api_key": "k7"}, body)
		writeJSON(w, 200, map[string]any{"id": 4, "library_id": 7, "library_name": "Seven", "stream_api_key": "k7", "is_active": true})
	})
	mux.HandleFunc("DELETE /library-configs/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.PathValue("id"))
		writeJSON(w, 200, map[string]any{"message": "Library configuration deleted successfully"})
	})
	c := newTestClient(t, mux)

	key := "k7"
	cfg, err := c.CreateLibraryConfig(context.Background(), NewLibraryConfig{LibraryID: 7, LibraryName: "Seven", StreamAPIKey: &key})
	require.NoError(t, err)
	assert.True(t, cfg.HasKey())
	assert.True(t, cfg.IsActive)

	require.NoError(t, c.DeleteLibraryConfig(context.Background(), 7))
}
