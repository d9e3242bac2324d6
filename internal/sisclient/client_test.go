package sisclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/roster"
)

func TestFetchStudentsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "first_name": "Asha", "last_name": "Rao", "grade": 5, "section": "a"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	records, err := c.FetchStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	e := roster.MapRaw(records[0], 0)
	assert.Equal(t, "1", e.ID)
	assert.Equal(t, "Asha Rao", e.Name)
	assert.Equal(t, "5", e.Grade)
	assert.Equal(t, "A", e.Section)
}

func TestFetchStudentsWrappedObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"students": [{"student_id": "S1"}, {"student_id": "S2"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	records, err := c.FetchStudents(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFetchStudentsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	_, err := c.FetchStudents(context.Background())
	assert.Error(t, err)
}

func TestFetchStudentsSkipReturnsSample(t *testing.T) {
	c := New("", true)
	records, err := c.FetchStudents(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NoError(t, c.Health(context.Background()))
}
