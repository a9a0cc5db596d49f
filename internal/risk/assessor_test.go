package risk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAssessor(t *testing.T) {
	patientID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/patients/%s/risk", patientID), r.URL.Path)
		fmt.Fprint(w, `{"high_risk": true}`)
	}))
	defer srv.Close()

	a := NewHTTPAssessor(srv.URL, time.Second)
	high, err := a.IsHighRisk(context.Background(), patientID)
	require.NoError(t, err)
	assert.True(t, high)
}

func TestHTTPAssessorNotHighRisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"high_risk": false}`)
	}))
	defer srv.Close()

	a := NewHTTPAssessor(srv.URL, time.Second)
	high, err := a.IsHighRisk(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, high)
}

func TestHTTPAssessorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewHTTPAssessor(srv.URL, time.Second)
	_, err := a.IsHighRisk(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "404")
}

func TestHTTPAssessorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	a := NewHTTPAssessor(srv.URL, 20*time.Millisecond)
	_, err := a.IsHighRisk(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestDeniedAndStatic(t *testing.T) {
	high, err := Denied{}.IsHighRisk(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, high)

	flagged := uuid.New()
	s := Static{flagged: true}

	high, err = s.IsHighRisk(context.Background(), flagged)
	require.NoError(t, err)
	assert.True(t, high)

	high, err = s.IsHighRisk(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, high)
}
