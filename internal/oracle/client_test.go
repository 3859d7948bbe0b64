package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithHTTPClient(srv.Client()), WithTimeout(2*time.Second))
}

func TestRequestChartSuccess(t *testing.T) {
	var got chart.BirthQuery
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chart", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"summary":"sunny","planets":[{"name":"Sun","sign":"Virgo","house":"10 House"}]}`))
	})

	q := chart.BirthQuery{Date: "1995-09-22", Time: "14:30", City: "Seoul"}
	out := c.RequestChart(context.Background(), q)

	assert.Equal(t, q, got)
	assert.False(t, out.UsedFallback)
	assert.NoError(t, out.Err)
	assert.Equal(t, "sunny", out.Result.Summary)
	assert.Equal(t, []chart.Placement{{Name: "Sun", Sign: "Virgo", House: "10 House"}}, out.Result.Planets)
}

func TestRequestChartFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"missing planets", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"summary":"no planets"}`))
		}},
		{"empty planets", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"summary":"x","planets":[]}`))
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, tt.handler)
			out := c.RequestChart(context.Background(), chart.DefaultQuery())
			assert.True(t, out.UsedFallback)
			assert.Error(t, out.Err)
			assert.Equal(t, chart.Fallback(), out.Result)
		})
	}
}

func TestRequestChartTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := NewClient(url).RequestChart(context.Background(), chart.DefaultQuery())
	assert.True(t, out.UsedFallback)
	assert.Equal(t, chart.FallbackSummary, out.Result.Summary)
}

func TestRequestChartTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	start := time.Now()
	out := c.RequestChart(context.Background(), chart.DefaultQuery())

	assert.True(t, out.UsedFallback)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRequestAnswer(t *testing.T) {
	var got askRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ask", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"answer":"  좋은 인연이 다가와요 "}`))
	})

	planets := []chart.Placement{{Name: "Sun", Sign: "Virgo", House: "10 House"}}
	answer, ok := c.RequestAnswer(context.Background(), "연애운 알려줘", planets)

	require.True(t, ok)
	assert.Equal(t, "좋은 인연이 다가와요", answer)
	assert.Equal(t, "연애운 알려줘", got.Question)
	assert.Equal(t, planets, got.Planets)
}

func TestRequestAnswerFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"empty answer", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"answer":""}`))
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`nope`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, tt.handler)
			answer, ok := c.RequestAnswer(context.Background(), "q", nil)
			assert.False(t, ok)
			assert.Empty(t, answer)
		})
	}
}

func TestRequestsCarryDistinctIDs(t *testing.T) {
	var ids []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(RequestIDHeader))
		w.Write([]byte(`{"answer":"ok"}`))
	})

	c.RequestAnswer(context.Background(), "a", nil)
	c.RequestAnswer(context.Background(), "b", nil)

	require.Len(t, ids, 2)
	for _, id := range ids {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, ids[0], ids[1])
}
