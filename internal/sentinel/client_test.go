package sentinel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var bangalore = orb.Bound{Min: orb.Point{77.37, 12.734}, Max: orb.Point{77.88, 13.173}}

func tokenServer(t *testing.T, validID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _, ok := r.BasicAuth()
		if !ok {
			_ = r.ParseForm()
			id = r.PostForm.Get("client_id")
		}
		if id != validID {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token-` + id + `","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, ids, secrets, tokenURL, processURL string) *Client {
	t.Helper()
	c, err := NewClient(ids, secrets, tokenURL)
	require.NoError(t, err)
	c.ProcessURL = processURL
	c.Retries = 3
	c.RetryDelay = time.Millisecond
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestCalculatePixels(t *testing.T) {
	assert.Equal(t, 1, calculatePixels(0, 10))
	assert.Equal(t, 1110, calculatePixels(0.1, 10))
	assert.Equal(t, 2500, calculatePixels(5, 10))
}

func TestSceneSize(t *testing.T) {
	c := &Client{Resolution: 10}
	w, h := c.SceneSize(bangalore)
	assert.Equal(t, 2500, w)
	assert.Equal(t, 2500, h)

	small := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0.01, 0.02}}
	w, h = c.SceneSize(small)
	assert.Equal(t, 111, w)
	assert.Equal(t, 222, h)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", "", "")
	assert.Error(t, err)
	_, err = NewClient("a,b", "x", "http://token")
	assert.Error(t, err)

	c, err := NewClient("a, b", "x,y", "http://token")
	require.NoError(t, err)
	assert.Equal(t, []Credentials{{"a", "x"}, {"b", "y"}}, c.Credentials)
}

func TestSceneWindow(t *testing.T) {
	start, end := SceneWindow(time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), 30)
	assert.Equal(t, time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC), end)
	assert.Equal(t, time.Date(2023, 12, 16, 23, 59, 59, 0, time.UTC), start)
}

func TestBuildRequest(t *testing.T) {
	c := &Client{Resolution: 10}
	body, err := c.buildRequest(bangalore, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var payload struct {
		Input struct {
			Bounds struct {
				Geometry struct {
					Type string `json:"type"`
				} `json:"geometry"`
			} `json:"bounds"`
			Data []struct {
				Type string `json:"type"`
			} `json:"data"`
		} `json:"input"`
		Output struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"output"`
		Evalscript string `json:"evalscript"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Polygon", payload.Input.Bounds.Geometry.Type)
	assert.Equal(t, "sentinel-2-l2a", payload.Input.Data[0].Type)
	assert.Equal(t, 2500, payload.Output.Width)
	for _, band := range Bands {
		assert.Contains(t, payload.Evalscript, band)
	}
}

func TestRequestSceneFallsBackToNextCredential(t *testing.T) {
	tokens := tokenServer(t, "good")
	var attempts atomic.Int32
	process := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		assert.Equal(t, "Bearer token-good", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "sentinel-2-l2a")
		_, _ = w.Write([]byte("TIFFDATA"))
	}))
	defer process.Close()

	c := testClient(t, "bad,good", "s1,s2", tokens.URL, process.URL)
	content, err := c.RequestScene(context.Background(), bangalore, time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "TIFFDATA", string(content))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRequestSceneRetries(t *testing.T) {
	tokens := tokenServer(t, "good")
	var attempts atomic.Int32
	process := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("TIFFDATA"))
	}))
	defer process.Close()

	c := testClient(t, "good", "s", tokens.URL, process.URL)
	content, err := c.RequestScene(context.Background(), bangalore, time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "TIFFDATA", string(content))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRequestSceneGivesUp(t *testing.T) {
	tokens := tokenServer(t, "good")
	process := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer process.Close()

	c := testClient(t, "good", "s", tokens.URL, process.URL)
	_, err := c.RequestScene(context.Background(), bangalore, time.Now().AddDate(0, 0, -30), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRequestSceneForbidden(t *testing.T) {
	tokens := tokenServer(t, "good")
	var attempts atomic.Int32
	process := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer process.Close()

	c := testClient(t, "good", "s", tokens.URL, process.URL)
	_, err := c.RequestScene(context.Background(), bangalore, time.Now().AddDate(0, 0, -30), time.Now())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRequestSceneInvalidWindow(t *testing.T) {
	c := testClient(t, "good", "s", "http://unused", "http://unused")
	now := time.Now()
	_, err := c.RequestScene(context.Background(), bangalore, now, now.AddDate(0, 0, -1))
	assert.Error(t, err)
}

func TestFetchPairRejectsReversedDates(t *testing.T) {
	c := testClient(t, "good", "s", "http://unused", "http://unused")
	_, err := FetchPair(context.Background(), c, PairRequest{
		Bound:  bangalore,
		Before: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		After:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}
