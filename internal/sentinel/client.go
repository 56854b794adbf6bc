// Package sentinel downloads Sentinel-2 L2A scenes from the Copernicus
// Data Space process API.
package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	DefaultProcessURL = "https://sh.dataspace.copernicus.eu/api/v1/process"
	maxPixels         = 2500
	metersPerDegree   = 111_000.0
)

// Bands written to the scene, in order.
var Bands = []string{"B02", "B03", "B04", "B08", "B11"}

const evalscript = `
//VERSION=3
function setup() {
  return {
    input: ["B02", "B03", "B04", "B08", "B11"],
    output: {
      id: "default",
      bands: 5,
      sampleType: SampleType.FLOAT32,
    },
  }
}

function evaluatePixel(sample) {
  return [sample.B02, sample.B03, sample.B04, sample.B08, sample.B11];
}
`

var ErrUnauthorized = errors.New("unauthorized access, check your client ID and secret")

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type Client struct {
	Credentials []Credentials
	TokenURL    string
	ProcessURL  string
	Resolution  float64
	Retries     int
	RetryDelay  time.Duration
	limiter     *rate.Limiter
}

// NewClient pairs comma separated client ids and secrets, tried in order.
func NewClient(clientIDs, clientSecrets, tokenURL string) (*Client, error) {
	if clientIDs == "" || clientSecrets == "" || tokenURL == "" {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, or COPERNICUS_TOKEN_URL")
	}
	ids := strings.Split(clientIDs, ",")
	secrets := strings.Split(clientSecrets, ",")
	if len(ids) != len(secrets) {
		return nil, fmt.Errorf("mismatched number of client IDs (%d) and secrets (%d)", len(ids), len(secrets))
	}
	creds := make([]Credentials, len(ids))
	for i := range ids {
		creds[i] = Credentials{ClientID: strings.TrimSpace(ids[i]), ClientSecret: strings.TrimSpace(secrets[i])}
	}
	return &Client{
		Credentials: creds,
		TokenURL:    tokenURL,
		ProcessURL:  DefaultProcessURL,
		Resolution:  10,
		Retries:     10,
		RetryDelay:  5 * time.Second,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (metersPerDegree / resolution)
	if pixels < 1 {
		return 1
	}
	if pixels > maxPixels {
		return maxPixels
	}
	return int(pixels)
}

// SceneSize is the output raster size requested for a bound.
func (c *Client) SceneSize(bound orb.Bound) (width, height int) {
	return calculatePixels(bound.Max[0]-bound.Min[0], c.Resolution), calculatePixels(bound.Max[1]-bound.Min[1], c.Resolution)
}

func (c *Client) buildRequest(bound orb.Bound, start, end time.Time) ([]byte, error) {
	geometry, err := geojson.NewGeometry(bound.ToPolygon()).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export geometry to GeoJSON: %w", err)
	}
	width, height := c.SceneSize(bound)
	payload := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": json.RawMessage(geometry),
			},
			"data": []map[string]interface{}{
				{
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": start.UTC().Format(time.RFC3339),
							"to":   end.UTC().Format(time.RFC3339),
						},
						"mosaickingOrder": "leastCC",
					},
					"type": "sentinel-2-l2a",
				},
			},
		},
		"output": map[string]interface{}{
			"width":  width,
			"height": height,
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format":     map[string]string{"type": "image/tiff"},
				},
			},
		},
		"evalscript": evalscript,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return body, nil
}

// RequestScene returns the GeoTIFF bytes of the least-cloudy mosaic of
// bound between start and end.
func (c *Client) RequestScene(ctx context.Context, bound orb.Bound, start, end time.Time) ([]byte, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("invalid time window %s..%s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	body, err := c.buildRequest(bound, start, end)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, cred := range c.Credentials {
		config := &clientcredentials.Config{
			ClientID:     cred.ClientID,
			ClientSecret: cred.ClientSecret,
			TokenURL:     c.TokenURL,
		}
		content, err := c.post(ctx, config.Client(ctx), body)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Credential %s failed: %v\n", cred.ClientID, err)
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, body []byte) ([]byte, error) {
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if c.limiter != nil {
			if werr := c.limiter.Wait(ctx); werr != nil {
				return nil, werr
			}
		}
		var content []byte
		content, err = c.postOnce(ctx, httpClient, body)
		if err == nil {
			return content, nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		log.Printf("Attempt %d failed: %v\n", attempt, err)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to request image after %d attempts: %w", retries, err)
}

func (c *Client) postOnce(ctx context.Context, httpClient *http.Client, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ProcessURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/tiff")

	resp, err := httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return content, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("process API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(content)))
	}
}
