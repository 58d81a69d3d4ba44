package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/metrics"
	"transit-map-service/internal/platform/obs"
)

const googleDefaultBaseURL = "https://maps.googleapis.com"

// GoogleDirectionsProvider implements ports.DirectionsProvider using the
// Google Maps Directions API. The path is assembled from every step polyline
// of every leg, which follows the road more closely than the overview.
type GoogleDirectionsProvider struct {
	client  httpClient
	baseURL string
}

type GoogleOptions struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func NewGoogleDirectionsProvider(opts GoogleOptions) (*GoogleDirectionsProvider, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}

	return &GoogleDirectionsProvider{
		client: newHTTPClient(opts.Timeout, func(req *http.Request) {
			q := req.URL.Query()
			q.Set("key", apiKey)
			req.URL.RawQuery = q.Encode()
		}),
		baseURL: baseURL,
	}, nil
}

type googlePolyline struct {
	Points string `json:"points"`
}

type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Steps []struct {
				Polyline googlePolyline `json:"polyline"`
			} `json:"steps"`
		} `json:"legs"`
		OverviewPolyline googlePolyline `json:"overview_polyline"`
	} `json:"routes"`
}

func (g *GoogleDirectionsProvider) Directions(
	ctx context.Context,
	origin, destination domain.LatLng,
	stopovers []domain.LatLng,
) (_ []domain.LatLng, err error) {
	defer obs.Time(ctx, "directions.google")(&err)
	start := time.Now()
	defer func() {
		metrics.DirectionsLatency.WithLabelValues("google").Observe(time.Since(start).Seconds())
		metrics.DirectionsRequests.WithLabelValues("google", outcome(err)).Inc()
	}()

	q := url.Values{}
	q.Set("origin", origin.String())
	q.Set("destination", destination.String())
	q.Set("mode", "driving")
	if len(stopovers) > 0 {
		parts := make([]string, 0, len(stopovers))
		for _, s := range stopovers {
			parts = append(parts, s.String())
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}
	endpoint := g.baseURL + "/maps/api/directions/json?" + q.Encode()

	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		return g.client.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("google directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr googleDirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode google directions response: %w", err)
	}
	if dr.Status != "OK" {
		if dr.ErrorMessage != "" {
			return nil, fmt.Errorf("google directions: %s: %s", dr.Status, dr.ErrorMessage)
		}
		return nil, fmt.Errorf("google directions: %s", dr.Status)
	}
	if len(dr.Routes) == 0 {
		return nil, errors.New("google directions: no routes returned")
	}

	route := dr.Routes[0]
	var out []domain.LatLng
	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			points, err := decodePolyline(step.Polyline.Points)
			if err != nil {
				return nil, fmt.Errorf("google directions: %w", err)
			}
			// Consecutive steps share their joint point.
			if len(out) > 0 && len(points) > 0 && out[len(out)-1] == points[0] {
				points = points[1:]
			}
			out = append(out, points...)
		}
	}

	if len(out) == 0 && route.OverviewPolyline.Points != "" {
		return decodePolyline(route.OverviewPolyline.Points)
	}
	return out, nil
}
