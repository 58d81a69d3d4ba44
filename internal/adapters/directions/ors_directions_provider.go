package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/metrics"
	"transit-map-service/internal/platform/obs"

	"github.com/twpayne/go-polyline"
)

const orsDefaultBaseURL = "https://api.openrouteservice.org"

// ORSDirectionsProvider implements ports.DirectionsProvider using the
// OpenRouteService directions endpoint.
//
// The provider is safe for concurrent use.
type ORSDirectionsProvider struct {
	client  httpClient
	baseURL string
	profile string
}

type ORSOptions struct {
	APIKey  string
	Profile string
	BaseURL string
	Timeout time.Duration
}

func NewORSDirectionsProvider(opts ORSOptions) (*ORSDirectionsProvider, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	profile := opts.Profile
	if profile == "" {
		profile = "driving-car"
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = orsDefaultBaseURL
	}

	return &ORSDirectionsProvider{
		client: newHTTPClient(opts.Timeout, func(req *http.Request) {
			req.Header.Set("Authorization", apiKey)
		}),
		baseURL: baseURL,
		profile: profile,
	}, nil
}

type orsDirectionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type orsDirectionsResponse struct {
	Routes []struct {
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

func (o *ORSDirectionsProvider) Directions(
	ctx context.Context,
	origin, destination domain.LatLng,
	stopovers []domain.LatLng,
) (_ []domain.LatLng, err error) {
	defer obs.Time(ctx, "directions.ors")(&err)
	start := time.Now()
	defer func() {
		metrics.DirectionsLatency.WithLabelValues("ors").Observe(time.Since(start).Seconds())
		metrics.DirectionsRequests.WithLabelValues("ors", outcome(err)).Inc()
	}()

	// ORS takes [lng, lat] pairs.
	coords := make([][]float64, 0, len(stopovers)+2)
	coords = append(coords, origin.LngLat())
	for _, s := range stopovers {
		coords = append(coords, s.LngLat())
	}
	coords = append(coords, destination.LngLat())

	payload, err := json.Marshal(orsDirectionsRequest{Coordinates: coords})
	if err != nil {
		return nil, fmt.Errorf("marshal directions request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)
	resp, err := o.client.doWithRetry(ctx, func() (*http.Request, error) {
		return o.client.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("ORS directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr orsDirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode ORS directions response: %w", err)
	}
	if len(dr.Routes) == 0 {
		return nil, errors.New("ORS directions: no routes returned")
	}

	points, err := decodePolyline(dr.Routes[0].Geometry)
	if err != nil {
		return nil, fmt.Errorf("ORS directions: %w", err)
	}
	return points, nil
}

// decodePolyline decodes a precision-5 encoded polyline into lat/lng points.
func decodePolyline(encoded string) ([]domain.LatLng, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}

	out := make([]domain.LatLng, 0, len(coords))
	for _, c := range coords {
		out = append(out, domain.LatLng{Lat: c[0], Lng: c[1]})
	}
	return out, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
