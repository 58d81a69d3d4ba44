package directions

import (
	"context"
	"sync"
	"transit-map-service/internal/domain"
)

// MockCall records the arguments of one Directions call.
type MockCall struct {
	Origin      domain.LatLng
	Destination domain.LatLng
	Stopovers   []domain.LatLng
}

// MockDirectionsProvider returns a canned path or error and records calls.
// A nil Path with a nil Err echoes origin, stopovers and destination back.
type MockDirectionsProvider struct {
	Path []domain.LatLng
	Err  error

	mu    sync.Mutex
	calls []MockCall
}

func NewMockDirectionsProvider(path []domain.LatLng, err error) *MockDirectionsProvider {
	return &MockDirectionsProvider{Path: path, Err: err}
}

func (p *MockDirectionsProvider) Directions(
	ctx context.Context,
	origin, destination domain.LatLng,
	stopovers []domain.LatLng,
) ([]domain.LatLng, error) {
	p.mu.Lock()
	p.calls = append(p.calls, MockCall{
		Origin:      origin,
		Destination: destination,
		Stopovers:   append([]domain.LatLng(nil), stopovers...),
	})
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	if p.Path != nil {
		return append([]domain.LatLng(nil), p.Path...), nil
	}

	out := make([]domain.LatLng, 0, len(stopovers)+2)
	out = append(out, origin)
	out = append(out, stopovers...)
	out = append(out, destination)
	return out, nil
}

// Calls returns the number of Directions calls so far.
func (p *MockDirectionsProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// LastCall returns the most recent call; ok is false when there was none.
func (p *MockDirectionsProvider) LastCall() (MockCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return MockCall{}, false
	}
	return p.calls[len(p.calls)-1], true
}
