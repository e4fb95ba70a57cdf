package routing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
)

func TestComputeRoute(t *testing.T) {
	var gotBody computeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}

		resp := `{"routes":[{"polyline":{"encodedPolyline":"_p~iF~ps|U_ulLnnqC"},"optimizedIntermediateWaypointIndex":[1,0]}]}`
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	origin := domain.Coordinate{Latitude: 24.02, Longitude: -104.65}
	destination := domain.Coordinate{Latitude: 24.03, Longitude: -104.66}
	stops := []domain.Coordinate{
		{Latitude: 24.025, Longitude: -104.655},
		{Latitude: 24.028, Longitude: -104.657},
	}

	route, err := client.ComputeRoute(context.Background(), origin, destination, stops)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if route.EncodedPath != "_p~iF~ps|U_ulLnnqC" {
		t.Fatalf("encoded path = %q", route.EncodedPath)
	}
	if len(route.StopOrder) != 2 || route.StopOrder[0] != 1 || route.StopOrder[1] != 0 {
		t.Fatalf("stop order = %v, want [1 0]", route.StopOrder)
	}

	if len(gotBody.Intermediates) != 2 {
		t.Fatalf("request carried %d intermediates, want 2", len(gotBody.Intermediates))
	}
	if !gotBody.OptimizeWaypoints {
		t.Fatal("optimizeWaypointOrder not set for multi-stop request")
	}
	if gotBody.Origin.Location.LatLng.Latitude != 24.02 {
		t.Fatalf("origin latitude = %f", gotBody.Origin.Location.LatLng.Latitude)
	}
}

func TestComputeRouteServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.ComputeRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{}, nil)
	if !errors.Is(err, ports.ErrRouteComputation) {
		t.Fatalf("error = %v, want ErrRouteComputation", err)
	}
}

func TestComputeRouteEmptyRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "test-key", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.ComputeRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{}, nil)
	if !errors.Is(err, ports.ErrRouteComputation) {
		t.Fatalf("error = %v, want ErrRouteComputation", err)
	}
}

func TestComputeRouteCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewClient(srv.URL, "test-key", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err = client.ComputeRoute(ctx, domain.Coordinate{}, domain.Coordinate{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	// Supersession must never surface as a computation failure.
	if errors.Is(err, ports.ErrRouteComputation) {
		t.Fatal("canceled call reported as route computation failure")
	}
}
