package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/ports"
)

const fieldMask = "routes.polyline.encodedPolyline,routes.optimizedIntermediateWaypointIndex"

// Client implements RouteOptimizer against a Routes-API-shaped optimization
// service: one POST per computation, bounded by the configured timeout and
// abortable through the caller's context.
type Client struct {
	session *http.Client
	apiKey  string
	baseURL string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("routing api key is empty")
	}
	if baseURL == "" {
		baseURL = "https://routes.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		session: &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypoint struct {
	Location struct {
		LatLng latLng `json:"latLng"`
	} `json:"location"`
}

type computeRequest struct {
	Origin               waypoint   `json:"origin"`
	Destination          waypoint   `json:"destination"`
	Intermediates        []waypoint `json:"intermediates,omitempty"`
	TravelMode           string     `json:"travelMode"`
	OptimizeWaypoints    bool       `json:"optimizeWaypointOrder"`
	PolylineQuality      string     `json:"polylineQuality,omitempty"`
	RoutingPreference    string     `json:"routingPreference,omitempty"`
	ComputeAlternatives  bool       `json:"computeAlternativeRoutes"`
	LanguageCodeOptional string     `json:"languageCode,omitempty"`
}

type computeResponse struct {
	Routes []struct {
		Polyline struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
		OptimizedIntermediateWaypointIndex []int `json:"optimizedIntermediateWaypointIndex"`
	} `json:"routes"`
}

func toWaypoint(c domain.Coordinate) waypoint {
	var w waypoint
	w.Location.LatLng = latLng{Latitude: c.Latitude, Longitude: c.Longitude}
	return w
}

// ComputeRoute requests one optimized route through stops. Cancellation is
// reported as the context error so callers can tell supersession apart from
// failure; every other problem collapses into ErrRouteComputation.
func (c *Client) ComputeRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
	stops []domain.Coordinate,
) (_ ports.OptimizedRoute, err error) {
	defer obs.Time(ctx, "routing.ComputeRoute")(&err)

	body := computeRequest{
		Origin:            toWaypoint(origin),
		Destination:       toWaypoint(destination),
		TravelMode:        "DRIVE",
		OptimizeWaypoints: len(stops) > 1,
		RoutingPreference: "TRAFFIC_AWARE",
	}
	for _, s := range stops {
		body.Intermediates = append(body.Intermediates, toWaypoint(s))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.OptimizedRoute{}, fmt.Errorf("marshal compute request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/directions/v2:computeRoutes", c.baseURL)

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ports.OptimizedRoute{}, fmt.Errorf("%w: %v", ports.ErrRouteComputation, err)
	}

	resp, err := c.do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.OptimizedRoute{}, ctxErr
		}
		return ports.OptimizedRoute{}, fmt.Errorf("%w: %v", ports.ErrRouteComputation, err)
	}
	defer resp.Body.Close()

	var cr computeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return ports.OptimizedRoute{}, fmt.Errorf("%w: decode response: %v", ports.ErrRouteComputation, err)
	}

	if len(cr.Routes) == 0 {
		return ports.OptimizedRoute{}, fmt.Errorf("%w: no routes in response", ports.ErrRouteComputation)
	}

	route := cr.Routes[0]
	return ports.OptimizedRoute{
		EncodedPath: route.Polyline.EncodedPolyline,
		StopOrder:   route.OptimizedIntermediateWaypointIndex,
	}, nil
}
