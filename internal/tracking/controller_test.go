package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"delivery-tracking-service/internal/adapters/location"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/polyline"
	"delivery-tracking-service/internal/ports"
)

// fakeOptimizer hands each call to the test, which decides when and how it
// completes. ComputeRoute honors cancellation like the real client.
type fakeOptimizer struct {
	calls chan *fakeCall
}

type fakeCall struct {
	stops   []domain.Coordinate
	respond chan fakeResponse
}

type fakeResponse struct {
	route ports.OptimizedRoute
	err   error
}

func newFakeOptimizer() *fakeOptimizer {
	return &fakeOptimizer{calls: make(chan *fakeCall, 8)}
}

func (f *fakeOptimizer) ComputeRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
	stops []domain.Coordinate,
) (ports.OptimizedRoute, error) {
	call := &fakeCall{stops: stops, respond: make(chan fakeResponse, 1)}
	f.calls <- call
	select {
	case r := <-call.respond:
		return r.route, r.err
	case <-ctx.Done():
		return ports.OptimizedRoute{}, ctx.Err()
	}
}

func (f *fakeOptimizer) nextCall(t *testing.T) *fakeCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a route computation")
		return nil
	}
}

func (f *fakeOptimizer) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case <-f.calls:
		t.Fatal("unexpected route computation issued")
	case <-time.After(100 * time.Millisecond):
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testAssignment() domain.VehicleAssignment {
	return domain.VehicleAssignment{
		VehicleID:   "unit-7",
		Origin:      domain.Coordinate{Latitude: 24.02, Longitude: -104.65},
		Destination: domain.Coordinate{Latitude: 24.03, Longitude: -104.66},
		Deliveries: []domain.Delivery{
			{ID: "d1", Status: domain.StatusPending, Destination: domain.Coordinate{Latitude: 24.025, Longitude: -104.655}},
			{ID: "d2", Status: domain.StatusPending, Destination: domain.Coordinate{Latitude: 24.028, Longitude: -104.657}},
		},
	}
}

// Path near the origin; positions a few degrees away are far off route.
func testRoute(order []int) ports.OptimizedRoute {
	path := []domain.Coordinate{
		{Latitude: 24.02, Longitude: -104.65},
		{Latitude: 24.025, Longitude: -104.655},
		{Latitude: 24.03, Longitude: -104.66},
	}
	return ports.OptimizedRoute{
		EncodedPath: polyline.Encode(path),
		StopOrder:   order,
	}
}

type fixture struct {
	controller *Controller
	source     *location.PushSource
	optimizer  *fakeOptimizer
	clock      *fakeClock
}

func startController(t *testing.T, assignment domain.VehicleAssignment) fixture {
	t.Helper()

	src := location.NewPushSource()
	opt := newFakeOptimizer()
	clock := &fakeClock{t: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)}

	c := NewController("sess-1", assignment, src, opt, nil, Config{
		OffRouteThresholdMeters: 150,
		Debounce:                10 * time.Second,
		RequestTimeout:          5 * time.Second,
	})
	c.now = clock.Now

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Synchronize with the run loop so the subscription is active before the
	// test pushes its first fix.
	if err := c.exec(ctx, func() {}); err != nil {
		t.Fatalf("controller run loop not ready: %v", err)
	}

	return fixture{controller: c, source: src, optimizer: opt, clock: clock}
}

func (f fixture) push(t *testing.T, lat, lng float64) {
	t.Helper()
	ok := f.source.Push(domain.LocationSample{
		Coordinate: domain.Coordinate{Latitude: lat, Longitude: lng},
		Timestamp:  f.clock.Now(),
	})
	if !ok {
		t.Fatalf("fix (%f, %f) was not delivered", lat, lng)
	}
}

func waitSnapshot(t *testing.T, c *Controller, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := c.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never met; last snapshot state=%s err=%q", c.Snapshot().State, c.Snapshot().LastError)
	return Snapshot{}
}

func TestFirstFixTriggersComputation(t *testing.T) {
	f := startController(t, testAssignment())

	if snap := f.controller.Snapshot(); snap.State != StateIdle {
		t.Fatalf("initial state = %s, want idle", snap.State)
	}

	f.push(t, 24.02, -104.65)

	call := f.optimizer.nextCall(t)
	if len(call.stops) != 2 {
		t.Fatalf("computation requested %d stops, want 2", len(call.stops))
	}

	waitSnapshot(t, f.controller, func(s Snapshot) bool {
		return s.State == StateComputing && s.InFlight
	})

	call.respond <- fakeResponse{route: testRoute([]int{1, 0})}

	snap := waitSnapshot(t, f.controller, func(s Snapshot) bool {
		return s.State == StateTracking
	})
	if snap.InFlight {
		t.Fatal("inFlight still set after completion")
	}
	if len(snap.Path) != 3 {
		t.Fatalf("path has %d points, want 3", len(snap.Path))
	}
	if len(snap.OrderedStops) != 2 || snap.OrderedStops[0].ID != "d2" || snap.OrderedStops[1].ID != "d1" {
		t.Fatalf("ordered stops = %v, want [d2 d1]", snap.OrderedStops)
	}
}

func TestDebounceSuppressesRapidTriggers(t *testing.T) {
	f := startController(t, testAssignment())

	f.push(t, 24.02, -104.65)
	call := f.optimizer.nextCall(t)
	call.respond <- fakeResponse{route: testRoute([]int{0, 1})}
	waitSnapshot(t, f.controller, func(s Snapshot) bool { return s.State == StateTracking })

	// Off route, but inside the debounce window: no call.
	f.clock.Advance(3 * time.Second)
	f.push(t, 25.0, -104.65)
	f.optimizer.expectNoCall(t)

	// Off route and past the window: one call.
	f.clock.Advance(8 * time.Second)
	f.push(t, 25.1, -104.65)
	f.optimizer.nextCall(t)
}

func TestOnRouteSampleDoesNotTrigger(t *testing.T) {
	f := startController(t, testAssignment())

	f.push(t, 24.02, -104.65)
	call := f.optimizer.nextCall(t)
	call.respond <- fakeResponse{route: testRoute([]int{0, 1})}
	waitSnapshot(t, f.controller, func(s Snapshot) bool { return s.State == StateTracking })

	f.clock.Advance(time.Minute)
	// ~15 m from a path point: on route no matter how much time passed.
	f.push(t, 24.0251, -104.6551)
	f.optimizer.expectNoCall(t)
}

func TestSupersessionKeepsNewestResult(t *testing.T) {
	f := startController(t, testAssignment())

	f.push(t, 24.02, -104.65)
	callA := f.optimizer.nextCall(t)

	// A is still in flight when a newer trigger fires.
	f.clock.Advance(11 * time.Second)
	f.push(t, 25.0, -104.65)
	callB := f.optimizer.nextCall(t)

	routeB := testRoute([]int{1, 0})
	callB.respond <- fakeResponse{route: routeB}

	snap := waitSnapshot(t, f.controller, func(s Snapshot) bool {
		return s.State == StateTracking
	})
	if snap.OrderedStops[0].ID != "d2" {
		t.Fatalf("ordered stops = %v, want B's order", snap.OrderedStops)
	}

	// A's response arrives after B's and must be dropped.
	routeA := ports.OptimizedRoute{EncodedPath: polyline.Encode([]domain.Coordinate{{Latitude: 1, Longitude: 1}}), StopOrder: []int{0, 1}}
	callA.respond <- fakeResponse{route: routeA}

	time.Sleep(50 * time.Millisecond)
	snap = f.controller.Snapshot()
	if len(snap.Path) != 3 || snap.OrderedStops[0].ID != "d2" {
		t.Fatalf("stale result overwrote the session: %+v", snap.OrderedStops)
	}
}

func TestFailureKeepsPreviousGuidance(t *testing.T) {
	f := startController(t, testAssignment())

	// First attempt fails: back to Idle, error surfaced.
	f.push(t, 24.02, -104.65)
	call := f.optimizer.nextCall(t)
	call.respond <- fakeResponse{err: ports.ErrRouteComputation}

	snap := waitSnapshot(t, f.controller, func(s Snapshot) bool {
		return s.LastError != "" && !s.InFlight
	})
	if snap.State != StateIdle {
		t.Fatalf("state after first failure = %s, want idle", snap.State)
	}
	if len(snap.Path) != 0 {
		t.Fatal("failed attempt produced a path")
	}

	// Successful recalculation.
	f.clock.Advance(11 * time.Second)
	f.push(t, 24.021, -104.651)
	call = f.optimizer.nextCall(t)
	call.respond <- fakeResponse{route: testRoute([]int{0, 1})}
	waitSnapshot(t, f.controller, func(s Snapshot) bool { return s.State == StateTracking })

	// A later failure keeps the old path and stays in Tracking.
	f.clock.Advance(11 * time.Second)
	f.push(t, 25.0, -104.65)
	call = f.optimizer.nextCall(t)
	call.respond <- fakeResponse{err: ports.ErrRouteComputation}

	snap = waitSnapshot(t, f.controller, func(s Snapshot) bool { return s.LastError != "" })
	if snap.State != StateTracking {
		t.Fatalf("state after recalculation failure = %s, want tracking", snap.State)
	}
	if len(snap.Path) != 3 {
		t.Fatal("old path was discarded on transient failure")
	}
}

func TestLocationUnavailable(t *testing.T) {
	f := startController(t, testAssignment())

	f.source.MarkUnavailable()

	snap := waitSnapshot(t, f.controller, func(s Snapshot) bool {
		return s.State == StateAwaitingLocation
	})
	if snap.LastError == "" {
		t.Fatal("terminal source failure not surfaced")
	}
}

func TestDeliveryStatusUpdateShrinksStops(t *testing.T) {
	f := startController(t, testAssignment())

	f.push(t, 24.02, -104.65)
	call := f.optimizer.nextCall(t)
	call.respond <- fakeResponse{route: testRoute([]int{1, 0})}
	waitSnapshot(t, f.controller, func(s Snapshot) bool { return s.State == StateTracking })

	if err := f.controller.SetDeliveryStatus(context.Background(), "d2", domain.StatusDelivered); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := f.controller.Snapshot()
	if len(snap.Stops) != 1 || snap.Stops[0].ID != "d1" {
		t.Fatalf("stops = %v, want [d1]", snap.Stops)
	}
	if len(snap.OrderedStops) != 1 || snap.OrderedStops[0].ID != "d1" {
		t.Fatalf("ordered stops = %v, want [d1]", snap.OrderedStops)
	}
	if snap.Progress.Delivered != 1 || snap.Progress.PercentComplete != 50 {
		t.Fatalf("progress = %+v", snap.Progress)
	}

	if err := f.controller.SetDeliveryStatus(context.Background(), "nope", domain.StatusDelivered); err == nil {
		t.Fatal("unknown delivery id accepted")
	}
}

func TestReplaceDeliveriesRefreshesSet(t *testing.T) {
	f := startController(t, testAssignment())

	refreshed := []domain.Delivery{
		{ID: "d1", Status: domain.StatusDelivered, Destination: domain.Coordinate{Latitude: 24.025, Longitude: -104.655}},
		{ID: "d2", Status: domain.StatusPending, Destination: domain.Coordinate{Latitude: 24.028, Longitude: -104.657}},
		{ID: "d3", Status: domain.StatusPending, Destination: domain.Coordinate{Latitude: 24.032, Longitude: -104.659}},
	}

	if err := f.controller.ReplaceDeliveries(context.Background(), refreshed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := f.controller.Snapshot()
	if len(snap.Stops) != 2 {
		t.Fatalf("stops = %v, want 2 pending", snap.Stops)
	}
	if snap.Progress.Total != 3 || snap.Progress.Delivered != 1 {
		t.Fatalf("progress = %+v", snap.Progress)
	}
	// Ordered stops stay a permutation of the pending set.
	ids := map[string]bool{}
	for _, d := range snap.OrderedStops {
		ids[d.ID] = true
	}
	if len(snap.OrderedStops) != 2 || !ids["d2"] || !ids["d3"] {
		t.Fatalf("ordered stops = %v, want d2 and d3", snap.OrderedStops)
	}
}

func TestEndToEndScenario(t *testing.T) {
	// Origin (24.02,-104.65), destination (24.03,-104.66), two stops; the
	// service optimizes them in reverse and the session reflects it exactly.
	f := startController(t, testAssignment())

	f.push(t, 24.02, -104.65)
	call := f.optimizer.nextCall(t)

	encoded := polyline.Encode([]domain.Coordinate{
		{Latitude: 24.02, Longitude: -104.65},
		{Latitude: 24.028, Longitude: -104.657},
		{Latitude: 24.025, Longitude: -104.655},
		{Latitude: 24.03, Longitude: -104.66},
	})
	call.respond <- fakeResponse{route: ports.OptimizedRoute{EncodedPath: encoded, StopOrder: []int{1, 0}}}

	snap := waitSnapshot(t, f.controller, func(s Snapshot) bool { return s.State == StateTracking })

	want := polyline.Decode(encoded)
	if len(snap.Path) != len(want) {
		t.Fatalf("path length = %d, want %d", len(snap.Path), len(want))
	}
	for i := range want {
		if !snap.Path[i].Matches(want[i]) {
			t.Fatalf("path[%d] = %+v, want %+v", i, snap.Path[i], want[i])
		}
	}
	if snap.OrderedStops[0].ID != "d2" || snap.OrderedStops[1].ID != "d1" {
		t.Fatalf("ordered stops = [%s %s], want [d2 d1]", snap.OrderedStops[0].ID, snap.OrderedStops[1].ID)
	}
}
