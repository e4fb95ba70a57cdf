package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the Postgres schema for assignments and deliveries.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createAssignmentsQuery := `
	CREATE TABLE IF NOT EXISTS vehicle_assignments (
		vehicle_id TEXT NOT NULL,
		assigned_on DATE NOT NULL,
		origin_lat DOUBLE PRECISION NOT NULL,
		origin_lng DOUBLE PRECISION NOT NULL,
		destination_lat DOUBLE PRECISION NOT NULL,
		destination_lng DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (vehicle_id, assigned_on)
	);
	`

	createDeliveriesQuery := `
	CREATE TABLE IF NOT EXISTS deliveries (
		delivery_id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		assigned_on DATE NOT NULL,
		dest_lat DOUBLE PRECISION NOT NULL,
		dest_lng DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		instructions TEXT NOT NULL DEFAULT '',
		street TEXT NOT NULL DEFAULT '',
		neighborhood TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT ''
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_deliveries_vehicle_assigned_on
	ON deliveries(vehicle_id, assigned_on);
	`

	statements := []string{
		createAssignmentsQuery,
		createDeliveriesQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type DeliverySeed struct {
	DeliveryID   string  `json:"delivery_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Instructions string  `json:"instructions"`
	Street       string  `json:"street"`
	Neighborhood string  `json:"neighborhood"`
	PostalCode   string  `json:"postal_code"`
}

type AssignmentSeed struct {
	VehicleID      string         `json:"vehicle_id"`
	AssignedOn     string         `json:"assigned_on"`
	OriginLat      float64        `json:"origin_lat"`
	OriginLng      float64        `json:"origin_lng"`
	DestinationLat float64        `json:"destination_lat"`
	DestinationLng float64        `json:"destination_lng"`
	Deliveries     []DeliverySeed `json:"deliveries"`
}

// Populate the database with assignment data from a JSON file.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed assignments: read %q: %w", jsonPath, err)
	}

	var data []AssignmentSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed assignments: parse json: %w", err)
	}

	for i, a := range data {
		if strings.TrimSpace(a.VehicleID) == "" {
			return fmt.Errorf("seed assignments: empty vehicle_id at index %d", i+1)
		}
		if strings.TrimSpace(a.AssignedOn) == "" {
			return fmt.Errorf("seed assignments: empty assigned_on at index %d", i+1)
		}
		for j, d := range a.Deliveries {
			if strings.TrimSpace(d.DeliveryID) == "" {
				return fmt.Errorf("seed assignments: empty delivery_id at index %d/%d", i+1, j+1)
			}
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed assignments: begin tx: %w", err)
	}
	defer tx.Rollback()

	assignmentQuery := `
	INSERT INTO vehicle_assignments (
		vehicle_id, assigned_on, origin_lat, origin_lng, destination_lat, destination_lng
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (vehicle_id, assigned_on) DO UPDATE
	SET origin_lat = EXCLUDED.origin_lat,
		origin_lng = EXCLUDED.origin_lng,
		destination_lat = EXCLUDED.destination_lat,
		destination_lng = EXCLUDED.destination_lng;
	`
	assignmentStmt, err := tx.Prepare(assignmentQuery)
	if err != nil {
		return fmt.Errorf("seed assignments: prepare assignment insert: %w", err)
	}
	defer assignmentStmt.Close()

	deliveryQuery := `
	INSERT INTO deliveries (
		delivery_id, vehicle_id, assigned_on, dest_lat, dest_lng,
		status, instructions, street, neighborhood, postal_code
	)
	VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8, $9)
	ON CONFLICT (delivery_id) DO UPDATE
	SET dest_lat = EXCLUDED.dest_lat,
		dest_lng = EXCLUDED.dest_lng,
		instructions = EXCLUDED.instructions,
		street = EXCLUDED.street,
		neighborhood = EXCLUDED.neighborhood,
		postal_code = EXCLUDED.postal_code;
	`
	deliveryStmt, err := tx.Prepare(deliveryQuery)
	if err != nil {
		return fmt.Errorf("seed assignments: prepare delivery insert: %w", err)
	}
	defer deliveryStmt.Close()

	for _, a := range data {
		_, err := assignmentStmt.Exec(
			a.VehicleID, a.AssignedOn,
			a.OriginLat, a.OriginLng, a.DestinationLat, a.DestinationLng,
		)
		if err != nil {
			return fmt.Errorf("seed assignments: insert vehicle=%q: %w", a.VehicleID, err)
		}

		for _, d := range a.Deliveries {
			_, err := deliveryStmt.Exec(
				d.DeliveryID, a.VehicleID, a.AssignedOn,
				d.Latitude, d.Longitude,
				d.Instructions, d.Street, d.Neighborhood, d.PostalCode,
			)
			if err != nil {
				return fmt.Errorf("seed assignments: insert delivery_id=%q: %w", d.DeliveryID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed assignments: commit tx: %w", err)
	}

	return nil
}
