package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/ports"
)

// Postgres-backed implementation of the DeliveryRepository port. The tracking
// core only reads assignments; status updates come from delivery-confirmation
// actions.
type PostgresDeliveryRepository struct{ DB *sql.DB }

func NewPostgresDeliveryRepository(db *sql.DB) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{DB: db}
}

// GetAssignment returns the day's assignment for one vehicle, deliveries in
// stable id order.
func (r *PostgresDeliveryRepository) GetAssignment(
	ctx context.Context,
	vehicleID string,
	date time.Time,
) (_ domain.VehicleAssignment, err error) {
	defer obs.Time(ctx, "repo.GetAssignment")(&err)

	if r.DB == nil {
		return domain.VehicleAssignment{}, errors.New("delivery repository: DB is nil")
	}

	day := date.Format("2006-01-02")

	assignment := domain.VehicleAssignment{VehicleID: vehicleID, Date: date}

	headQuery := `
	SELECT origin_lat, origin_lng, destination_lat, destination_lng
	FROM vehicle_assignments
	WHERE vehicle_id = $1 AND assigned_on = $2;
	`
	err = r.DB.QueryRowContext(ctx, headQuery, vehicleID, day).Scan(
		&assignment.Origin.Latitude,
		&assignment.Origin.Longitude,
		&assignment.Destination.Latitude,
		&assignment.Destination.Longitude,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VehicleAssignment{}, fmt.Errorf(
			"get assignment vehicle=%q date=%s: %w", vehicleID, day, ports.ErrAssignmentNotFound,
		)
	}
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("get assignment: query vehicle_assignments: %w", err)
	}

	listQuery := `
	SELECT
		delivery_id,
		dest_lat,
		dest_lng,
		status,
		instructions,
		street,
		neighborhood,
		postal_code
	FROM deliveries
	WHERE vehicle_id = $1 AND assigned_on = $2
	ORDER BY delivery_id;
	`
	rows, err := r.DB.QueryContext(ctx, listQuery, vehicleID, day)
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("get assignment: query deliveries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d domain.Delivery
		var status string
		err := rows.Scan(
			&d.ID,
			&d.Destination.Latitude,
			&d.Destination.Longitude,
			&status,
			&d.Instructions,
			&d.Street,
			&d.Neighborhood,
			&d.PostalCode,
		)
		if err != nil {
			return domain.VehicleAssignment{}, fmt.Errorf("get assignment: scan row: %w", err)
		}
		d.Status = domain.DeliveryStatus(status)
		assignment.Deliveries = append(assignment.Deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("get assignment: row iteration: %w", err)
	}

	return assignment, nil
}

// UpdateDeliveryStatus records the outcome of a delivery confirmation.
func (r *PostgresDeliveryRepository) UpdateDeliveryStatus(
	ctx context.Context,
	deliveryID string,
	status domain.DeliveryStatus,
) (err error) {
	defer obs.Time(ctx, "repo.UpdateDeliveryStatus")(&err)

	if r.DB == nil {
		return errors.New("delivery repository: DB is nil")
	}
	if !domain.ValidStatus(status) {
		return fmt.Errorf("update delivery status: unknown status %q", status)
	}

	query := `
	UPDATE deliveries
	SET status = $2
	WHERE delivery_id = $1;
	`
	res, err := r.DB.ExecContext(ctx, query, deliveryID, string(status))
	if err != nil {
		return fmt.Errorf("update delivery status id=%q: %w", deliveryID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update delivery status id=%q: rows affected: %w", deliveryID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update delivery status: no delivery with id %q", deliveryID)
	}

	return nil
}
