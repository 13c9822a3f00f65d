// Package maps wraps the Google Maps Directions API for delivery ETA
// estimates shown in out-for-delivery notifications.
package maps

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"googlemaps.github.io/maps"

	"wasla/internal/types"
)

// ETAService estimates the driving time from a service area's dispatch hub
// to its delivery centroid. Estimates are advisory: callers must treat a
// failure as "no ETA", never as a hard error.
type ETAService struct {
	client *maps.Client
	db     *pgxpool.Pool
}

func NewETAService(apiKey string, db *pgxpool.Pool) (*ETAService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &ETAService{client: client, db: db}, nil
}

// DeliveryETA returns a human-readable driving duration for the service
// area, e.g. "25 mins".
func (s *ETAService) DeliveryETA(ctx context.Context, serviceAreaID types.ID) (string, error) {
	origin, destination, err := s.areaEndpoints(ctx, serviceAreaID)
	if err != nil {
		return "", err
	}

	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    "ar", // Arabic for customer-facing strings
		Region:      "SA", // Bias results to Saudi Arabia
	}
	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return "", fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return "", fmt.Errorf("no route found")
	}
	return formatDuration(routes[0].Legs[0].Duration), nil
}

func (s *ETAService) areaEndpoints(ctx context.Context, serviceAreaID types.ID) (string, string, error) {
	row := s.db.QueryRow(ctx, `
		SELECT hub_location, centroid_location
		FROM service_areas
		WHERE id = $1`, string(serviceAreaID),
	)
	var origin, destination string
	if err := row.Scan(&origin, &destination); err != nil {
		return "", "", fmt.Errorf("service area lookup: %w", err)
	}
	return origin, destination, nil
}

func formatDuration(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("%d mins", mins)
}
