package service

import (
	"context"
	"fmt"
	"time"

	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// ApplyLocation copies latitude and longitude from a fetched location onto
// the user record. A location missing either coordinate leaves the record
// untouched and returns nil, false, nil.
func ApplyLocation(ctx context.Context, users UserStore, userID string, location models.Resource, now time.Time) (*models.Location, bool, error) {
	lat, okLat := location.Float("latitude")
	lon, okLon := location.Float("longitude")
	if !okLat || !okLon {
		return nil, false, nil
	}

	loc := models.Location{
		Latitude:  lat,
		Longitude: lon,
		UpdatedAt: now.UTC(),
	}
	if err := users.UpdateUserLocation(ctx, userID, loc); err != nil {
		return nil, false, fmt.Errorf("store location: %w", err)
	}

	return &loc, true, nil
}
