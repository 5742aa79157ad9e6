package station

import (
	"context"
	"time"

	id "civicwatch/pkg/domain"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the requested station does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// Store persists jurisdictional offices. ListActive must return stations in
// a stable order (creation time, then ID) because the nearest-station
// resolver's tie-break depends on input ordering.
type Store interface {
	Create(ctx context.Context, st *Station) error
	FindByID(ctx context.Context, stationID id.StationID) (*Station, error)
	ListActive(ctx context.Context) ([]*Station, error)
	ListAll(ctx context.Context) ([]*Station, error)
	Update(ctx context.Context, st *Station) error
	SetActive(ctx context.Context, stationID id.StationID, active bool, at time.Time) error
}
