package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/neilberkman/medichat/internal/core/db"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
)

// Keys of the scoped location records
const (
	KeyUserLocation = "userLocation"
	KeySavedAddress = "savedAddressLocation"
)

// KV is the scoped key/value storage the store persists to
type KV interface {
	Put(ctx context.Context, scope, key string, value []byte) error
	Get(ctx context.Context, scope, key string) ([]byte, error)
	ClearScope(ctx context.Context, scope string) error
}

// Store keeps the user's location records for one client scope
type Store struct {
	kv    KV
	scope string
	now   func() time.Time
}

// NewStore creates a store for scope
func NewStore(kv KV, scope string) *Store {
	return &Store{kv: kv, scope: scope, now: time.Now}
}

// Scope returns the client scope the records live in
func (s *Store) Scope() string {
	return s.scope
}

// ValidateCoordinates rejects values outside WGS84 ranges
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("invalid coordinates %v, %v", lat, lng)
	}
	return nil
}

// SetLocation records the user's current position
func (s *Store) SetLocation(ctx context.Context, lat, lng float64) (models.Location, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return models.Location{}, err
	}
	loc := models.NewLocation(lat, lng, s.now())
	if err := s.put(ctx, KeyUserLocation, loc); err != nil {
		return models.Location{}, err
	}
	return loc, nil
}

// SelectPlace records a chosen address as both the saved address and the
// current position
func (s *Store) SelectPlace(ctx context.Context, p Place) (models.AddressLocation, error) {
	if err := ValidateCoordinates(p.Lat, p.Lng); err != nil {
		return models.AddressLocation{}, err
	}
	now := s.now()
	saved := models.AddressLocation{
		Lat:       p.Lat,
		Lng:       p.Lng,
		Address:   p.Address,
		Timestamp: now.UnixMilli(),
	}
	if err := s.put(ctx, KeySavedAddress, saved); err != nil {
		return models.AddressLocation{}, err
	}
	if err := s.put(ctx, KeyUserLocation, models.NewLocation(p.Lat, p.Lng, now)); err != nil {
		return models.AddressLocation{}, err
	}
	return saved, nil
}

// Location returns the current position, or nil when none is recorded
func (s *Store) Location(ctx context.Context) (*models.Location, error) {
	var loc models.Location
	ok, err := s.get(ctx, KeyUserLocation, &loc)
	if err != nil || !ok {
		return nil, err
	}
	return &loc, nil
}

// SavedAddress returns the saved address, or nil when none is recorded
func (s *Store) SavedAddress(ctx context.Context) (*models.AddressLocation, error) {
	var saved models.AddressLocation
	ok, err := s.get(ctx, KeySavedAddress, &saved)
	if err != nil || !ok {
		return nil, err
	}
	return &saved, nil
}

// LastLocation returns the position to attach to outbound messages. Storage
// failures are logged and treated as no location.
func (s *Store) LastLocation() *models.Location {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	loc, err := s.Location(ctx)
	if err != nil {
		logger.Warn("failed to read location", "scope", s.scope, "err", err)
		return nil
	}
	return loc
}

// Clear forgets everything stored in the scope
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.ClearScope(ctx, s.scope)
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.kv.Put(ctx, s.scope, key, data)
}

func (s *Store) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.kv.Get(ctx, s.scope, key)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
