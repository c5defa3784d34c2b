// Package fleet keeps an in-memory registry of the vehicles reporting frames.
package fleet

import (
	"sync"
	"time"

	"github.com/visorax/visorax-go/internal/glare"
)

// Vehicle status values
const (
	StatusActive      = "active"
	StatusMaintenance = "maintenance"
)

// Location is a WGS84 position
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Vehicle is one fleet entry as served by GET /fleet/vehicles
type Vehicle struct {
	VehicleID       string    `json:"vehicle_id"`
	DriverID        string    `json:"driver_id"`
	Status          string    `json:"status"`
	CurrentLocation Location  `json:"current_location"`
	TotalIncidents  int       `json:"total_incidents"`
	LastSeen        time.Time `json:"last_seen"`
}

// Sighting is what an analysis tells the registry about a vehicle
type Sighting struct {
	VehicleID  string
	DriverID   string
	Location   *Location
	AlertLevel glare.AlertLevel
	At         time.Time
}

// IncidentLevel is the lowest alert level counted as an incident
const IncidentLevel = glare.AlertWarning

// Registry is safe for concurrent use. Vehicles are listed in the order they
// were first seen, seeds first.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	vehicles map[string]*Vehicle
}

// NewRegistry creates a registry holding seed
func NewRegistry(seed ...Vehicle) *Registry {
	r := &Registry{vehicles: make(map[string]*Vehicle, len(seed))}
	for _, v := range seed {
		if _, exists := r.vehicles[v.VehicleID]; exists {
			continue
		}
		r.vehicles[v.VehicleID] = &v
		r.order = append(r.order, v.VehicleID)
	}
	return r
}

// DefaultVehicles returns the demonstration fleet the service starts with
func DefaultVehicles() []Vehicle {
	return []Vehicle{
		{
			VehicleID:       "TN01AB1234",
			DriverID:        "Driver 001",
			Status:          StatusActive,
			CurrentLocation: Location{Latitude: 13.0827, Longitude: 80.2707},
			TotalIncidents:  3,
			LastSeen:        time.Date(2025, 10, 10, 17, 30, 0, 0, time.UTC),
		},
		{
			VehicleID:       "KL07CD5678",
			DriverID:        "Driver 002",
			Status:          StatusActive,
			CurrentLocation: Location{Latitude: 9.9312, Longitude: 76.2673},
			TotalIncidents:  1,
			LastSeen:        time.Date(2025, 10, 10, 17, 25, 0, 0, time.UTC),
		},
		{
			VehicleID:       "MH12EF9012",
			DriverID:        "Driver 003",
			Status:          StatusMaintenance,
			CurrentLocation: Location{Latitude: 19.0760, Longitude: 72.8777},
			TotalIncidents:  7,
			LastSeen:        time.Date(2025, 10, 10, 16, 30, 0, 0, time.UTC),
		},
	}
}

// List returns a copy of all vehicles
func (r *Registry) List() []Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Vehicle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.vehicles[id])
	}
	return out
}

// Get returns the vehicle with id
func (r *Registry) Get(id string) (Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[id]
	if !ok {
		return Vehicle{}, false
	}
	return *v, true
}

// Observe records a sighting. Unknown vehicles are registered as active.
// Sightings without a vehicle id are ignored.
func (r *Registry) Observe(s Sighting) {
	if s.VehicleID == "" {
		return
	}
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[s.VehicleID]
	if !ok {
		v = &Vehicle{VehicleID: s.VehicleID, Status: StatusActive}
		r.vehicles[s.VehicleID] = v
		r.order = append(r.order, s.VehicleID)
	}

	if s.DriverID != "" {
		v.DriverID = s.DriverID
	}
	if s.Location != nil {
		v.CurrentLocation = *s.Location
	}
	if at.After(v.LastSeen) {
		v.LastSeen = at.UTC().Truncate(time.Second)
	}
	if s.AlertLevel >= IncidentLevel {
		v.TotalIncidents++
	}
}
