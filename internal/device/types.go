package device

import "time"

// Appliance is a catalogued appliance.
type Appliance struct {
	// ID is the stable handle, a UUID string.
	ID string `json:"id"`

	// Name is the appliance name as it appears in bus topics.
	Name string `json:"name"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
