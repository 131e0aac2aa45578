package model

import "time"

// Container represents a physical storage container (freezer box, tube
// rack or plate).  The Layout string ("9x9", "5x5", "14x7") determines
// which grid positions are valid for samples stored in it.  Containers
// are soft-deleted by setting Archived, which hides them from active
// listings and occupancy checks; hard deletion cascades to the samples
// they hold.  Total and Used are derived occupancy numbers, not table
// columns.
type Container struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	Layout        string    `json:"layout"`
	Type          string    `json:"type"`
	SampleType    string    `json:"sample_type,omitempty"`
	Temperature   string    `json:"temperature"`
	Total         int       `json:"total"`
	Used          int       `json:"used"`
	Archived      bool      `json:"archived"`
	Training      bool      `json:"training"`
	ColdStorageID *string   `json:"cold_storage_id"`
	RackID        *string   `json:"rack_id"`
	RackPosition  *string   `json:"rack_position"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Samples       []Sample  `json:"samples,omitempty"`
}

// ColdStorageUnit is a physical freezer or fridge that holds racks and
// loose containers.
type ColdStorageUnit struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Temperature string    `json:"temperature"`
	CreatedAt   time.Time `json:"created_at"`
}

// Rack is a removable rack inside a cold storage unit.  Containers
// reference a rack plus a rack position.
type Rack struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ColdStorageID *string   `json:"cold_storage_id"`
	Capacity      int       `json:"capacity"`
	CreatedAt     time.Time `json:"created_at"`
}

// SampleType is a configurable sample category ("Plasma Tubes",
// "DP Pools", "IDT Plates", ...).  Managed through the admin API.
type SampleType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ContainerType pairs a container type name with its default layout.
type ContainerType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Layout    string    `json:"layout"`
	CreatedAt time.Time `json:"created_at"`
}
