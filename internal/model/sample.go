package model

import (
	"encoding/json"
	"time"
)

// History event actions appended to a sample's data.history array.
const (
	HistoryInserted   = "inserted"
	HistoryMoved      = "moved"
	HistoryArchived   = "archived"
	HistoryUnarchived = "unarchived"
	HistoryCheckedOut = "checked_out"
	HistoryCheckedIn  = "checked_in"
)

// HistoryEvent is one entry of a sample's embedded, append-only history
// log.  From/To fields are only set for placement-affecting actions.
type HistoryEvent struct {
	When          time.Time `json:"when"`
	Action        string    `json:"action"`
	User          string    `json:"user"`
	Source        string    `json:"source"`
	Reason        string    `json:"reason,omitempty"`
	FromContainer string    `json:"from_container,omitempty"`
	FromPosition  string    `json:"from_position,omitempty"`
	ToContainer   string    `json:"to_container,omitempty"`
	ToPosition    string    `json:"to_position,omitempty"`
}

// SampleData is the free-form jsonb payload stored per sample.  Extra
// holds arbitrary client-supplied keys; History is the append-only
// event log.  The two are flattened into a single JSON object on the
// wire so that clients see `data.history` next to their own keys.
type SampleData struct {
	Extra   map[string]any `json:"-"`
	History []HistoryEvent `json:"history"`
}

// MarshalJSON flattens Extra alongside the history array.
func (d SampleData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+1)
	for k, v := range d.Extra {
		if k == "history" {
			continue
		}
		out[k] = v
	}
	hist := d.History
	if hist == nil {
		hist = []HistoryEvent{}
	}
	out["history"] = hist
	return json.Marshal(out)
}

// UnmarshalJSON splits the history array back out of the flat object.
func (d *SampleData) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Extra = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "history" {
			if err := json.Unmarshal(v, &d.History); err != nil {
				return err
			}
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		d.Extra[k] = val
	}
	return nil
}

// Merge overlays client-supplied keys onto the existing payload without
// touching the history log.
func (d *SampleData) Merge(extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	if d.Extra == nil {
		d.Extra = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		if k == "history" {
			continue
		}
		d.Extra[k] = v
	}
}

// Sample is one row of the samples table.  A sample row is either
// "placed" (ContainerID+Position set, not checked out) or "checked out"
// (location nulled, previous location stashed), never both.  For a
// given SampleID at most one non-archived row should exist; archived
// duplicates may coexist.
type Sample struct {
	ID                  string     `json:"id"`
	SampleID            string     `json:"sample_id"`
	ContainerID         *string    `json:"container_id"`
	Position            *string    `json:"position"`
	IsArchived          bool       `json:"is_archived"`
	IsTraining          bool       `json:"is_training"`
	IsCheckedOut        bool       `json:"is_checked_out"`
	CheckedOutBy        *string    `json:"checked_out_by"`
	CheckedOutAt        *time.Time `json:"checked_out_at"`
	PreviousContainerID *string    `json:"previous_container_id"`
	PreviousPosition    *string    `json:"previous_position"`
	Data                SampleData `json:"data"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PlacedAt reports whether the sample currently occupies the given
// container/position pair.  Position comparison is done on the stored
// (already normalized) value.
func (s *Sample) PlacedAt(containerID, position string) bool {
	return s.ContainerID != nil && *s.ContainerID == containerID &&
		s.Position != nil && *s.Position == position
}
