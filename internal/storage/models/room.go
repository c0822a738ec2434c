// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Room is a bookable space, optionally linked to an external device asset.
type Room struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	AssetID          *string    `json:"openremoteAssetId,omitempty"`
	Timezone         *string    `json:"timezone,omitempty"`
	PowerAttribute   *string    `json:"powerAttribute,omitempty"`
	PowerLeadMinutes *int       `json:"powerLeadMinutes,omitempty"`
	LinkedAt         *time.Time `json:"openremoteLinkedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// HasDevice reports whether the room is linked to an external device asset.
func (r *Room) HasDevice() bool {
	return r.AssetID != nil && *r.AssetID != ""
}

// RoomLink is a partial update of a room's device binding. Nil fields are
// left untouched.
type RoomLink struct {
	RoomID           string  `json:"roomId"`
	AssetID          *string `json:"openremoteAssetId,omitempty"`
	Timezone         *string `json:"timezone,omitempty"`
	PowerAttribute   *string `json:"powerAttribute,omitempty"`
	PowerLeadMinutes *int    `json:"powerLeadMinutes,omitempty"`
}
