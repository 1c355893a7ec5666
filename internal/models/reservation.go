package models

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat renders reservation dates the way users see them in chat.
const DateFormat = "2 January 2006"

// ReservationRecord is the JSON blob stored per resource key. Records are
// never mutated in place: a successful reserve creates one, a successful
// unreserve deletes it, and that is the whole lifecycle.
type ReservationRecord struct {
	HolderID    string    `json:"id"`
	HolderName  string    `json:"name,omitempty"`
	HolderEmail string    `json:"email,omitempty"`
	ReservedAt  time.Time `json:"since"`
	Channel     string    `json:"channel,omitempty"`
}

// DisplayName returns the best human-readable name for the holder.
func (r *ReservationRecord) DisplayName() string {
	if r.HolderName != "" {
		return r.HolderName
	}
	return r.HolderID
}

// Requester identifies the user behind a slash command. ID is the
// authoritative identity for authorization checks; name and email are
// presentation only.
type Requester struct {
	ID      string
	Name    string
	Email   string
	Channel string
}

// ResourceKey identifies what is reserved. Service may be empty when the
// deployment runs with whole-environment reservations only.
type ResourceKey struct {
	Environment string
	Service     string
}

func (k ResourceKey) String() string {
	if k.Service == "" {
		return k.Environment
	}
	return k.Environment + "-" + k.Service
}

// Label is the user-facing spelling of the key.
func (k ResourceKey) Label() string {
	if k.Service == "" {
		return fmt.Sprintf("environment `%s`", k.Environment)
	}
	return fmt.Sprintf("service `%s` on `%s`", k.Service, k.Environment)
}

// ParseResourceKey splits a stored key back into its parts. Environment
// names are forbidden from containing '-' (enforced by vocabulary
// validation), so the first dash is the separator.
func ParseResourceKey(raw string) (ResourceKey, error) {
	if raw == "" {
		return ResourceKey{}, fmt.Errorf("empty resource key")
	}
	env, svc, found := strings.Cut(raw, "-")
	if !found {
		return ResourceKey{Environment: raw}, nil
	}
	if env == "" || svc == "" {
		return ResourceKey{}, fmt.Errorf("malformed resource key: %q", raw)
	}
	return ResourceKey{Environment: env, Service: svc}, nil
}

// Reservation pairs a key with its record, as returned by List.
type Reservation struct {
	Key    ResourceKey
	Record ReservationRecord
}

// HolderReservations groups everything one holder currently has reserved,
// as consumed by the reminder sweep.
type HolderReservations struct {
	HolderID   string
	HolderName string
	Channel    string
	Items      []Reservation
}
