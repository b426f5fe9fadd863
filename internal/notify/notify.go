// Package notify owns the dose-reminder queue: generating reminder rows
// for a protocol, replenishing the queue so a rolling horizon of future
// reminders always exists, and dispatching due reminders via web push and
// email.
//
// Pipeline: parse timing/frequency → project dose times → offset reminders
// → persist. A background dispatch worker sends due reminders.
package notify

import (
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// AssumedRemindersPerDay converts a count of queued reminders into an
	// estimate of coverage days. A heuristic carried over from the portal,
	// not derived from each protocol's actual dose hours.
	AssumedRemindersPerDay = 2

	// ReplenishThresholdDays is the minimum coverage a protocol keeps;
	// below it the sweeper tops the queue back up.
	ReplenishThresholdDays = 20

	// InteractiveWindowDays is the generation window when a user changes
	// reminder settings.
	InteractiveWindowDays = 7

	// ReplenishWindowDays is the generation window for sweep top-ups.
	ReplenishWindowDays = 30

	dispatchBatchSize = 100
)

// Notification delivery channels.
const (
	TypePush  = "push"
	TypeEmail = "email"
)

// TestProtocolID tags one-off pipeline test reminders. The zero UUID never
// collides with a real protocol row.
const TestProtocolID = "00000000-0000-0000-0000-000000000000"

// WriteMode selects the queue writer's behavior for existing unsent rows.
type WriteMode int

const (
	// Replace deletes all unsent rows for the protocol before inserting.
	// Used on interactive settings changes so stale lead times disappear.
	Replace WriteMode = iota

	// Append inserts only rows whose dose time is not already queued
	// unsent. The sweeper always appends; deleting here could destroy
	// near-term reminders already due for delivery.
	Append
)

func (m WriteMode) String() string {
	if m == Replace {
		return "replace"
	}
	return "append"
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Protocol is a user's active dosing regimen, read from storage. The
// timing label lives either in the Timing column or embedded in Notes as
// a "Timing: <label>" line; this package parses, never mutates.
type Protocol struct {
	ID          string
	UserID      string
	PeptideName string
	Frequency   string
	Timing      string
	Notes       string
	StartDate   *time.Time
	IsActive    bool
}

// Preference holds a user's reminder settings for one protocol.
type Preference struct {
	ID              string
	UserID          string
	ProtocolID      string
	PushEnabled     bool
	EmailEnabled    bool
	ReminderMinutes int
}

// Pending is a reminder row ready to be persisted or already loaded.
type Pending struct {
	ID           string
	UserID       string
	ProtocolID   string
	DoseTime     time.Time
	ReminderTime time.Time
	Type         string
	Sent         bool
	SentAt       *time.Time
}

// Subscription is a browser push subscription for one device.
type Subscription struct {
	Endpoint  string
	P256dhKey string
	AuthKey   string
}

// ScheduleOutcome reports what one scheduling pass did for a protocol.
type ScheduleOutcome struct {
	Scheduled int    `json:"scheduled"`
	Message   string `json:"message"`
}
