package domain

import (
	"time"
)

type SyncType string

const (
	SyncFull        SyncType = "full"
	SyncIncremental SyncType = "incremental"
)

// ParseSyncType defaults to a full sync for anything it does not recognise.
func ParseSyncType(s string) SyncType {
	if SyncType(s) == SyncIncremental {
		return SyncIncremental
	}
	return SyncFull
}

type SyncStatus string

const (
	SyncIdle      SyncStatus = "idle"
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
	SyncSkipped   SyncStatus = "skipped"
)

// Sync triggers.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerStartup   = "startup"
)

// EntityCount tallies one stage of a sync.
type EntityCount struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type SyncCounts struct {
	Products  EntityCount `json:"products"`
	Customers EntityCount `json:"customers"`
	Orders    EntityCount `json:"orders"`
	Refreshed int         `json:"refreshed"`
}

// SyncResult describes one PerformSync call. Skipped calls carry only Status.
type SyncResult struct {
	SyncID     string        `json:"syncId,omitempty"`
	Status     SyncStatus    `json:"status"`
	Trigger    string        `json:"trigger,omitempty"`
	Type       SyncType      `json:"type,omitempty"`
	StartedAt  time.Time     `json:"startedAt,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
	Counts     SyncCounts    `json:"counts"`
	Error      string        `json:"error,omitempty"`
}

// SyncState is what the status endpoint reports.
type SyncState struct {
	Status      SyncStatus  `json:"status"`
	Running     bool        `json:"running"`
	LastResult  *SyncResult `json:"lastResult,omitempty"`
	LastSuccess *time.Time  `json:"lastSuccess,omitempty"`
}

type PollerStatus struct {
	Running           bool      `json:"running"`
	Interval          string    `json:"interval"`
	LastOrderCheck    time.Time `json:"lastOrderCheck"`
	LastCustomerCheck time.Time `json:"lastCustomerCheck"`
}

type PollResult struct {
	NewOrders    int `json:"newOrders"`
	NewCustomers int `json:"newCustomers"`
}

// ListFilter narrows Shopify REST listings. Zero values are omitted.
type ListFilter struct {
	CreatedAtMin time.Time
	UpdatedAtMin time.Time
	Limit        int
	Order        string
	Status       string
}
