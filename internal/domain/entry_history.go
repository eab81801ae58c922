package domain

import "time"

// EntryHistory is one audited field change on a time entry.
type EntryHistory struct {
	ID        int64     `json:"id"`
	EntryID   int64     `json:"entryId"`
	FieldName string    `json:"fieldName"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	ChangedAt time.Time `json:"changedAt"`
}

// NewEntryHistory creates a history record for a field change
func NewEntryHistory(entryID int64, fieldName, oldValue, newValue string, at time.Time) *EntryHistory {
	return &EntryHistory{
		EntryID:   entryID,
		FieldName: fieldName,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedAt: at,
	}
}
