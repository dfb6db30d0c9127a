package domain

import "strings"

// Source is the intake channel a count came from.
type Source string

const (
	SourceManual Source = "Manual"
	SourceForms  Source = "Forms"
	SourceSystem Source = "System"
)

// sourcePriority breaks submission-time ties: System beats Forms beats Manual.
var sourcePriority = map[Source]int{
	SourceManual: 0,
	SourceForms:  1,
	SourceSystem: 2,
}

// Priority returns the tie-break rank of the source; unknown sources rank lowest.
func (s Source) Priority() int {
	if p, ok := sourcePriority[s]; ok {
		return p
	}
	return -1
}

// ParseSource returns the source for a label (case-insensitive).
func ParseSource(label string) (Source, bool) {
	for s := range sourcePriority {
		if strings.EqualFold(string(s), strings.TrimSpace(label)) {
			return s, true
		}
	}
	return "", false
}

// Checkpoint is a point in the counting cycle.
type Checkpoint string

const (
	CheckpointBOM Checkpoint = "BOM"
	CheckpointMID Checkpoint = "MID"
	CheckpointEOM Checkpoint = "EOM"
)

// ParseCheckpoint returns the checkpoint for a label (case-insensitive).
func ParseCheckpoint(label string) (Checkpoint, bool) {
	switch Checkpoint(strings.ToUpper(strings.TrimSpace(label))) {
	case CheckpointBOM:
		return CheckpointBOM, true
	case CheckpointMID:
		return CheckpointMID, true
	case CheckpointEOM:
		return CheckpointEOM, true
	}
	return "", false
}

// Location is the physical zone of a count.
type Location string

const (
	LocationInStore     Location = "in_store"
	LocationBackOfStore Location = "back_of_store"
)

// ParseLocation accepts "in_store", "In Store", "back-of-store" and similar spellings.
func ParseLocation(label string) (Location, bool) {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch Location(norm) {
	case LocationInStore:
		return LocationInStore, true
	case LocationBackOfStore:
		return LocationBackOfStore, true
	}
	return "", false
}

// Confidence marks whether a forecast used the SKU's own history.
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceLow  Confidence = "LOW"
)

// Priority is the urgency tier of a buy plan row.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Rank orders priorities most urgent first.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}
