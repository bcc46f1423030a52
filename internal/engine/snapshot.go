package engine

import (
	"github.com/zonewatch/riskcore/internal/domain"
)

// Snapshot is an immutable view of the last committed cycle's records, keyed
// by zone ID. Spillover reads neighbor risk from here, never from records
// produced mid-cycle, so assessment order cannot change results.
type Snapshot struct {
	records map[string]domain.FusedRiskRecord
}

// NewSnapshot builds a snapshot from a set of committed records. The map is
// copied; callers may reuse theirs.
func NewSnapshot(records map[string]domain.FusedRiskRecord) *Snapshot {
	cp := make(map[string]domain.FusedRiskRecord, len(records))
	for id, rec := range records {
		cp[id] = rec
	}
	return &Snapshot{records: cp}
}

// PreviousRecord returns the committed record for zoneID, if any.
func (s *Snapshot) PreviousRecord(zoneID string) (domain.FusedRiskRecord, bool) {
	if s == nil {
		return domain.FusedRiskRecord{}, false
	}
	rec, ok := s.records[zoneID]
	return rec, ok
}

// Len reports the number of zones in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}
