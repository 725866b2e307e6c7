package types

import "testing"

func TestRunStatsSnapshot(t *testing.T) {
	s := NewRunStats()
	s.Attempted.Add(5)
	s.Succeeded.Add(3)
	s.Failed.Add(2)
	s.Duplicates.Add(1)
	s.PagesWalked.Add(4)

	snap := s.Snapshot()
	if snap["attempted"] != int64(5) || snap["succeeded"] != int64(3) || snap["failed"] != int64(2) {
		t.Errorf("snapshot counters = %v", snap)
	}
	if snap["duplicates"] != int64(1) || snap["pages_walked"] != int64(4) {
		t.Errorf("snapshot counters = %v", snap)
	}
	if _, ok := snap["elapsed"].(string); !ok {
		t.Error("elapsed missing from snapshot")
	}
}
