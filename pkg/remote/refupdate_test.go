package remote

import (
	"testing"

	"github.com/odvcencio/hull/pkg/object"
)

func TestClassifyRefUpdate(t *testing.T) {
	tests := []struct {
		name           string
		old, new       object.Hash
		updated        map[string]object.Hash
		nonFastForward bool
		want           RefUpdateStatus
	}{
		{
			name: "up to date",
			old:  "a", new: "a",
			want: RefUpdateUpToDate,
		},
		{
			name: "applied",
			old:  "a", new: "b",
			updated: map[string]object.Hash{"heads/main": "b"},
			want:    RefUpdateOK,
		},
		{
			name: "delete refused",
			old:  "a", new: "",
			updated: map[string]object.Hash{},
			want:    RefUpdateRejectedNoDelete,
		},
		{
			name:           "non-fast-forward refused",
			old:            "a", new: "b",
			updated:        map[string]object.Hash{},
			nonFastForward: true,
			want:           RefUpdateRejectedNonFastForward,
		},
		{
			name: "remote changed underneath",
			old:  "a", new: "b",
			updated: map[string]object.Hash{},
			want:    RefUpdateRejectedRemoteChanged,
		},
		{
			name: "unknown ref, remote refused anyway",
			old:  "", new: "b",
			updated: map[string]object.Hash{},
			want:    RefUpdateRejectedOtherReason,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyRefUpdate("heads/main", tc.old, tc.new, tc.updated, tc.nonFastForward)
			if got.Status != tc.want {
				t.Errorf("ClassifyRefUpdate(...) status = %s, want %s", got.Status, tc.want)
			}
		})
	}
}

func TestRefUpdateStatusRejected(t *testing.T) {
	rejected := []RefUpdateStatus{
		RefUpdateRejectedNoDelete,
		RefUpdateRejectedNonFastForward,
		RefUpdateRejectedRemoteChanged,
		RefUpdateRejectedOtherReason,
	}
	for _, s := range rejected {
		if !s.Rejected() {
			t.Errorf("%s.Rejected() = false, want true", s)
		}
	}

	accepted := []RefUpdateStatus{RefUpdateOK, RefUpdateUpToDate}
	for _, s := range accepted {
		if s.Rejected() {
			t.Errorf("%s.Rejected() = true, want false", s)
		}
	}
}

func TestPushSucceeded(t *testing.T) {
	ok := []RefUpdateResult{
		{Name: "heads/main", Status: RefUpdateOK},
		{Name: "tags/v1", Status: RefUpdateUpToDate},
	}
	if !PushSucceeded(ok) {
		t.Error("PushSucceeded(all-ok) = false, want true")
	}

	mixed := append(ok, RefUpdateResult{Name: "heads/dev", Status: RefUpdateRejectedNonFastForward})
	if PushSucceeded(mixed) {
		t.Error("PushSucceeded(one rejected) = true, want false")
	}

	if !PushSucceeded(nil) {
		t.Error("PushSucceeded(nil) = false, want true (vacuously)")
	}
}
