package elevation

import (
	"testing"
	"time"
)

func TestDecide(t *testing.T) {
	const timeout = 600 * time.Second
	now := int64(1_700_000_000)

	tests := []struct {
		name          string
		isAdmin       bool
		elevatedSince int64
		want          Decision
	}{
		{
			name:          "non-admin is a no-op",
			isAdmin:       false,
			elevatedSince: 0,
			want:          DecisionNoOp,
		},
		{
			name:          "non-admin with stale timestamp is still a no-op",
			isAdmin:       false,
			elevatedSince: now - 10_000,
			want:          DecisionNoOp,
		},
		{
			name:          "admin without timestamp is a permanent admin",
			isAdmin:       true,
			elevatedSince: 0,
			want:          DecisionDemotePermanentAdmin,
		},
		{
			name:          "fresh elevation refreshes",
			isAdmin:       true,
			elevatedSince: now - 1,
			want:          DecisionRefresh,
		},
		{
			name:          "elevation within window refreshes",
			isAdmin:       true,
			elevatedSince: now - 120,
			want:          DecisionRefresh,
		},
		{
			name:          "elevation exactly at the timeout boundary is still valid",
			isAdmin:       true,
			elevatedSince: now - 600,
			want:          DecisionRefresh,
		},
		{
			name:          "elevation one second past the boundary expires",
			isAdmin:       true,
			elevatedSince: now - 601,
			want:          DecisionExpire,
		},
		{
			name:          "long-expired elevation expires",
			isAdmin:       true,
			elevatedSince: now - 900,
			want:          DecisionExpire,
		},
		{
			name:          "elevation granted at now refreshes",
			isAdmin:       true,
			elevatedSince: now,
			want:          DecisionRefresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.isAdmin, tt.elevatedSince, now, timeout)
			if got != tt.want {
				t.Errorf("Decide(%v, %d, %d) = %v, want %v", tt.isAdmin, tt.elevatedSince, now, got, tt.want)
			}
		})
	}
}

func TestDecideNoOpIgnoresTime(t *testing.T) {
	// A non-admin must map to NoOp for any timestamp combination.
	for _, since := range []int64{0, 1, 500, 1_700_000_000} {
		for _, now := range []int64{0, 500, 1_700_000_000, 1_800_000_000} {
			if got := Decide(false, since, now, DefaultTimeout); got != DecisionNoOp {
				t.Fatalf("Decide(false, %d, %d) = %v, want NoOp", since, now, got)
			}
		}
	}
}

func TestDecisionString(t *testing.T) {
	tests := []struct {
		decision Decision
		want     string
	}{
		{DecisionNoOp, "noop"},
		{DecisionDemotePermanentAdmin, "demote_permanent_admin"},
		{DecisionExpire, "expire"},
		{DecisionRefresh, "refresh"},
		{Decision(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.decision.String(); got != tt.want {
			t.Errorf("Decision(%d).String() = %q, want %q", tt.decision, got, tt.want)
		}
	}
}
