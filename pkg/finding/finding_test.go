package finding

import "testing"

func TestDeriveDifficulty(t *testing.T) {
	cases := []struct {
		name        string
		origin      Origin
		dep         ServerDependency
		capability  Capability
		globalScope bool
		want        Difficulty
	}{
		{"inline attribute, no dependency", OriginInlineAttribute, DependencyNone, CapabilityUnknown, false, DifficultyEasy},
		{"internal block, no dependency", OriginInternalBlock, DependencyNone, CapabilityDataExchange, false, DifficultyEasy},
		{"internal block, low dependency", OriginInternalBlock, DependencyLow, CapabilityUnknown, false, DifficultyMedium},
		{"internal block, medium dependency", OriginInternalBlock, DependencyMedium, CapabilityUnknown, false, DifficultyMedium},
		{"external file is whitelist work", OriginExternalFile, DependencyNone, CapabilityUnknown, false, DifficultyMedium},
		{"high dependency always hard", OriginInlineAttribute, DependencyHigh, CapabilityUnknown, false, DifficultyHard},
		{"dynamic script loading always hard", OriginInternalBlock, DependencyNone, CapabilityScriptLoading, false, DifficultyHard},
		{"global event config hard", OriginInternalBlock, DependencyNone, CapabilityEventConfig, true, DifficultyHard},
		{"scoped event config stays easy", OriginInternalBlock, DependencyNone, CapabilityEventConfig, false, DifficultyEasy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveDifficulty(tc.origin, tc.dep, tc.capability, tc.globalScope)
			if got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestLogicalRequestCount(t *testing.T) {
	findings := []Finding{
		{Capability: CapabilityDataExchange, LogicalRequests: 1},
		{Capability: CapabilityEventConfig, LogicalRequests: 0},
		{Capability: CapabilityDataExchange, LogicalRequests: 2},
	}
	if got := LogicalRequestCount(findings); got != 3 {
		t.Fatalf("expected 3 logical requests, got %d", got)
	}
}
