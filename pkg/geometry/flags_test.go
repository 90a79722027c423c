package geometry

import "testing"

func TestParseRayFlags(t *testing.T) {
	tests := []struct {
		input   string
		want    RayFlags
		wantErr bool
	}{
		{"minimal", FlagMinimal, false},
		{"minimal|uv", FlagMinimal | FlagUV, false},
		{"UV, dpduv", FlagUV | FlagDPDUV, false},
		{"all", FlagAll, false},
		{"all|follow_shape", FlagAll | FlagFollowShape, false},
		{"", 0, false},
		{"minimal|bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRayFlags(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRayFlags_String(t *testing.T) {
	if s := (FlagMinimal | FlagBoundaryTest).String(); s != "minimal|boundary_test" {
		t.Errorf("Expected minimal|boundary_test, got %s", s)
	}
	if s := RayFlags(0).String(); s != "none" {
		t.Errorf("Expected none, got %s", s)
	}

	round, err := ParseRayFlags(FlagAll.String())
	if err != nil || round != FlagAll {
		t.Errorf("Expected %v to parse back, got %v (%v)", FlagAll, round, err)
	}
	if !FlagAll.Has(FlagUV | FlagBoundaryTest) {
		t.Errorf("Expected FlagAll to include uv and boundary_test")
	}
	if FlagAll.Has(FlagFollowShape) {
		t.Errorf("Expected FlagAll to exclude policy flags")
	}
}
