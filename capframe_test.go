package capframe

import "testing"

func TestIsVersionCompatible(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.2.0", "1.1.9", true},
		{"2.0.0", "1.9.9", true},
		{"1.0.0", "1.0.1", false},
		{"0.9.0", "1.0.0", false},
	}
	for _, tt := range tests {
		if got := isVersionCompatible(tt.version, tt.min); got != tt.want {
			t.Errorf("isVersionCompatible(%q, %q) = %v, want %v", tt.version, tt.min, got, tt.want)
		}
	}
}

func TestValidateModuleVersions(t *testing.T) {
	if err := validateModuleVersions(); err != nil {
		t.Fatalf("validateModuleVersions() = %v", err)
	}
}

func TestCheckModuleVersions(t *testing.T) {
	tests := []struct {
		name    string
		module  moduleVersion
		wantErr bool
	}{
		{"current", moduleVersion{"batch", "1.1.0", "1.1.0", "1.1.0"}, false},
		{"newer and still compatible", moduleVersion{"batch", "1.3.0", "1.0.0", "1.1.0"}, false},
		{"older than required", moduleVersion{"batch", "1.0.0", "1.0.0", "1.1.0"}, true},
		{"dropped required version", moduleVersion{"batch", "2.0.0", "2.0.0", "1.1.0"}, true},
	}
	for _, tt := range tests {
		err := checkModuleVersions([]moduleVersion{tt.module})
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: checkModuleVersions() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
