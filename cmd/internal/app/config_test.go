package app

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel default: %q", cfg.LogLevel)
	}
	if cfg.RotateInterval != 5*time.Second {
		t.Fatalf("RotateInterval default: %v", cfg.RotateInterval)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval default: %v", cfg.PollInterval)
	}
	if cfg.LocationTimeout != 20*time.Second {
		t.Fatalf("LocationTimeout default: %v", cfg.LocationTimeout)
	}
	if cfg.ProximityRadiusM != 50 {
		t.Fatalf("ProximityRadiusM default: %v", cfg.ProximityRadiusM)
	}
	if cfg.HasLocation {
		t.Fatalf("HasLocation default: true")
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("ROLLCALL_LOG_LEVEL", "debug")
	t.Setenv("ROLLCALL_SUBJECT", "Physics")
	t.Setenv("ROLLCALL_SECTION", "A")
	t.Setenv("ROLLCALL_ROTATE_INTERVAL", "8s")
	t.Setenv("ROLLCALL_PROXIMITY_RADIUS_M", "75.5")
	t.Setenv("ROLLCALL_LATITUDE", "28.6139")
	t.Setenv("ROLLCALL_LONGITUDE", "77.2090")
	t.Setenv("ROLLCALL_ALLOW_NO_LOCATION", "true")
	t.Setenv("ROLLCALL_DB_MAX_CONNS", "25")

	cfg := LoadConfig()

	if cfg.LogLevel != "debug" || cfg.Subject != "Physics" || cfg.Section != "A" {
		t.Fatalf("LoadConfig: %+v", cfg)
	}
	if cfg.RotateInterval != 8*time.Second {
		t.Fatalf("RotateInterval: %v", cfg.RotateInterval)
	}
	if cfg.ProximityRadiusM != 75.5 {
		t.Fatalf("ProximityRadiusM: %v", cfg.ProximityRadiusM)
	}
	if !cfg.HasLocation || cfg.Latitude != 28.6139 || cfg.Longitude != 77.2090 {
		t.Fatalf("location: %+v", cfg)
	}
	if !cfg.AllowNoLocation {
		t.Fatalf("AllowNoLocation: false")
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("DBMaxConns: %d", cfg.DBMaxConns)
	}
}

func TestLoadConfig_LocationNeedsBothCoordinates(t *testing.T) {
	t.Setenv("ROLLCALL_LATITUDE", "28.6139")

	cfg := LoadConfig()
	if cfg.HasLocation {
		t.Fatalf("HasLocation with only a latitude")
	}
}

func TestEnvHelpers_BadValuesFallBack(t *testing.T) {
	t.Setenv("ROLLCALL_ROTATE_INTERVAL", "not-a-duration")
	t.Setenv("ROLLCALL_DB_MAX_CONNS", "-3")
	t.Setenv("ROLLCALL_PROXIMITY_RADIUS_M", "-1")

	cfg := LoadConfig()
	if cfg.RotateInterval != 5*time.Second {
		t.Fatalf("RotateInterval fallback: %v", cfg.RotateInterval)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("DBMaxConns fallback: %d", cfg.DBMaxConns)
	}
	if cfg.ProximityRadiusM != 50 {
		t.Fatalf("ProximityRadiusM fallback: %v", cfg.ProximityRadiusM)
	}
}
