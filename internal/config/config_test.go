package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RECOGNITION_THRESHOLD", "")
	t.Setenv("DETECTOR_DIM", "")

	cfg := Load()

	if cfg.Recognition.Threshold != 0.5 {
		t.Errorf("default threshold = %v, want 0.5", cfg.Recognition.Threshold)
	}
	if cfg.Detector.Dim != 512 {
		t.Errorf("default detector dim = %d, want 512", cfg.Detector.Dim)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("default max open conns = %d, want 25", cfg.Database.MaxOpenConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RECOGNITION_THRESHOLD", "0.6")
	t.Setenv("DETECTOR_DIM", "128")
	t.Setenv("API_TOKEN", "secret")

	cfg := Load()

	if cfg.Recognition.Threshold != 0.6 {
		t.Errorf("threshold = %v, want 0.6", cfg.Recognition.Threshold)
	}
	if cfg.Detector.Dim != 128 {
		t.Errorf("detector dim = %d, want 128", cfg.Detector.Dim)
	}
	if cfg.Web.APIToken != "secret" {
		t.Errorf("api token = %q, want %q", cfg.Web.APIToken, "secret")
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RECOGNITION_THRESHOLD", "not-a-number")
	t.Setenv("DETECTOR_DIM", "-3")

	cfg := Load()

	if cfg.Recognition.Threshold != 0.5 {
		t.Errorf("threshold = %v, want default 0.5", cfg.Recognition.Threshold)
	}
	if cfg.Detector.Dim != 512 {
		t.Errorf("detector dim = %d, want default 512", cfg.Detector.Dim)
	}
}

func TestEmbeddedCohorts(t *testing.T) {
	cfg := Load()

	if len(cfg.Cohorts.DeprioritizedPrefixes) == 0 {
		t.Fatal("expected embedded deprioritized prefixes")
	}
	found := false
	for _, p := range cfg.Cohorts.DeprioritizedPrefixes {
		if p == "2BA22AI" {
			found = true
		}
	}
	if !found {
		t.Error("expected 2BA22AI in deprioritized prefixes")
	}
	if cfg.BranchName("CS") != "Computer Science" {
		t.Errorf("BranchName(CS) = %q", cfg.BranchName("CS"))
	}
	if cfg.BranchName("XX") != "XX" {
		t.Errorf("BranchName(XX) = %q, want passthrough", cfg.BranchName("XX"))
	}
}
