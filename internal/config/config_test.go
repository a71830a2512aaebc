package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()
	cfg := fromViper()

	if cfg.Scheduler.TickInterval != 10*time.Minute {
		t.Errorf("tick interval = %v, want 10m", cfg.Scheduler.TickInterval)
	}
	if cfg.Scheduler.RegionWorkers != 1 {
		t.Errorf("region workers = %d, want 1", cfg.Scheduler.RegionWorkers)
	}
	if cfg.Scheduler.StaleRunAfter != 2*time.Hour {
		t.Errorf("stale run after = %v, want 2h", cfg.Scheduler.StaleRunAfter)
	}
	if cfg.Commerce.APIVersion != "2024-01" || cfg.Commerce.PageLimit != 250 {
		t.Errorf("unexpected commerce defaults %+v", cfg.Commerce)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("storage backend = %q, want local", cfg.Storage.Backend)
	}
}

func TestEnvOverrides(t *testing.T) {
	viper.Reset()
	setDefaults()
	viper.AutomaticEnv()
	t.Setenv("SCHEDULER_JOB_TIMEOUT", "90s")
	t.Setenv("SCHEDULER_REGION_WORKERS", "4")
	t.Setenv("CACHE_ENABLED", "true")

	cfg := fromViper()
	if cfg.Scheduler.JobTimeout != 90*time.Second {
		t.Errorf("job timeout = %v, want 90s", cfg.Scheduler.JobTimeout)
	}
	if cfg.Scheduler.RegionWorkers != 4 {
		t.Errorf("region workers = %d, want 4", cfg.Scheduler.RegionWorkers)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled from env")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "r", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=r sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
