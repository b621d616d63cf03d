package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DASHBOARD_TIMEZONE", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Dashboard.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want %q", cfg.Dashboard.Timezone, "UTC")
	}
	if cfg.Dashboard.RecentLimit != 10 {
		t.Errorf("RecentLimit = %d, want 10", cfg.Dashboard.RecentLimit)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Brokers = %v, want [localhost:9092]", cfg.Kafka.Brokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DEDUP_TTL", "90m")
	t.Setenv("DASHBOARD_TIMEZONE", "Africa/Kigali")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := len(cfg.Kafka.Brokers); got != 2 {
		t.Fatalf("len(Brokers) = %d, want 2 (%v)", got, cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers[1] = %q, want %q", cfg.Kafka.Brokers[1], "k2:9092")
	}
	if cfg.Redis.DedupTTL != 90*time.Minute {
		t.Errorf("DedupTTL = %v, want 90m", cfg.Redis.DedupTTL)
	}
	loc, err := cfg.Dashboard.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.String() != "Africa/Kigali" {
		t.Errorf("Location = %q, want Africa/Kigali", loc.String())
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("DASHBOARD_TIMEZONE", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestValidateRecentLimit(t *testing.T) {
	cfg := &Config{
		Kafka:     KafkaConfig{Brokers: []string{"localhost:9092"}},
		Dashboard: DashboardConfig{Timezone: "UTC", RecentLimit: 0},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero recent limit")
	}
}

func TestValidateFetchTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		cfg := &Config{
			Kafka:     KafkaConfig{Brokers: []string{"localhost:9092"}},
			Dashboard: DashboardConfig{Timezone: "UTC", RecentLimit: 10, FetchTimeout: d, MaxCustomDays: 366},
		}
		if err := cfg.Validate(); err == nil {
			t.Errorf("FetchTimeout %v: expected error", d)
		}
	}
}

func TestLoadMaxCustomDays(t *testing.T) {
	t.Setenv("DASHBOARD_MAX_CUSTOM_DAYS", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Dashboard.MaxCustomDays != 366 {
		t.Errorf("MaxCustomDays = %d, want 366", cfg.Dashboard.MaxCustomDays)
	}

	t.Setenv("DASHBOARD_MAX_CUSTOM_DAYS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero max custom days")
	}
}
