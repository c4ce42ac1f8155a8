package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "STORE_DRIVER", "JWT_TTL", "TIMEZONE", "SERIALIZE_ADMISSIONS", "CORS_ALLOWED_ORIGINS", "SERVICES_CATALOG_PATH"} {
		t.Setenv(k, "")
	}
	t.Setenv("JWT_SECRET", "secret")
}

func TestFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("JWTTTL = %s, want 2h", cfg.JWTTTL)
	}
	if cfg.SerializeAdmissions {
		t.Fatal("admissions are not serialized by default")
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SERIALIZE_ADMISSIONS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://studio.example")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory || cfg.JWTTTL != 30*time.Minute || !cfg.SerializeAdmissions {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("Location = %v", cfg.Location)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"https://studio.example"}) {
		t.Fatalf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {"JWT_SECRET": ""},
		"bad driver":     {"STORE_DRIVER": "sqlite"},
		"bad ttl":        {"JWT_TTL": "forever"},
		"negative ttl":   {"JWT_TTL": "-1h"},
		"bad timezone":   {"TIMEZONE": "Mars/Olympus_Mons"},
		"no cors origin": {"CORS_ALLOWED_ORIGINS": " , "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestFromEnvWrapsTTLError(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_TTL", "forever")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Unwrap(err) == nil {
		t.Fatalf("JWT_TTL error %q does not wrap the parse error", err)
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestLoadCatalog(t *testing.T) {
	fallback := []string{"Clase de Yoga"}
	got, err := LoadCatalog("", fallback)
	if err != nil || !reflect.DeepEqual(got, fallback) {
		t.Fatalf("empty path: %v, %v", got, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "services.yaml")
	if err := os.WriteFile(path, []byte("group_services:\n  - Pilates Grupal\n  - \"  \"\n  - Danza Grupal\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = LoadCatalog(path, fallback)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Pilates Grupal", "Danza Grupal"}) {
		t.Fatalf("LoadCatalog = %v", got)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("group_services: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(empty, fallback); err == nil {
		t.Fatal("expected error for a catalog without group services")
	}
	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml"), fallback); err == nil {
		t.Fatal("expected error for a missing file")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("group_services: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(bad, fallback); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
