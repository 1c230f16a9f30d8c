package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Contexts) != 0 || cfg.CurrentContext != "" {
		t.Errorf("cfg = %+v, want empty", cfg)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("LoadConfig should not create the file, stat err = %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, _ := LoadConfig(path)

	if err := cfg.AddContext("ward", &Context{
		DB:        "sqlite:///tmp/ward.db",
		Rehydrate: true,
		Export:    "s3://backups/ward",
		S3Region:  "eu-west-1",
	}); err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if err := cfg.AddContext("lab", &Context{DB: "memory://"}); err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if cfg.CurrentContext != "ward" {
		t.Errorf("CurrentContext = %q, want first added", cfg.CurrentContext)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	ctx, err := loaded.ResolveContext("")
	if err != nil {
		t.Fatalf("ResolveContext: %v", err)
	}
	if ctx.Name != "ward" || ctx.DB != "sqlite:///tmp/ward.db" || !ctx.Rehydrate ||
		ctx.Export != "s3://backups/ward" || ctx.S3Region != "eu-west-1" {
		t.Errorf("ward = %+v", ctx)
	}
	if got := loaded.ListContexts(); !slices.Equal(got, []string{"lab", "ward"}) {
		t.Errorf("ListContexts = %v", got)
	}
}

func TestConfigUseAndDelete(t *testing.T) {
	cfg, _ := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	cfg.AddContext("a", &Context{})
	cfg.AddContext("b", &Context{})

	if err := cfg.UseContext("b"); err != nil {
		t.Fatalf("UseContext: %v", err)
	}
	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) should fail")
	}
	if err := cfg.DeleteContext("b"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext = %q after deleting it", cfg.CurrentContext)
	}
	ctx, err := cfg.ResolveContext("")
	if err != nil || ctx.DB != "" {
		t.Errorf("ResolveContext with no current = %+v, %v", ctx, err)
	}
	if _, err := cfg.ResolveContext("b"); err == nil {
		t.Error("ResolveContext(b) should fail after delete")
	}
}

func TestContextSet(t *testing.T) {
	var ctx Context
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"db", "badger:///data", false},
		{"rehydrate", "true", false},
		{"rehydrate", "maybe", true},
		{"export", "file:///backups", false},
		{"s3_region", "us-east-1", false},
		{"s3_endpoint", "http://localhost:9000", false},
		{"api_key", "x", true},
	}
	for _, tt := range tests {
		err := ctx.Set(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Set(%q, %q) err = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
		}
	}
	if ctx.DB != "badger:///data" || !ctx.Rehydrate || ctx.Export != "file:///backups" ||
		ctx.S3Region != "us-east-1" || ctx.S3Endpoint != "http://localhost:9000" {
		t.Errorf("ctx = %+v", ctx)
	}
}

func TestPaths(t *testing.T) {
	p := &Paths{HomeDir: "/home/tech"}
	if got := p.ConfigFile(); got != "/home/tech/.medstudy/config.yaml" {
		t.Errorf("ConfigFile = %q", got)
	}
	if got := p.SnapshotDir(); got != "/home/tech/.medstudy/snapshots" {
		t.Errorf("SnapshotDir = %q", got)
	}
}
