package main

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/kjannette/chart-cache/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestServe_StoreOpenFailureReturnsError(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "missing", "chart_cache.db")}
	if err := serve(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unopenable store")
	}
}

func TestServe_ListenFailureClosesStore(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	core, logs := observer.New(zap.InfoLevel)
	cfg := &config.Config{
		DBPath: filepath.Join(t.TempDir(), "chart_cache.db"),
		Port:   ln.Addr().(*net.TCPAddr).Port,
	}
	if err := serve(cfg, zap.New(core)); err == nil {
		t.Fatal("expected error when the port is taken")
	}
	if logs.FilterMessage("store closed").Len() != 1 {
		t.Fatalf("expected store to be closed on failure, got logs %v", logs.All())
	}
}
