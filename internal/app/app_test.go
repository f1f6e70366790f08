package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iliyamo/roadassist-console/internal/apitest"
	"github.com/iliyamo/roadassist-console/internal/config"
)

func TestOpenStore_Backends(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{config.StoreMemory, "*repository.MemoryKV"},
		{config.StoreFile, "*repository.FileKV"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Config{Store: config.StoreConfig{Backend: tt.backend, Dir: t.TempDir()}}
			kv, rdb, closeFn, err := OpenStore(context.Background(), cfg)
			if err != nil {
				t.Fatalf("OpenStore: %v", err)
			}
			defer closeFn()
			if rdb != nil {
				t.Error("redis client returned for a non-redis backend")
			}
			if got := fmt.Sprintf("%T", kv); got != tt.want {
				t.Errorf("kv = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNew_SessionSurvivesRestart(t *testing.T) {
	api := apitest.NewServer(t)
	cfg := config.Config{
		APIBaseURL:     api.BaseURL(),
		APITimeout:     5 * time.Second,
		RefreshTimeout: 5 * time.Second,
		Store:          config.StoreConfig{Backend: config.StoreFile, Dir: t.TempDir()},
	}

	first, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := first.Auth.Login(context.Background(), "ops1", apitest.Password); err != nil {
		t.Fatalf("Login: %v", err)
	}
	first.Close()

	second, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer second.Close()
	if !second.Session.IsAuthenticated() {
		t.Fatal("session not restored from the file store")
	}
	if _, err := second.Client.Providers(context.Background()); err != nil {
		t.Errorf("Providers with restored session: %v", err)
	}
}
