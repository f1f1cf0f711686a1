package loquax

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/internal/appconfig"
	"pkt.systems/loquax/schema"
)

type stubRunner struct{}

func (stubRunner) Run(context.Context, core.RunRequest) (core.RunHandle, error) {
	return nil, schema.ErrInterpreterNotFound
}

func TestNewRequiresEnabledService(t *testing.T) {
	_, err := New(ServerConfig{}, Deps{Runner: stubRunner{}})
	if err == nil {
		t.Fatalf("expected error without enabled services")
	}
}

func TestNewRequiresRunner(t *testing.T) {
	_, err := New(ServerConfig{}, Deps{}, WithSSH())
	if err == nil {
		t.Fatalf("expected error without runner")
	}
}

func TestServerStartStop(t *testing.T) {
	dir := t.TempDir()
	cfg := ServerConfig{
		SSH: appconfig.SSHConfig{
			Addr:        "127.0.0.1:0",
			HostKeyPath: filepath.Join(dir, "ssh_host_key"),
		},
	}
	srv, err := New(cfg, Deps{Runner: stubRunner{}}, WithSSH())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Start(ctx); err == nil {
		t.Fatalf("expected second start to fail")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Wait did not return after stop")
	}
}

func TestWaitBeforeStart(t *testing.T) {
	srv, err := New(ServerConfig{SSH: appconfig.SSHConfig{Addr: "127.0.0.1:0"}}, Deps{Runner: stubRunner{}}, WithSSH())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Wait(); err == nil {
		t.Fatalf("expected error before start")
	}
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	srv, err := New(ServerConfig{SSH: appconfig.SSHConfig{Addr: "127.0.0.1:0"}}, Deps{Runner: stubRunner{}}, WithSSH())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
