package spotdl

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/savedl/internal/models"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	return NewAdapter(AdapterOpts{
		Command:     helperCommand(t),
		GracePeriod: time.Second,
		Logger:      log.New(io.Discard),
	})
}

func TestAdapterInvoke(t *testing.T) {
	tc := []struct {
		name       string
		url        string
		wantKind   models.OutcomeKind
		wantDetail string
	}{
		{name: "downloaded", url: "helper://ok", wantKind: models.Downloaded},
		{name: "skipped", url: "helper://skip", wantKind: models.Skipped},
		{name: "not found", url: "helper://notfound", wantKind: models.NotFound, wantDetail: "Obscure Artist - Rare Song"},
		{name: "failed", url: "helper://fail", wantKind: models.Failed, wantDetail: "AudioProviderError: network unreachable"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t)
			for _, dialect := range []models.Dialect{models.Legacy, models.Current} {
				cfg := models.BatchConfig{OutputDir: t.TempDir(), Format: "mp3", Dialect: dialect}
				item := models.WorkItem{Position: 7, URL: tt.url}

				got := adapter.Invoke(context.Background(), item, cfg, make(chan struct{}))
				if got.Kind != tt.wantKind {
					t.Errorf("%s: Invoke() kind = %v (%s), want %v", dialect, got.Kind, got.Detail, tt.wantKind)
				}
				if got.Detail != tt.wantDetail {
					t.Errorf("%s: Invoke() detail = %q, want %q", dialect, got.Detail, tt.wantDetail)
				}
				if got.Item != item {
					t.Errorf("%s: outcome item = %+v, want %+v", dialect, got.Item, item)
				}
			}
		})
	}

	t.Run("runs in output directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("HELPER_WANT_DIR", dir)
		adapter := newTestAdapter(t)
		cfg := models.BatchConfig{OutputDir: dir, Format: "mp3", Dialect: models.Current}

		got := adapter.Invoke(context.Background(), models.WorkItem{URL: "helper://pwd"}, cfg, make(chan struct{}))
		if got.Kind != models.Downloaded {
			t.Errorf("expected process to run in %s, got %v: %s", dir, got.Kind, got.Detail)
		}
	})

	t.Run("cancelled before start", func(t *testing.T) {
		adapter := NewAdapter(AdapterOpts{Command: []string{"savedl-definitely-not-installed"}, Logger: log.New(io.Discard)})
		cancelled := make(chan struct{})
		close(cancelled)

		got := adapter.Invoke(context.Background(), models.WorkItem{URL: "helper://ok"}, models.BatchConfig{OutputDir: t.TempDir(), Format: "mp3"}, cancelled)
		if got.Kind != models.Cancelled {
			t.Errorf("expected Cancelled without spawning, got %v: %s", got.Kind, got.Detail)
		}
	})

	t.Run("cancelled while running", func(t *testing.T) {
		adapter := newTestAdapter(t)
		cancelled := make(chan struct{})
		time.AfterFunc(200*time.Millisecond, func() { close(cancelled) })

		start := time.Now()
		cfg := models.BatchConfig{OutputDir: t.TempDir(), Format: "mp3", Dialect: models.Current}
		got := adapter.Invoke(context.Background(), models.WorkItem{URL: "helper://sleep"}, cfg, cancelled)

		if got.Kind != models.Cancelled {
			t.Errorf("expected Cancelled, got %v: %s", got.Kind, got.Detail)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("termination took %s", elapsed)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		adapter := newTestAdapter(t)
		cfg := models.BatchConfig{OutputDir: t.TempDir(), Format: "mp3", Dialect: models.Current, Timeout: 200 * time.Millisecond}

		got := adapter.Invoke(context.Background(), models.WorkItem{URL: "helper://sleep"}, cfg, make(chan struct{}))
		if got.Kind != models.Failed || !strings.Contains(got.Detail, "timed out") {
			t.Errorf("expected timeout failure, got %v: %s", got.Kind, got.Detail)
		}
	})

	t.Run("spawn failure", func(t *testing.T) {
		adapter := NewAdapter(AdapterOpts{Command: []string{"savedl-definitely-not-installed"}, Logger: log.New(io.Discard)})
		got := adapter.Invoke(context.Background(), models.WorkItem{URL: "https://open.spotify.com/track/x"}, models.BatchConfig{OutputDir: t.TempDir(), Format: "mp3"}, make(chan struct{}))
		if got.Kind != models.Failed || got.Detail == "" {
			t.Errorf("expected Failed with detail, got %v: %q", got.Kind, got.Detail)
		}
	})

	t.Run("missing output directory", func(t *testing.T) {
		adapter := newTestAdapter(t)
		cfg := models.BatchConfig{OutputDir: "/definitely/not/a/real/dir", Format: "mp3"}
		got := adapter.Invoke(context.Background(), models.WorkItem{URL: "helper://ok"}, cfg, make(chan struct{}))
		if got.Kind != models.Failed {
			t.Errorf("expected Failed, got %v", got.Kind)
		}
	})
}
