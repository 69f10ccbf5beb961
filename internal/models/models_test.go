package models

import (
	"errors"
	"testing"
	"time"
)

func TestBatchConfigValidate(t *testing.T) {
	valid := BatchConfig{OutputDir: "/music", Format: "mp3"}

	tc := []struct {
		name    string
		mutate  func(c *BatchConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *BatchConfig) {}},
		{name: "auto concurrency", mutate: func(c *BatchConfig) { c.Concurrency = 0 }},
		{name: "empty output dir", mutate: func(c *BatchConfig) { c.OutputDir = "  " }, wantErr: true},
		{name: "unknown format", mutate: func(c *BatchConfig) { c.Format = "aiff" }, wantErr: true},
		{name: "negative concurrency", mutate: func(c *BatchConfig) { c.Concurrency = -1 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *BatchConfig) { c.Timeout = -time.Second }, wantErr: true},
		{name: "negative spawn rate", mutate: func(c *BatchConfig) { c.SpawnRate = -1 }, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBatchConfig) {
				t.Errorf("expected ErrInvalidBatchConfig, got %v", err)
			}
		})
	}

	t.Run("WithDialect copies", func(t *testing.T) {
		cfg := valid
		resolved := cfg.WithDialect(Current)
		if cfg.Dialect != Legacy || resolved.Dialect != Current {
			t.Errorf("WithDialect should not mutate the receiver")
		}
	})

	t.Run("PathTemplate default", func(t *testing.T) {
		if got := valid.PathTemplate(); got != DefaultTemplate {
			t.Errorf("PathTemplate() = %s", got)
		}
	})
}

func TestDialect(t *testing.T) {
	if Legacy.MaxConcurrency() != 2 || Current.MaxConcurrency() != 8 {
		t.Errorf("unexpected dialect limits %d/%d", Legacy.MaxConcurrency(), Current.MaxConcurrency())
	}

	for _, d := range []Dialect{Legacy, Current} {
		parsed, err := ParseDialect(d.String())
		if err != nil || parsed != d {
			t.Errorf("ParseDialect(%s) = %v, %v", d, parsed, err)
		}
	}

	if _, err := ParseDialect("v5"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestProgress(t *testing.T) {
	t.Run("Fraction of empty batch", func(t *testing.T) {
		if f := (Progress{}).Fraction(); f != 0 {
			t.Errorf("Fraction() = %v, want 0", f)
		}
	})

	t.Run("Add", func(t *testing.T) {
		p := Progress{Total: 5}
		for _, k := range []OutcomeKind{Downloaded, Skipped, NotFound, Failed, Cancelled} {
			p = p.Add(Outcome{Kind: k})
		}
		want := Progress{Completed: 4, Downloaded: 1, Skipped: 1, Failed: 2, NotFound: 1, Cancelled: 1, Total: 5}
		if p != want {
			t.Errorf("Add() = %+v, want %+v", p, want)
		}
		if p.Fraction() != 0.8 {
			t.Errorf("Fraction() = %v, want 0.8", p.Fraction())
		}
	})

	tc := []struct {
		name string
		p    Progress
		want string
	}{
		{name: "mixed", p: Progress{Downloaded: 3, Skipped: 2}, want: "Done! 3 downloaded, 2 already existed"},
		{name: "downloads only", p: Progress{Downloaded: 4}, want: "Downloaded 4 songs!"},
		{name: "skips only", p: Progress{Skipped: 5}, want: "All 5 songs already existed"},
		{name: "partial failure", p: Progress{Downloaded: 1, Failed: 2}, want: "Downloaded 1 songs! (2 failed)"},
		{name: "all failed", p: Progress{Failed: 3}, want: "3 songs failed to download"},
		{name: "nothing", p: Progress{}, want: "No songs found or downloaded"},
	}

	for _, tt := range tc {
		t.Run("Summary "+tt.name, func(t *testing.T) {
			if got := tt.p.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcomeKind(t *testing.T) {
	for _, k := range []OutcomeKind{Downloaded, Skipped, NotFound, Cancelled, Failed} {
		parsed, err := ParseOutcomeKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParseOutcomeKind(%s) = %v, %v", k, parsed, err)
		}
	}

	var k OutcomeKind
	if err := k.UnmarshalText([]byte("exploded")); err == nil {
		t.Error("expected error for unknown outcome")
	}

	if got := OutcomeKind(42).String(); got != "OutcomeKind(42)" {
		t.Errorf("String() = %s", got)
	}
}

func TestBatchRecord(t *testing.T) {
	cfg := BatchConfig{OutputDir: "/music", Format: "mp3", Concurrency: 2}

	t.Run("Validate", func(t *testing.T) {
		rec := NewBatchRecord(1, "liked", cfg, 3)
		if err := rec.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		rec.SetStatus("exploded")
		if err := rec.Validate(); err == nil {
			t.Error("expected error for invalid status")
		}
	})

	t.Run("FailedItems sorted by position", func(t *testing.T) {
		rec := NewBatchRecord(1, "urls", cfg, 4)
		rec.Finish(BatchFailed, Progress{Total: 4}, "", []Outcome{
			{Item: WorkItem{Position: 3, URL: "d"}, Kind: Failed},
			{Item: WorkItem{Position: 0, URL: "a"}, Kind: Downloaded},
			{Item: WorkItem{Position: 1, URL: "b"}, Kind: NotFound},
			{Item: WorkItem{Position: 2, URL: "c"}, Kind: Cancelled},
		}, time.Now())

		items := rec.FailedItems()
		if len(items) != 2 || items[0].URL != "b" || items[1].URL != "d" {
			t.Errorf("FailedItems() = %+v", items)
		}
		if rec.FinishedAt() == nil {
			t.Error("Finish should set FinishedAt")
		}
	})
}

func TestNewWorkItems(t *testing.T) {
	items := NewWorkItems([]string{"a", "a", "b"})
	if len(items) != 3 || items[1].Position != 1 || items[1].URL != "a" {
		t.Errorf("NewWorkItems() = %+v", items)
	}
}

func TestTrackArtist(t *testing.T) {
	track := Track{Artists: []string{"Daft Punk", "Pharrell Williams"}}
	if got := track.Artist(); got != "Daft Punk, Pharrell Williams" {
		t.Errorf("Artist() = %s", got)
	}
}
