package models

import (
	"fmt"
	"time"
)

// OutcomeKind classifies how a work item ended.
type OutcomeKind int

const (
	Downloaded OutcomeKind = iota
	Skipped
	NotFound
	Cancelled
	Failed
)

var outcomeNames = [...]string{
	Downloaded: "downloaded",
	Skipped:    "skipped",
	NotFound:   "not_found",
	Cancelled:  "cancelled",
	Failed:     "failed",
}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeNames) {
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
	return outcomeNames[k]
}

// ParseOutcomeKind is the inverse of [OutcomeKind.String].
func ParseOutcomeKind(s string) (OutcomeKind, error) {
	for i, name := range outcomeNames {
		if name == s {
			return OutcomeKind(i), nil
		}
	}
	return Failed, fmt.Errorf("unknown outcome %q", s)
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *OutcomeKind) UnmarshalText(b []byte) error {
	parsed, err := ParseOutcomeKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Outcome is the terminal result of one [WorkItem].
type Outcome struct {
	Item    WorkItem      `json:"item"`
	Kind    OutcomeKind   `json:"kind"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Counted reports whether the outcome advances [Progress.Completed].
func (o Outcome) Counted() bool {
	return o.Kind != Cancelled
}

// IsFailure reports whether the item should be retried later.
func (o Outcome) IsFailure() bool {
	return o.Kind == Failed || o.Kind == NotFound
}

// Progress holds the batch counters. Failed includes NotFound.
type Progress struct {
	Completed  int `json:"completed"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	NotFound   int `json:"not_found"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// Fraction returns Completed/Total, or 0 for an empty batch.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// Add returns p with o counted.
func (p Progress) Add(o Outcome) Progress {
	switch o.Kind {
	case Downloaded:
		p.Downloaded++
	case Skipped:
		p.Skipped++
	case NotFound:
		p.NotFound++
		p.Failed++
	case Failed:
		p.Failed++
	case Cancelled:
		p.Cancelled++
		return p
	}
	p.Completed++
	return p
}

// Succeeded reports whether anything was downloaded or already present.
func (p Progress) Succeeded() bool {
	return p.Downloaded+p.Skipped > 0
}

// Summary renders the closing message for a batch.
func (p Progress) Summary() string {
	d, s, f := p.Downloaded, p.Skipped, p.Failed
	var msg string
	switch {
	case d > 0 && s > 0:
		msg = fmt.Sprintf("Done! %d downloaded, %d already existed", d, s)
	case d > 0:
		msg = fmt.Sprintf("Downloaded %d songs!", d)
	case s > 0:
		msg = fmt.Sprintf("All %d songs already existed", s)
	case f > 0:
		return fmt.Sprintf("%d songs failed to download", f)
	default:
		return "No songs found or downloaded"
	}
	if f > 0 {
		msg += fmt.Sprintf(" (%d failed)", f)
	}
	return msg
}
