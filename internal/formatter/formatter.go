// package formatter exports batch reports to various formats (CSV, Markdown, plain text, JSON, URL list)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
	FormatURLs     = "urls"
)

// Formats lists every export format.
var Formats = []string{FormatCSV, FormatMarkdown, FormatText, FormatJSON, FormatURLs}

var extensions = map[string]string{
	FormatCSV:      ".csv",
	FormatMarkdown: ".md",
	FormatText:     ".txt",
	FormatJSON:     ".json",
	FormatURLs:     ".urls.txt",
}

// Report is the JSON shape of an exported batch.
type Report struct {
	ID         string          `json:"id"`
	Sequence   int             `json:"sequence"`
	Source     string          `json:"source"`
	Status     string          `json:"status"`
	Dialect    string          `json:"dialect"`
	OutputDir  string          `json:"output_dir"`
	Format     string          `json:"format"`
	Workers    int             `json:"workers"`
	Summary    string          `json:"summary"`
	Progress   models.Progress `json:"progress"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Items      []ReportItem    `json:"items"`
}

// ReportItem is one outcome in a [Report].
type ReportItem struct {
	Position  int                `json:"position"`
	URL       string             `json:"url"`
	Outcome   models.OutcomeKind `json:"outcome"`
	Detail    string             `json:"detail,omitempty"`
	ElapsedMs int64              `json:"elapsed_ms"`
}

// NewReport flattens a batch record for serialization.
func NewReport(b *models.BatchRecord) Report {
	r := Report{
		ID:         b.ID(),
		Sequence:   b.Sequence(),
		Source:     b.Source(),
		Status:     string(b.Status()),
		Dialect:    b.Dialect().String(),
		OutputDir:  b.OutputDir(),
		Format:     b.Format(),
		Workers:    b.Workers(),
		Summary:    b.Summary(),
		Progress:   b.Progress(),
		CreatedAt:  b.CreatedAt(),
		FinishedAt: b.FinishedAt(),
		Items:      make([]ReportItem, 0, len(b.Outcomes())),
	}
	for _, o := range b.Outcomes() {
		r.Items = append(r.Items, ReportItem{
			Position:  o.Item.Position,
			URL:       o.Item.URL,
			Outcome:   o.Kind,
			Detail:    o.Detail,
			ElapsedMs: o.Elapsed.Milliseconds(),
		})
	}
	return r
}

// Export renders b in format.
func Export(b *models.BatchRecord, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(b)
	case FormatMarkdown, "md":
		return ExportToMarkdown(b)
	case FormatText, "text":
		return ExportToText(b)
	case FormatJSON:
		return ExportToJSON(b)
	case FormatURLs:
		return ExportFailedURLs(b)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// ExportToCSV writes one row per outcome with columns: Position, URL, Outcome, Detail, Elapsed
func ExportToCSV(b *models.BatchRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "URL", "Outcome", "Detail", "Elapsed"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range b.Outcomes() {
		record := []string{
			strconv.Itoa(o.Item.Position + 1),
			o.Item.URL,
			o.Kind.String(),
			o.Detail,
			formatElapsed(o.Elapsed),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the batch header, an outcome table and a list of failures.
func ExportToMarkdown(b *models.BatchRecord) ([]byte, error) {
	var buf bytes.Buffer
	p := b.Progress()

	fmt.Fprintf(&buf, "# Batch #%d\n\n", b.Sequence())
	if b.Summary() != "" {
		fmt.Fprintf(&buf, "> %s\n\n", b.Summary())
	}

	fmt.Fprintf(&buf, "**Source**: %s\n", b.Source())
	fmt.Fprintf(&buf, "**Status**: %s\n", b.Status())
	fmt.Fprintf(&buf, "**Started**: %s\n", b.CreatedAt().Format(time.RFC3339))
	if at := b.FinishedAt(); at != nil {
		fmt.Fprintf(&buf, "**Finished**: %s\n", at.Format(time.RFC3339))
	}
	fmt.Fprintf(&buf, "**Output**: %s (%s, spotdl %s, %d workers)\n\n", b.OutputDir(), b.Format(), b.Dialect(), b.Workers())

	fmt.Fprintf(&buf, "| Total | Downloaded | Existed | Failed | Not found | Cancelled |\n")
	fmt.Fprintf(&buf, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&buf, "| %d | %d | %d | %d | %d | %d |\n\n", p.Total, p.Downloaded, p.Skipped, p.Failed, p.NotFound, p.Cancelled)

	buf.WriteString("## Items\n\n")
	buf.WriteString("| # | URL | Outcome | Elapsed |\n|---|---|---|---|\n")
	for _, o := range b.Outcomes() {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s |\n", o.Item.Position+1, o.Item.URL, o.Kind, formatElapsed(o.Elapsed))
	}

	var failed []models.Outcome
	for _, o := range b.Outcomes() {
		if o.IsFailure() {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		buf.WriteString("\n## Failed\n\n")
		for _, o := range failed {
			detail := ""
			if o.Detail != "" {
				detail = fmt.Sprintf(": `%s`", strings.ReplaceAll(o.Detail, "`", "'"))
			}
			fmt.Fprintf(&buf, "- %s%s\n", o.Item.URL, detail)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders the batch as plain text, one line per outcome.
func ExportToText(b *models.BatchRecord) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Batch #%d (%s)\n", b.Sequence(), b.ID())
	fmt.Fprintf(&buf, "Source: %s\n", b.Source())
	fmt.Fprintf(&buf, "Status: %s\n", b.Status())
	if b.Summary() != "" {
		fmt.Fprintf(&buf, "Summary: %s\n", b.Summary())
	}
	fmt.Fprintf(&buf, "Items: %d\n\n", b.Progress().Total)

	for _, o := range b.Outcomes() {
		line := fmt.Sprintf("%d. [%s] %s", o.Item.Position+1, o.Kind, o.Item.URL)
		if o.Detail != "" {
			line += " - " + o.Detail
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders a [Report] as indented JSON.
func ExportToJSON(b *models.BatchRecord) ([]byte, error) {
	return shared.MarshalJSON(NewReport(b), true)
}

// ExportFailedURLs lists the failed URLs one per line, readable by `download file`.
func ExportFailedURLs(b *models.BatchRecord) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# failed items from batch #%d\n", b.Sequence())
	for _, item := range b.FailedItems() {
		buf.WriteString(item.URL + "\n")
	}
	return buf.Bytes(), nil
}

// WriteExport renders b in format and writes it to path.
//
// Defaults to batch-{seq}{ext} in the working directory.
func WriteExport(b *models.BatchRecord, format, path string) (string, error) {
	data, err := Export(b, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		ext := extensions[strings.ToLower(format)]
		if ext == "" {
			ext = ".txt"
		}
		path = fmt.Sprintf("batch-%d%s", b.Sequence(), ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return path, nil
}

// formatElapsed renders d as m:ss, or with one decimal of seconds below a minute.
func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
