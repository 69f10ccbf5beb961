package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/savedl/internal/formatter"
	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/repositories"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList lists recorded batches, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.batches()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		if !models.BatchStatus(status).Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, status)
		}
		criteria["status"] = status
	}
	if source := cmd.String("source"); source != "" {
		criteria["source"] = source
	}

	batches, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		reports := make([]formatter.Report, 0, len(batches))
		for _, b := range batches {
			reports = append(reports, formatter.NewReport(b))
		}
		return r.writeJSON(reports, true)
	}

	if len(batches) == 0 {
		return r.writePlain("No batches recorded yet\n")
	}

	for _, b := range batches {
		p := b.Progress()
		r.writePlain("#%-4d %-10s %-6s %s  %d/%d  %s\n",
			b.Sequence(), b.Status(), b.Source(), b.CreatedAt().Local().Format(time.DateTime), p.Completed, p.Total, b.Summary())
	}
	return nil
}

// HistoryShow prints a batch and its per-item outcomes.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	batch, _, err := r.resolveBatch(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(formatter.NewReport(batch), true)
	}

	data, err := formatter.ExportToText(batch)
	if err != nil {
		return err
	}
	r.writePlainHeader(fmt.Sprintf("Batch #%d (%s)", batch.Sequence(), batch.ID()))
	return r.writePlain("%s", data)
}

// HistoryRetry downloads the failed and not-found items of a batch as a new batch.
//
// The new batch reuses the recorded output directory and format unless flags override them.
func (r *Runner) HistoryRetry(ctx context.Context, cmd *cli.Command) error {
	batch, _, err := r.resolveBatch(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	items := batch.FailedItems()
	if len(items) == 0 {
		return r.writePlain("Nothing to retry: batch #%d has no failed items\n", batch.Sequence())
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	r.logger.Info("retrying failed items", "batch", batch.ID(), "items", len(urls))

	mode := modeFrom(cmd)
	mode.outputDir = batch.OutputDir()
	mode.format = batch.Format()
	if !mode.json {
		r.writePlain("Retrying %d failed items from batch #%d\n", len(urls), batch.Sequence())
	}
	return r.runBatch(ctx, cmd, "retry", urls, mode)
}

// HistoryExport writes a batch report in the requested format.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	batch, _, err := r.resolveBatch(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	format := cmd.String("format")
	output := cmd.String("output")

	if output == "-" {
		data, err := formatter.Export(batch, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	path, err := formatter.WriteExport(batch, format, output)
	if err != nil {
		return err
	}
	r.logger.Info("batch exported", "batch", batch.ID(), "format", format, "path", path)
	return r.writePlain("✓ Exported batch #%d to %s\n", batch.Sequence(), path)
}

// HistoryDelete removes a batch from history after confirmation.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	batch, repo, err := r.resolveBatch(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		ok, err := r.prompter.Confirm(fmt.Sprintf("Delete batch #%d (%s)?", batch.Sequence(), batch.Summary()))
		if err != nil {
			return err
		}
		if !ok {
			return r.writePlain("Aborted\n")
		}
	}

	if err := repo.Delete(batch.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted batch #%d\n", batch.Sequence())
}

// resolveBatch finds a batch by ID or by sequence number ("7" or "#7").
func (r *Runner) resolveBatch(ref string) (*models.BatchRecord, *repositories.BatchRepository, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil, fmt.Errorf("%w: batch ID or number is required", shared.ErrMissingArgument)
	}

	repo, err := r.batches()
	if err != nil {
		return nil, nil, err
	}

	var batch *models.BatchRecord
	if seq, convErr := strconv.Atoi(strings.TrimPrefix(ref, "#")); convErr == nil {
		batch, err = repo.GetBySequence(seq)
	} else {
		batch, err = repo.Get(ref)
	}
	if err != nil {
		return nil, nil, err
	}
	return batch, repo, nil
}
