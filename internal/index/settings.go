package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/corpusctl/internal/engine"
	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/internal/logging"
)

// SettingsReport is the outcome of a settings reload.
type SettingsReport struct {
	Updated  []string
	Failures []Failure
}

// Err aggregates the indexes whose settings could not be loaded.
func (r *SettingsReport) Err() error {
	return aggregate(r.Failures, fmt.Sprintf("%d indexes not updated", len(r.Failures)))
}

// UpdateSettings creates or replaces each named index with its settings
// document. With rebuild, the index is deleted first; a missing index is
// not an error.
//
// A settings file that cannot be loaded skips that index. Engine errors
// abort and are returned as is, with the report of the indexes done so far.
func (r *Runner) UpdateSettings(ctx context.Context, names []string, rebuild bool) (*SettingsReport, error) {
	report := &SettingsReport{}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if rebuild {
			if err := r.engine.DeleteIndex(ctx, name); err != nil {
				if !engine.IsNotFound(err) {
					return report, err
				}
				slog.Debug("index_absent", slog.String("index", name))
			} else {
				slog.Info("index_deleted", slog.String("index", name), slog.Bool("rebuild", true))
			}
		}

		body, err := r.settings.Load(name)
		if err != nil {
			report.Failures = append(report.Failures, Failure{ID: name, Op: OpConfig, Err: err})
			slog.Warn("settings_load_failed",
				slog.String("index", name),
				logging.ErrorAttr(cerrors.FormatForLog(err)))
			continue
		}

		if err := r.engine.PutIndex(ctx, name, body); err != nil {
			return report, err
		}
		report.Updated = append(report.Updated, name)
		slog.Info("settings_updated",
			slog.String("index", name),
			slog.Bool("rebuild", rebuild),
			slog.Bool("embedded", r.settings.Embedded()))
	}

	return report, nil
}

// DeleteIndexes deletes each named index, stopping at the first engine
// error. It returns the indexes deleted before that error.
func (r *Runner) DeleteIndexes(ctx context.Context, names []string) ([]string, error) {
	var deleted []string
	for _, name := range names {
		if err := r.engine.DeleteIndex(ctx, name); err != nil {
			return deleted, err
		}
		deleted = append(deleted, name)
		slog.Info("index_deleted", slog.String("index", name), slog.Bool("rebuild", false))
	}
	return deleted, nil
}
