package oui

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"opnsense-mcp/internal/watcher"
)

// Watch reloads the table whenever the CSV file changes. It blocks until
// ctx is cancelled and returns nil in that case.
func (l *Loader) Watch(ctx context.Context) error {
	if l.csvPath == "" {
		return nil
	}
	w := watcher.New(l.csvPath, func() {
		if err := l.Load(ctx); err != nil {
			l.logger.Warn("reload OUI table", zap.Error(err))
		}
	}, l.logger)

	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
