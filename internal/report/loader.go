package report

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"genomic-report-server/internal/models"
	"genomic-report-server/internal/session"
)

// Fetcher returns raw report documents from the backend.
type Fetcher interface {
	GetLabResult(ctx context.Context, id string) ([]byte, error)
}

// Loader fetches, caches and decodes reports. Cache failures are logged and
// otherwise ignored; the backend stays the source of truth.
type Loader struct {
	fetcher Fetcher
	cache   Cache
	logger  *logrus.Logger
}

func NewLoader(fetcher Fetcher, cache Cache, logger *logrus.Logger) *Loader {
	if cache == nil {
		cache = NoopCache{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{fetcher: fetcher, cache: cache, logger: logger}
}

// Load returns the decoded report for id using the session attached to ctx.
func (l *Loader) Load(ctx context.Context, id string) (*models.ClinicalReport, error) {
	token, err := session.Token(ctx)
	if err != nil {
		return nil, err
	}
	key := Key(token, id)

	raw, hit, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.WithError(err).WithField("report_id", id).Warn("Report cache read failed")
	}
	if !hit {
		raw, err = l.fetcher.GetLabResult(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(ctx, id, key, raw); err != nil {
			l.logger.WithError(err).WithField("report_id", id).Warn("Report cache write failed")
		}
	}

	r, err := Decode(raw)
	if err != nil {
		_ = l.cache.Delete(ctx, key)
		return nil, fmt.Errorf("report %s: %w", id, err)
	}
	if r.ID == "" {
		r.ID = id
	}
	return r, nil
}

// Invalidate drops every cached copy of id, whichever token fetched it, so
// the next Load by any user refetches.
func (l *Loader) Invalidate(ctx context.Context, id string) {
	if err := l.cache.Invalidate(ctx, id); err != nil {
		l.logger.WithError(err).WithField("report_id", id).Warn("Report cache delete failed")
	}
}
