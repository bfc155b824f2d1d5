package device

import (
	"context"
	"strings"

	"github.com/swoga/zyxel-webctl/api"
	"github.com/swoga/zyxel-webctl/model"
	"go.uber.org/zap"
)

// FallbackDialect is used when the landing page names no known dialect.
const FallbackDialect = model.DialectGS1920

// resolveDialect settles the dialect once per session and picks its driver.
func (s *Session) resolveDialect(ctx context.Context) model.Dialect {
	if s.drv != nil {
		return s.dialect
	}
	if s.override != model.DialectAuto {
		s.dialect = s.override
	} else {
		s.dialect = detect(ctx, s.log, s.client)
	}
	newDriver, ok := drivers[s.dialect]
	if !ok {
		s.log.Warn("unknown dialect, using fallback", zap.Stringer("dialect", s.dialect))
		s.dialect = FallbackDialect
		newDriver = drivers[FallbackDialect]
	}
	s.drv = newDriver(s)
	s.log.Debug("resolved dialect", zap.Stringer("dialect", s.dialect))
	return s.dialect
}

// detect sniffs the unauthenticated landing page. It never fails, every
// problem degrades to the fallback dialect.
func detect(ctx context.Context, log *zap.Logger, client *api.Client) model.Dialect {
	status, body, err := client.Get(ctx, "/")
	if err != nil {
		log.Debug("dialect detection failed", zap.Error(err))
		return FallbackDialect
	}
	if status != 200 {
		log.Debug("dialect detection failed", zap.Int("status", status))
		return FallbackDialect
	}
	for _, d := range model.Dialects() {
		if strings.Contains(body, d.Marker()) {
			return d
		}
	}
	return FallbackDialect
}
