package models

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// slowQuery is the duration above which queries are logged as warnings.
const slowQuery = 200 * time.Millisecond

// queryLogger writes gorm's log output to zerolog.
type queryLogger struct {
	Logger zerolog.Logger
}

func (l *queryLogger) LogMode(gorm_logger.LogLevel) gorm_logger.Interface {
	return l
}

func (l *queryLogger) Info(_ context.Context, s string, args ...any) {
	l.Logger.Info().Str("caller", utils.FileWithLineNum()).Msgf(s, args...)
}

func (l *queryLogger) Warn(_ context.Context, s string, args ...any) {
	l.Logger.Warn().Str("caller", utils.FileWithLineNum()).Msgf(s, args...)
}

func (l *queryLogger) Error(_ context.Context, s string, args ...any) {
	l.Logger.Error().Str("caller", utils.FileWithLineNum()).Msgf(s, args...)
}

// Trace logs every statement at debug level. Failed statements are errors
// unless nothing was found, slow ones are warnings.
func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	event := l.Logger.Debug()
	switch {
	case err != nil && !errors.Is(err, ErrResourceNotFound) && !errors.Is(err, gorm.ErrRecordNotFound):
		event = l.Logger.Error().Err(err)
	case elapsed > slowQuery:
		event = l.Logger.Warn().Dur("threshold", slowQuery)
	}

	// Only build the statement when the event is written
	if !event.Enabled() {
		return
	}

	sql, rows := fc()
	event.
		Str("sql", sql).
		Int64("rows", rows).
		Dur("duration", elapsed).
		Str("caller", utils.FileWithLineNum()).
		Msg("[GORM] query")
}
