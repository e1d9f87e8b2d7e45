package logs

import (
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// RetryLogger podpina retryablehttp pod zerologa.
// Debug z retryablehttp (każdy request) spada do Trace, żeby nie zalać app.log.
type RetryLogger struct {
	log zerolog.Logger
}

var _ retryablehttp.LeveledLogger = RetryLogger{}

func NewRetryLogger(l zerolog.Logger) RetryLogger {
	return RetryLogger{log: l}
}

func (r RetryLogger) Error(msg string, kv ...interface{}) { r.event(r.log.Error(), msg, kv) }
func (r RetryLogger) Warn(msg string, kv ...interface{})  { r.event(r.log.Warn(), msg, kv) }
func (r RetryLogger) Info(msg string, kv ...interface{})  { r.event(r.log.Debug(), msg, kv) }
func (r RetryLogger) Debug(msg string, kv ...interface{}) { r.event(r.log.Trace(), msg, kv) }

func (r RetryLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(k, kv[i+1])
	}
	e.Msg(msg)
}
