package compute

import (
	"time"

	"github.com/getsentry/raven-go"
	"github.com/sirupsen/logrus"
)

// SentryHook delivers logs to a sentry server
type SentryHook struct {
	Timeout time.Duration

	client *raven.Client
	levels []logrus.Level
}

// NewSentryHook creates a hook to be added to an instance of logger and
// initializes the raven client.
func NewSentryHook(dsn string, levels []logrus.Level) (*SentryHook, error) {
	client, err := raven.New(dsn)
	if err != nil {
		return nil, err
	}

	return &SentryHook{
		Timeout: 100 * time.Millisecond,
		client:  client,
		levels:  levels,
	}, nil
}

// Fire is called when an event should be sent to sentry
func (hook *SentryHook) Fire(entry *logrus.Entry) error {
	packet := raven.NewPacket(entry.Message)
	packet.Timestamp = raven.Timestamp(entry.Time)
	packet.Level = severityMap[entry.Level]
	packet.Platform = "go"

	if serverName, ok := entry.Data["server_name"]; ok {
		packet.ServerName = serverName.(string)
	}

	tags := map[string]string{}
	for k, v := range entry.Data {
		if s, ok := v.(string); ok {
			tags[k] = s
		}
	}

	_, errCh := hook.client.Capture(packet, tags)

	select {
	case err := <-errCh:
		return err
	case <-time.After(hook.Timeout):
	}

	return nil
}

// Levels returns the levels this hook is enabled for
func (hook *SentryHook) Levels() []logrus.Level {
	return hook.levels
}

var severityMap = map[logrus.Level]raven.Severity{
	logrus.DebugLevel: raven.DEBUG,
	logrus.InfoLevel:  raven.INFO,
	logrus.WarnLevel:  raven.WARNING,
	logrus.ErrorLevel: raven.ERROR,
	logrus.FatalLevel: raven.FATAL,
	logrus.PanicLevel: raven.FATAL,
}
