package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/terraform-plugin-log/tflogtest"
	"github.com/rs/zerolog"

	"github.com/isometry/terraform-provider-dccon/internal/logging"
)

// withSubsystemLogging installs a root tflog logger on ctx whose output is
// replayed through log, then registers the subsystem loggers on it. Levels
// are left to log; TF_LOG_PROVIDER_DCCON_<NAME> still narrows a subsystem.
func withSubsystemLogging(ctx context.Context, log zerolog.Logger) context.Context {
	return logging.WithSubsystems(tflogtest.RootLogger(ctx, &zerologSink{log: log}))
}

// zerologSink decodes the JSON lines written by tflog and re-emits each
// entry as a zerolog event.
type zerologSink struct {
	log zerolog.Logger

	mu  sync.Mutex
	buf []byte
}

func (s *zerologSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, p...)
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		s.emit(s.buf[:i])
		s.buf = s.buf[i+1:]
	}
	return len(p), nil
}

func (s *zerologSink) emit(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	var entry map[string]any
	if err := json.Unmarshal(line, &entry); err != nil {
		s.log.Debug().Bytes("line", line).Msg("Undecodable log line")
		return
	}

	level := zerolog.DebugLevel
	if l, ok := entry["@level"].(string); ok {
		if parsed, err := zerolog.ParseLevel(l); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}

	ev := s.log.WithLevel(level)
	if module, ok := entry["@module"].(string); ok {
		ev = ev.Str("subsystem", strings.TrimPrefix(module, "provider."))
	}
	for _, k := range slices.Sorted(maps.Keys(entry)) {
		if !strings.HasPrefix(k, "@") {
			ev = ev.Interface(k, entry[k])
		}
	}
	msg, _ := entry["@message"].(string)
	ev.Msg(msg)
}
