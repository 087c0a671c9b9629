package stdlogger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"github.com/authgate/authgate/internal/logger/adapter/stdlogger"
)

var (
	_ cron.Logger  = stdlogger.New()
	_ amqp.Logging = stdlogger.New()
)

// redirect points the global logger at a buffer for the duration of the test.
func redirect(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	prev, prevLevel := log.Logger, zerolog.GlobalLevel()

	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(level)

	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	return &buf
}

func TestLeveledPrintf(t *testing.T) {
	buf := redirect(t, zerolog.InfoLevel)

	l := stdlogger.New()
	l.Debugf("stdlogger %s", "debug")
	l.Infof("stdlogger %s", "info")
	l.Warningf("stdlogger %s", "warning")
	l.Errorf("stdlogger %s", "error")
	l.Printf("stdlogger %s", "printf")

	out := buf.String()
	assert.NotContains(t, out, "stdlogger debug")

	for _, want := range []string{
		`"level":"info","message":"stdlogger info"`,
		`"level":"warn","message":"stdlogger warning"`,
		`"level":"error","message":"stdlogger error"`,
		`"level":"info","message":"stdlogger printf"`,
	} {
		assert.Contains(t, out, want)
	}

	assert.NotContains(t, out, "component")
}

func TestKeyValueLogging(t *testing.T) {
	buf := redirect(t, zerolog.InfoLevel)

	l := stdlogger.NewComponent("cron")
	l.Info("job done", "entry", 7, "odd")
	l.Error(errors.New("boom"), "job failed", "entry", 8)
	l.Context().Printf(context.Background(), "redis %s", "trouble")

	out := buf.String()
	for _, want := range []string{`"component":"cron"`, `"entry":7`, `"extra":"odd"`, `"error":"boom"`, "redis trouble"} {
		assert.Contains(t, out, want)
	}
}

func TestDisabledLevelIsSilent(t *testing.T) {
	buf := redirect(t, zerolog.Disabled)

	stdlogger.NewComponent("amqp").Errorf("dropped")

	assert.Empty(t, buf.String())
}
