package testlog

import (
	"testing"

	"github.com/danmuck/peerwire/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Logger = zerolog.New(zerolog.NewTestWriter(t))
	log.Debug().Str("test", t.Name()).Msg("test_start")
}
