package testlog

import (
	"testing"

	"github.com/danmuck/sdkctl/internal/logging"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.InitTests()
	log.Debug().Str("test", t.Name()).Msg("testlog start")
}
