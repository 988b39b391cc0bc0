package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger routes the process-wide logger through a console writer
// tagged with the node name, matching the "node" label the wire metrics
// carry.
func InitLogger(node string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("node", node).Logger()
	log.Logger = logger
	return logger
}
