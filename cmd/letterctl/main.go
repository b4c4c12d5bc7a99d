// Command letterctl runs the letter pipeline offline: it prints what the
// normalizer makes of a drawing and, optionally, what the model says about it.
package main

import (
	"os"

	"github.com/Brownie44l1/letters-api/internal/observability"
	"github.com/rs/zerolog/log"
)

func main() {
	observability.InitLogger("letterctl", os.Getenv("LOG_LEVEL"), true)
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("letterctl failed")
		os.Exit(1)
	}
}
