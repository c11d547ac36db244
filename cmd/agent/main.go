package main

import (
	"os"

	"github.com/phuslu/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("agent failed")
		os.Exit(1)
	}
}
