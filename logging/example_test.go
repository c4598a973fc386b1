package logging_test

import (
	"os"

	"github.com/grovetools/arcade/logging"
)

func ExamplePrettyLogger() {
	pretty := logging.NewPrettyLogger().WithWriter(os.Stdout)
	pretty.InfoPretty("Arcade daemon is running")
}

func ExampleNewLogger() {
	log := logging.NewLogger("engine")
	log.WithField("phase", "active").Info("Session fetched")
}
