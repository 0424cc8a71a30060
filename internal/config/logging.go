package config

import (
	"io"
	"time"

	log "github.com/sirupsen/logrus"
)

// SetupLogger applies level and format to the standard logrus logger.
func (c Config) SetupLogger(out io.Writer) error {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(out)

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}
	return nil
}
