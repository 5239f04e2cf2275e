package logger

import (
    "os"
    "time"

    "github.com/buildit/illuminate/internal/config"
    "github.com/rs/zerolog"
)

func New(cfg config.Config) zerolog.Logger {
    if cfg.AppEnv == "dev" {
        output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
        return zerolog.New(output).With().Timestamp().Logger()
    }
    zerolog.TimeFieldFormat = time.RFC3339
    return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
