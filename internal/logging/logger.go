// Package logging builds the arbor logger used across pdfrag.
package logging

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"pdfrag/config"
)

const timeFormat = "15:04:05"

// New builds a logger from the logging section. Console output is the
// fallback when no output is configured or the log file cannot be created.
func New(cfg config.LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFileOutput := false
	hasConsoleOutput := false
	for _, output := range cfg.Output {
		switch output {
		case "file":
			hasFileOutput = true
		case "console", "stdout":
			hasConsoleOutput = true
		}
	}

	if hasFileOutput {
		logFile := cfg.File
		if logFile == "" {
			logFile = filepath.Join(".pdfrag", "logs", "pdfrag.log")
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			hasConsoleOutput = true
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   logFile,
				TimeFormat: timeFormat,
				MaxSize:    10 * 1024 * 1024,
				MaxBackups: 3,
				TextOutput: true,
			})
		}
	}

	if hasConsoleOutput || !hasFileOutput {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: timeFormat,
			TextOutput: true,
		})
	}

	level := cfg.Level
	if level == "" {
		level = "warn"
	}
	return logger.WithLevelFromString(level)
}
