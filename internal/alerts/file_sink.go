package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

const (
	DefaultMaxSize    = 100 // MB
	DefaultMaxAge     = 30  // days
	DefaultMaxBackups = 10  // files
)

// FileSink appends alerts as JSON lines to a rotated file.
type FileSink struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
}

// NewFileSink creates the parent directory and opens a rotating writer.
func NewFileSink(config configtypes.AlertFileConfig) (*FileSink, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("alert file path is required")
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create alert log directory %s: %w", dir, err)
	}

	maxSize := config.Rotation.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	maxAge := config.Rotation.MaxAge
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	maxBackups := config.Rotation.MaxBackups
	if maxBackups == 0 {
		maxBackups = DefaultMaxBackups
	}

	return &FileSink{
		writer: &lumberjack.Logger{
			Filename:   config.Path,
			MaxSize:    maxSize,
			MaxAge:     maxAge,
			MaxBackups: maxBackups,
			Compress:   config.Rotation.Compress,
		},
	}, nil
}

func (s *FileSink) Send(_ context.Context, alert Alert) error {
	line, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write alert to %s: %w", s.writer.Filename, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	return s.writer.Close()
}
