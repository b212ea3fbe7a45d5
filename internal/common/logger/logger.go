package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

// Output names accepted by DynamicLogger.Level
const (
	OutputConsole = "console"
	OutputFile    = "file"
)

// sink is one enabled log destination with its own runtime level
type sink struct {
	name     string
	override string // empty inherits the global level
	level    zap.AtomicLevel
}

func (s *sink) configuredLevel(global zapcore.Level) zapcore.Level {
	return resolveLogLevel(s.override, global)
}

// DynamicLogger is a zap.Logger whose console and file levels can change
// while the service runs.
type DynamicLogger struct {
	*zap.Logger
	config configtypes.LogConfig
	sinks  []*sink
}

// Level returns the current level of the named output, if it is enabled
func (dl *DynamicLogger) Level(output string) (zapcore.Level, bool) {
	for _, s := range dl.sinks {
		if s.name == output {
			return s.level.Level(), true
		}
	}
	return zapcore.InvalidLevel, false
}

// SwitchToConfiguredLevel applies the configured levels, ending the startup override
func (dl *DynamicLogger) SwitchToConfiguredLevel() {
	dl.Info("Switching logger to configured level", zap.String("level", dl.config.Level))

	global := parseLogLevel(dl.config.Level)
	for _, s := range dl.sinks {
		s.level.SetLevel(s.configuredLevel(global))
	}
}

// EnsureInfoLevelForShutdown makes INFO visible on every output
func (dl *DynamicLogger) EnsureInfoLevelForShutdown() {
	if dl.lowerTo(zap.InfoLevel, false) {
		dl.Info("Switched to INFO level for shutdown visibility")
	}
}

// lowerTo drops outputs above level down to it. With inheritedOnly set,
// outputs carrying their own level are left alone.
func (dl *DynamicLogger) lowerTo(level zapcore.Level, inheritedOnly bool) bool {
	changed := false
	for _, s := range dl.sinks {
		if inheritedOnly && s.override != "" {
			continue
		}
		if s.level.Level() > level {
			s.level.SetLevel(level)
			changed = true
		}
	}
	return changed
}

// Component returns a named child logger tagged with the component field
func (dl *DynamicLogger) Component(name string) *zap.Logger {
	return dl.Named(name).With(zap.String("component", name))
}

// NewLogger builds a logger writing to the enabled outputs of config
func NewLogger(config configtypes.LogConfig) (*DynamicLogger, error) {
	global := parseLogLevel(config.Level)
	dl := &DynamicLogger{config: config}

	var cores []zapcore.Core
	add := func(name, override, format string, ws zapcore.WriteSyncer) {
		s := &sink{name: name, override: override}
		s.level = zap.NewAtomicLevelAt(s.configuredLevel(global))
		dl.sinks = append(dl.sinks, s)
		cores = append(cores, zapcore.NewCore(createEncoder(format), ws, s.level))
	}

	if c := config.Console; c.Enabled {
		add(OutputConsole, c.Level, c.Format, zapcore.Lock(os.Stdout))
	}
	if f := config.File; f.Enabled {
		if f.Path == "" {
			return nil, fmt.Errorf("file.path must be specified when file logging is enabled")
		}
		add(OutputFile, f.Level, f.Format, createFileWriter(f.Path, f.Rotation))
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one log output (console or file) must be enabled")
	}

	dl.Logger = zap.New(zapcore.NewTee(cores...))
	return dl, nil
}

// NewLoggerWithStartupOverride is NewLogger with outputs that inherit the
// global level held at INFO or lower until SwitchToConfiguredLevel.
func NewLoggerWithStartupOverride(config configtypes.LogConfig) (*DynamicLogger, error) {
	dl, err := NewLogger(config)
	if err != nil {
		return nil, err
	}
	dl.lowerTo(zap.InfoLevel, true)
	return dl, nil
}

// NewDefaultLogger logs everything to the console; used until config is loaded
func NewDefaultLogger() (*DynamicLogger, error) {
	return NewLogger(configtypes.LogConfig{
		Level: configtypes.LogLevelDebug,
		Console: configtypes.ConsoleLogConfig{
			Enabled: true,
			Format:  configtypes.LogFormatConsole,
		},
	})
}

var logLevels = map[string]zapcore.Level{
	configtypes.LogLevelDebug: zap.DebugLevel,
	configtypes.LogLevelInfo:  zap.InfoLevel,
	configtypes.LogLevelWarn:  zap.WarnLevel,
	configtypes.LogLevelError: zap.ErrorLevel,
}

// parseLogLevel maps a config level name; unknown names mean INFO
func parseLogLevel(level string) zapcore.Level {
	if l, ok := logLevels[level]; ok {
		return l
	}
	return zap.InfoLevel
}

func resolveLogLevel(outputLevel string, globalLevel zapcore.Level) zapcore.Level {
	if outputLevel == "" {
		return globalLevel
	}
	return parseLogLevel(outputLevel)
}

func createEncoder(format string) zapcore.Encoder {
	switch format {
	case configtypes.LogFormatJSON:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case configtypes.LogFormatText:
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func createFileWriter(path string, rotation configtypes.RotationConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSize,
		MaxAge:     rotation.MaxAge,
		MaxBackups: rotation.MaxBackups,
		Compress:   rotation.Compress,
	})
}
