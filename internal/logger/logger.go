package logger

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log severities; lines below the current level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	jsonFormat   = false
	logger       = stdlog.New(os.Stderr, "", 0)

	sink io.Writer = os.Stderr

	// rotating is the file sink opened by Configure, closed on replacement.
	rotating *lumberjack.Logger
)

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a case-insensitive level name to its Level.
func ParseLevel(name string) (Level, bool) {
	for i, n := range levelNames {
		if strings.EqualFold(name, n) {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Config mirrors the logging section of the configuration file.
type Config struct {
	Level  string
	Format string
	Output string
}

// SetLevel changes the threshold. Unknown names leave it unchanged.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	currentLevel = l
}

// SetFormat selects "text" (default) or "json" line encoding.
func SetFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	jsonFormat = strings.EqualFold(format, "json")
}

// SetOutput redirects all log lines to w. Tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setOutputLocked(w)
}

func setOutputLocked(w io.Writer) {
	if rotating != nil && w != io.Writer(rotating) {
		if err := rotating.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "logger: closing %s: %v\n", rotating.Filename, err)
		}
		rotating = nil
	}
	sink = w
	logger = stdlog.New(w, "", 0)
}

// Writer returns the current sink.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return sink
}

// Configure applies level, format and output in one call. Output is
// "stdout", "stderr" (the default) or a file path; files rotate through
// lumberjack. A file opened by an earlier call is closed.
func Configure(cfg Config) {
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	SetFormat(cfg.Format)

	switch strings.ToLower(cfg.Output) {
	case "stdout":
		SetOutput(os.Stdout)
	case "", "stderr":
		SetOutput(os.Stderr)
	default:
		mu.Lock()
		defer mu.Unlock()
		if rotating != nil && rotating.Filename == cfg.Output {
			return
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    128,
			MaxBackups: 5,
			MaxAge:     16,
		}
		setOutputLocked(lj)
		rotating = lj
	}
}

type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

func log(level Level, format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level < currentLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, v...)

	if jsonFormat {
		data, err := json.Marshal(entry{Timestamp: timestamp, Level: level.String(), Message: message})
		if err == nil {
			logger.Println(string(data))
			return
		}
	}

	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	logger.Println(prefix + message)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
