// Package logger provides the process-wide leveled logger.
//
// Output format (text or json) and destination are configured once at
// startup from the logging section of the configuration; see pkg/config.
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
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu            sync.Mutex
	currentLevel  = LevelInfo
	currentFormat = FormatText
	logger        = stdlog.New(os.Stdout, "", 0)
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SetLevel sets the minimum level that will be emitted. Unknown values leave
// the level unchanged.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetFormat selects between text and json output. Unknown values leave the
// format unchanged.
func SetFormat(format string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(format) {
	case FormatText, FormatJSON:
		currentFormat = strings.ToLower(format)
	}
}

// SetOutput redirects log output. Defaults to stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	logger = stdlog.New(w, "", 0)
}

func log(level Level, format string, v ...any) {
	mu.Lock()
	defer mu.Unlock()

	if level < currentLevel {
		return
	}

	message := fmt.Sprintf(format, v...)

	if currentFormat == FormatJSON {
		line, err := json.Marshal(map[string]string{
			"time":  time.Now().Format(time.RFC3339),
			"level": level.String(),
			"msg":   message,
		})
		if err == nil {
			logger.Println(string(line))
			return
		}
		// Fall through to text on marshal failure.
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	logger.Println(fmt.Sprintf("[%s] [%s] ", timestamp, level.String()) + message)
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
