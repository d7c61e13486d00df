// Package logging configures the shared logrus logger, its rotating file output and
// the Gin middleware of the control API. Log lines carry the login attempt ID in place
// of a request ID so that every hop of one attempt can be grepped together.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cryovex/mcauth/internal/config"
	"github.com/cryovex/mcauth/internal/util"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	setupOnce      sync.Once
	writerMu       sync.Mutex
	logWriter      *lumberjack.Logger
	ginInfoWriter  *io.PipeWriter
	ginErrorWriter *io.PipeWriter
)

// LogFormatter renders entries as
//
//	[2026-03-02 10:14:04] [3f9c1a2b] [info ] [chain.go:212] hop succeeded hop=xsts status=200
//
// The bracketed ID is the "attempt" field, or the "request_id" field for control API requests.
type LogFormatter struct{}

// logFieldOrder defines which fields are printed and in what order.
var logFieldOrder = []string{"hop", "state", "kind", "status", "len", "elapsed", "path", "error"}

// Format renders a single log entry.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	id := "--------"
	for _, key := range []string{"attempt", "request_id"} {
		if v, ok := entry.Data[key].(string); ok && v != "" {
			id = v
			break
		}
	}
	if len(id) > 8 {
		id = id[:8]
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	var fields []string
	for _, k := range logFieldOrder {
		if v, ok := entry.Data[k]; ok {
			fields = append(fields, fmt.Sprintf("%s=%v", k, v))
		}
	}
	fieldsStr := ""
	if len(fields) > 0 {
		fieldsStr = " " + strings.Join(fields, " ")
	}

	if entry.Caller != nil {
		fmt.Fprintf(buffer, "[%s] [%s] [%-5s] [%s:%d] %s%s\n", timestamp, id, level, filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldsStr)
	} else {
		fmt.Fprintf(buffer, "[%s] [%s] [%-5s] %s%s\n", timestamp, id, level, message, fieldsStr)
	}
	return buffer.Bytes(), nil
}

// SetupBaseLogger configures the shared logrus instance and routes Gin's writers through it.
// It is safe to call multiple times.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stdout)
		log.SetReportCaller(true)
		log.SetFormatter(&LogFormatter{})

		ginInfoWriter = log.StandardLogger().Writer()
		gin.DefaultWriter = ginInfoWriter
		ginErrorWriter = log.StandardLogger().WriterLevel(log.ErrorLevel)
		gin.DefaultErrorWriter = ginErrorWriter
		gin.DebugPrintFunc = func(format string, values ...interface{}) {
			log.StandardLogger().Infof(strings.TrimRight(format, "\r\n"), values...)
		}

		log.RegisterExitHandler(closeLogOutputs)
	})
}

func isDirWritable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.CreateTemp(dir, ".perm_test")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// ResolveLogDirectory returns WRITABLE_PATH/logs when set, ./logs when writable,
// and <auth-dir>/logs otherwise.
func ResolveLogDirectory(cfg *config.Config) string {
	if base := util.WritablePath(); base != "" {
		return filepath.Join(base, "logs")
	}
	logDir := "logs"
	if cfg == nil || isDirWritable(logDir) {
		return logDir
	}
	authDir, err := util.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		log.Warnf("failed to resolve auth-dir %q for log directory: %v", cfg.AuthDir, err)
	}
	if authDir != "" {
		logDir = filepath.Join(authDir, "logs")
	}
	return logDir
}

// ConfigureLogOutput switches the global log destination between a rotating file and stdout,
// and starts the size-limit cleaner when cfg.LogsMaxTotalSizeMB is positive.
func ConfigureLogOutput(cfg *config.Config) error {
	SetupBaseLogger()

	writerMu.Lock()
	defer writerMu.Unlock()

	if cfg == nil {
		cfg = &config.Config{}
	}
	logDir := ResolveLogDirectory(cfg)

	activePath := ""
	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	if cfg.LoggingToFile {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("logging: failed to create log directory: %w", err)
		}
		activePath = filepath.Join(logDir, "mcauth.log")
		logWriter = &lumberjack.Logger{
			Filename: activePath,
			MaxSize:  10,
		}
		log.SetOutput(logWriter)
	} else {
		log.SetOutput(os.Stdout)
	}

	restartCleanerLocked(logDir, cfg.LogsMaxTotalSizeMB, activePath)
	return nil
}

func closeLogOutputs() {
	writerMu.Lock()
	defer writerMu.Unlock()

	stopCleanerLocked()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	if ginInfoWriter != nil {
		_ = ginInfoWriter.Close()
		ginInfoWriter = nil
	}
	if ginErrorWriter != nil {
		_ = ginErrorWriter.Close()
		ginErrorWriter = nil
	}
}
