// logger.go
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/common"
)

// Log is the global logger instance of XMLog.
var Log *XMLog

// XMLog wraps logrus.Logger for application-specific logging.
type XMLog struct {
	*logrus.Logger
}

var defaultFieldsOrder = []string{
	common.DeploymentName, common.StageName, common.NodeName,
}

func init() {
	Log = NewConsoleLog(os.Stdout, false, logrus.InfoLevel)
}

// NewConsoleLog builds a colored console logger writing to out.
func NewConsoleLog(out io.Writer, verbose bool, level logrus.Level) *XMLog {
	l := logrus.New()
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetOutput(out)
	l.SetFormatter(consoleFormatter(verbose))
	return &XMLog{Logger: l}
}

func consoleFormatter(verbose bool) *Formatter {
	display := ShowAboveWarn
	if verbose {
		display = ShowAll
	}
	return &Formatter{
		TimestampFormat:        "15:04:05",
		NoColors:               false,
		DisplayLevelName:       display,
		DisableCaller:          true,
		FieldsDisplayWithOrder: defaultFieldsOrder,
	}
}

// InitGlobalLogger replaces the global Log. Console output is always kept;
// when outputPath is set every enabled level is also written to a daily
// rotated xmdeploy.log through an lfshook.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	xl := NewConsoleLog(os.Stdout, verbose, defaultLevel)

	if outputPath != "" {
		if err := os.MkdirAll(outputPath, common.FileMode0755); err != nil {
			return fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
		}
		logFilePath := filepath.Join(outputPath, common.AppName+".log")

		writer, err := rotatelogs.New(
			logFilePath+".%Y%m%d",
			rotatelogs.WithLinkName(logFilePath),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
		}

		xl.SetReportCaller(true)
		fileFormatter := &Formatter{
			TimestampFormat:        "2006-01-02 15:04:05.000 MST",
			NoColors:               true,
			DisplayLevelName:       ShowAll,
			FieldsDisplayWithOrder: defaultFieldsOrder,
			CustomCallerFormatter: func(frame *runtime.Frame) string {
				return fmt.Sprintf(" [%s:%d]", filepath.Base(frame.File), frame.Line)
			},
		}

		logWriters := lfshook.WriterMap{}
		for _, level := range logrus.AllLevels {
			if xl.IsLevelEnabled(level) {
				logWriters[level] = writer
			}
		}
		xl.Hooks.Add(lfshook.NewHook(logWriters, fileFormatter))
	}

	Log = xl
	return nil
}

// ForDeployment returns an entry carrying the deployment and node fields.
func (xl *XMLog) ForDeployment(deploymentID, node string) *logrus.Entry {
	return xl.WithFields(logrus.Fields{
		common.DeploymentName: deploymentID,
		common.NodeName:       node,
	})
}

// Success logs a success message on an existing entry.
func Success(entry *logrus.Entry, args ...interface{}) {
	entry.WithField(common.OutcomeField, common.OutcomeSuccess).Info(args...)
}

// Successf is the formatted variant of Success.
func Successf(entry *logrus.Entry, format string, args ...interface{}) {
	entry.WithField(common.OutcomeField, common.OutcomeSuccess).Infof(format, args...)
}

// IsSuccess reports whether entry was emitted through Success or Successf.
func IsSuccess(entry *logrus.Entry) bool {
	v, ok := entry.Data[common.OutcomeField]
	return ok && v == common.OutcomeSuccess
}
