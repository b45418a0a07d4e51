package logger

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmdeploy/common"
)

const (
	resetColorCode        = 0
	defaultFieldSeparator = " | "
	defaultTimestampFormat = time.RFC3339
	successLevelName      = "SUCC"
)

// Formatter implements logrus.Formatter.
type Formatter struct {
	// TimestampFormat specifies the format of the timestamp. Default: time.RFC3339.
	TimestampFormat string
	// NoColors disables colorized output.
	NoColors bool
	// DisableTimestamp disables timestamp output.
	DisableTimestamp bool
	// DisplayLevelName configures which level tags are printed. Success
	// entries always print their tag.
	DisplayLevelName LevelNameDisplayMode
	// HideKeys prints field values without their keys.
	HideKeys bool
	// FieldsDisplayWithOrder lists the keys printed first, in order. The
	// remaining keys follow alphabetically.
	FieldsDisplayWithOrder []string
	// FieldSeparator defaults to " | ".
	FieldSeparator string
	// DisableCaller disables caller information output.
	DisableCaller bool
	// CustomCallerFormatter formats caller information.
	CustomCallerFormatter func(*runtime.Frame) string
	// MaxFieldValueLength truncates long field values. 0 disables truncation.
	MaxFieldValueLength int
}

// LevelNameDisplayMode defines how log level names are displayed.
type LevelNameDisplayMode int

const (
	ShowAll LevelNameDisplayMode = iota
	ShowAboveWarn
	ShowAboveError
	HideAll
)

// Format formats the log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		timestampFormat := f.TimestampFormat
		if timestampFormat == "" {
			timestampFormat = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(timestampFormat))
		b.WriteString(" ")
	}

	success := IsSuccess(entry)
	if success || f.showLevel(entry.Level) {
		levelStr := levelTag(entry.Level)
		color := getColorByLevel(entry.Level)
		if success {
			levelStr = successLevelName
			color = colorGreen
		}
		if !f.NoColors {
			fmt.Fprintf(b, "\x1b[%dm[%s]\x1b[%dm ", color, levelStr, resetColorCode)
		} else {
			fmt.Fprintf(b, "[%s] ", levelStr)
		}
	}

	separator := f.FieldSeparator
	if separator == "" {
		separator = defaultFieldSeparator
	}
	if keys := f.orderedKeys(entry); len(keys) > 0 {
		b.WriteString("[")
		for i, key := range keys {
			if i > 0 {
				b.WriteString(separator)
			}
			f.writeKeyValue(b, key, entry.Data[key])
		}
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)

	if !f.DisableCaller && entry.HasCaller() {
		b.WriteString(" ")
		f.writeCaller(b, entry)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *Formatter) showLevel(level logrus.Level) bool {
	switch f.DisplayLevelName {
	case ShowAll:
		return true
	case ShowAboveWarn:
		return level <= logrus.WarnLevel
	case ShowAboveError:
		return level <= logrus.ErrorLevel
	default:
		return false
	}
}

func levelTag(level logrus.Level) string {
	s := strings.ToUpper(level.String())
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

// orderedKeys returns the keys to print. The outcome marker is rendered as
// the level tag and never printed as a field.
func (f *Formatter) orderedKeys(entry *logrus.Entry) []string {
	seen := make(map[string]bool, len(entry.Data))
	keys := make([]string, 0, len(entry.Data))
	for _, key := range f.FieldsDisplayWithOrder {
		if _, ok := entry.Data[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	rest := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if !seen[key] && key != common.OutcomeField {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (f *Formatter) writeKeyValue(b *bytes.Buffer, key string, value interface{}) {
	valStr := fmt.Sprintf("%v", value)
	if f.MaxFieldValueLength > 0 && len(valStr) > f.MaxFieldValueLength {
		valStr = valStr[:f.MaxFieldValueLength] + "..."
	}
	if f.HideKeys {
		b.WriteString(valStr)
	} else {
		fmt.Fprintf(b, "%s:%s", key, valStr)
	}
}

func (f *Formatter) writeCaller(b *bytes.Buffer, entry *logrus.Entry) {
	if f.CustomCallerFormatter != nil {
		b.WriteString(f.CustomCallerFormatter(entry.Caller))
		return
	}
	callerFunc := filepath.Base(entry.Caller.Function)
	if parts := strings.Split(callerFunc, "."); len(parts) > 1 {
		callerFunc = parts[len(parts)-1]
	}
	fmt.Fprintf(b, "(%s:%d %s)", filepath.Base(entry.Caller.File), entry.Caller.Line, callerFunc)
}

func getColorByLevel(level logrus.Level) int {
	switch level {
	case logrus.TraceLevel:
		return colorGray
	case logrus.DebugLevel:
		return colorBlue
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorGray
	}
}

const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 37
)
