package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LevelRouterHook writes each entry to the writer and formatter registered for
// its level. Info goes to stdout as the bare message so CLI output stays
// readable; everything else goes to stderr with timestamps and fields.
type LevelRouterHook struct {
	mu         sync.Mutex
	Writers    map[logrus.Level]io.Writer
	Formatters map[logrus.Level]logrus.Formatter
	LogLevels  []logrus.Level
}

func NewLevelRouterHook() *LevelRouterHook {
	h := &LevelRouterHook{LogLevels: logrus.AllLevels}
	h.SetWriters(os.Stdout, os.Stderr)
	h.SetFormat(FormatText)
	return h
}

// SetWriters sends info to out and every other level to errOut.
func (h *LevelRouterHook) SetWriters(out, errOut io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Writers = map[logrus.Level]io.Writer{}
	for _, lvl := range logrus.AllLevels {
		h.Writers[lvl] = errOut
	}
	h.Writers[logrus.InfoLevel] = out
}

// SetFormat switches every level to JSON, or back to the text layout.
func (h *LevelRouterHook) SetFormat(format string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Formatters = map[logrus.Level]logrus.Formatter{}
	if format == FormatJSON {
		json := &logrus.JSONFormatter{}
		for _, lvl := range logrus.AllLevels {
			h.Formatters[lvl] = json
		}
		return
	}
	text := &logrus.TextFormatter{FullTimestamp: true}
	for _, lvl := range logrus.AllLevels {
		h.Formatters[lvl] = text
	}
	h.Formatters[logrus.InfoLevel] = &MessageFormatter{}
}

func (h *LevelRouterHook) Levels() []logrus.Level {
	return h.LogLevels
}

func (h *LevelRouterHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	writer, ok := h.Writers[entry.Level]
	if !ok {
		writer = os.Stdout
	}
	formatter, ok := h.Formatters[entry.Level]
	if !ok {
		formatter = h.Formatters[logrus.InfoLevel]
	}

	bytes, err := formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = writer.Write(bytes)
	return err
}

// MessageFormatter outputs only the message, followed by the fields if any.
type MessageFormatter struct{}

func (f *MessageFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
