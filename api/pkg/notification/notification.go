package notification

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-visible notice, the equivalent of a toast.
type Notification struct {
	Level   Level
	Title   string
	Message string
	AgentID string
}

func (n *Notification) String() string {
	if n.Message == "" {
		return n.Title
	}
	return fmt.Sprintf("%s: %s", n.Title, n.Message)
}

//go:generate mockgen -source $GOFILE -destination notification_mocks.go -package $GOPACKAGE

type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

var _ Notifier = &LogNotifier{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (l *LogNotifier) Notify(_ context.Context, n *Notification) error {
	var event = log.Info()
	switch n.Level {
	case LevelWarning:
		event = log.Warn()
	case LevelError:
		event = log.Error()
	}

	event.
		Str("agent_id", n.AgentID).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}

// WriterNotifier prints one line per notification, used by the CLI.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Notifier = &WriterNotifier{}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (w *WriterNotifier) Notify(_ context.Context, n *Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prefix := "i"
	switch n.Level {
	case LevelWarning:
		prefix = "!"
	case LevelError:
		prefix = "x"
	}

	_, err := fmt.Fprintf(w.w, "[%s] %s\n", prefix, n.String())
	return err
}
