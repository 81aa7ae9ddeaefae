package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/beeep"
	"github.com/yegors/micscribe/internal/recorder"
	"github.com/yegors/micscribe/pkg/logger"
)

const notificationTitle = "micscribe"

// Console prints transcript lines to a terminal and raises alerts as
// desktop notifications
type Console struct {
	out           io.Writer
	notifications bool
	notify        func(title, message string) error
	logger        *logger.Logger
}

// NewConsole creates a console presenter writing to out
func NewConsole(out io.Writer, notifications bool, logger *logger.Logger) *Console {
	return &Console{
		out:           out,
		notifications: notifications,
		notify:        func(title, message string) error { return beeep.Notify(title, message, "") },
		logger:        logger.Named("console"),
	}
}

// SetStatus prints the recording indicator
func (c *Console) SetStatus(state recorder.State) {
	switch state {
	case recorder.Recording:
		fmt.Fprintln(c.out, "● Recording... press Enter to stop")
	case recorder.Transcribing:
		fmt.Fprintln(c.out, "… Transcribing")
	case recorder.Idle:
		fmt.Fprintln(c.out, "○ Ready. Press Enter to record")
	}
}

// AppendTranscript prints a transcript line
func (c *Console) AppendTranscript(line string) {
	fmt.Fprintf(c.out, "» %s\n", strings.TrimRight(line, "\r\n"))
}

// ClearTranscript announces that the transcript was emptied
func (c *Console) ClearTranscript() {
	fmt.Fprintln(c.out, "Transcript cleared")
}

// SetExportEnabled logs whether copy and download are available
func (c *Console) SetExportEnabled(enabled bool) {
	c.logger.Debug("Export controls changed", logger.Bool("enabled", enabled))
}

// Alert shows message to the user; notification failures are only logged
func (c *Console) Alert(message string) {
	fmt.Fprintf(c.out, "! %s\n", message)

	if !c.notifications {
		return
	}
	if err := c.notify(notificationTitle, message); err != nil {
		c.logger.Debug("Desktop notification failed", logger.Error(err))
	}
}
