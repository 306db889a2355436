package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"followscout/pkg/classify"
	"followscout/pkg/diff"
	"followscout/pkg/logger"
)

// Options controls which conditions produce a notification. Follow events
// are always delivered; errors and suspicious diffs are opt-in.
type Options struct {
	OnError      bool
	OnSuspicious bool
}

// LogNotifier delivers notifications through the structured log. It is the
// default sink when no external delivery channel is wired up, and the
// reference for what any other sink must accept.
type LogNotifier struct {
	opts   Options
	logger logger.Logger
}

// NewLogNotifier creates a notifier that writes to the given logger
func NewLogNotifier(opts Options, log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.GetLogger()
	}
	return &LogNotifier{opts: opts, logger: log}
}

// FollowEvents delivers one target's observed follow changes
func (n *LogNotifier) FollowEvents(_ context.Context, events []diff.Event) error {
	if len(events) == 0 {
		return nil
	}

	n.logger.InfoWithFields("follow changes detected", map[string]interface{}{
		"target":  events[0].Target,
		"changes": len(events),
		"message": FormatEvents(events),
	})
	return nil
}

// ScanFailure delivers a target's terminal scan failure
func (n *LogNotifier) ScanFailure(_ context.Context, target string, kind classify.Kind, err error) error {
	if !n.opts.OnError {
		return nil
	}

	n.logger.ErrorWithFields("scan failure notification", map[string]interface{}{
		"target":  target,
		"kind":    kind.String(),
		"message": FormatScanFailure(target, kind, err),
	})
	return nil
}

// SuspiciousDiff delivers a warning about an implausible follow list change
func (n *LogNotifier) SuspiciousDiff(_ context.Context, target, warning string) error {
	if !n.opts.OnSuspicious {
		return nil
	}

	n.logger.WarnWithFields("suspicious diff notification", map[string]interface{}{
		"target":  target,
		"message": warning,
	})
	return nil
}

// FormatEvents renders follow events as an HTML message, additions first,
// ready for any chat sink that accepts basic HTML.
func FormatEvents(events []diff.Event) string {
	if len(events) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(events[0].Target))

	for _, event := range events {
		verb := "started following"
		if event.Kind == diff.Removed {
			verb = "stopped following"
		}
		fmt.Fprintf(&b, "%s <a href=\"https://www.instagram.com/%s/\">%s</a>\n",
			verb, html.EscapeString(event.FollowHandle), html.EscapeString(event.FollowHandle))
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatScanFailure renders a terminal scan failure as an HTML message
func FormatScanFailure(target string, kind classify.Kind, err error) string {
	detail := ""
	if err != nil {
		detail = html.EscapeString(err.Error())
	}
	return fmt.Sprintf("<b>%s</b> scan failed (%s)\n%s",
		html.EscapeString(target), kind.String(), detail)
}
