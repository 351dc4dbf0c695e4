package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/calyptra/voxwire/internal/events"
)

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var typeStyle lipgloss.Style
	switch {
	case strings.HasSuffix(e.Type, ".completed"):
		typeStyle = theme.Completed
	case strings.HasSuffix(e.Type, ".failed"), strings.HasSuffix(e.Type, ".parse_failed"),
		strings.HasPrefix(e.Type, "exception."):
		typeStyle = theme.Failed
	case strings.HasSuffix(e.Type, ".dispatched"):
		typeStyle = theme.Handling
	case strings.HasSuffix(e.Type, ".cancelled"), strings.HasSuffix(e.Type, ".dropped"):
		typeStyle = theme.Cancelled
	default:
		typeStyle = theme.Dim
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-24s", e.Type))

	return fmt.Sprintf("%s %s %s", ts, typeName, extractEventDesc(e))
}

func extractEventDesc(e events.Event) string {
	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	var parts []string

	if msgID, ok := data["message_id"].(string); ok && msgID != "" {
		if len(msgID) > 12 {
			msgID = msgID[:12]
		}
		parts = append(parts, fmt.Sprintf("[%s]", msgID))
	}

	if ns, ok := data["namespace"].(string); ok && ns != "" {
		name, _ := data["name"].(string)
		parts = append(parts, ns+"."+name)
	}

	if kind, ok := data["kind"].(string); ok && kind != "" {
		parts = append(parts, kind)
	}

	if detail, ok := data["detail"].(string); ok && detail != "" {
		parts = append(parts, detail)
	}

	if desc, ok := data["description"].(string); ok && desc != "" {
		parts = append(parts, desc)
	}

	if len(parts) == 0 {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	return strings.Join(parts, " ")
}
