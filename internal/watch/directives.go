package watch

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/table"

	"github.com/calyptra/voxwire/internal/events"
)

// DirectiveState tracks one directive's lifecycle as seen on the trace stream.
type DirectiveState struct {
	MessageID       string
	Namespace       string
	Name            string
	DialogRequestID string
	Status          string
	Detail          string
	UpdatedAt       time.Time
}

// traceData mirrors the dispatcher's trace event payload.
type traceData struct {
	MessageID       string `json:"message_id"`
	Namespace       string `json:"namespace"`
	Name            string `json:"name"`
	DialogRequestID string `json:"dialog_request_id"`
	Detail          string `json:"detail"`
}

// updateDirectiveState folds a trace event into the per-directive state map.
// order keeps message ids newest-first for display.
func updateDirectiveState(directives map[string]*DirectiveState, order *[]string, e events.Event) {
	var status string
	switch e.Type {
	case "directive.dispatched":
		status = "HANDLING"
	case "directive.completed":
		status = "COMPLETED"
	case "directive.failed":
		status = "FAILED"
	case "directive.cancelled":
		status = "CANCELLED"
	case "directive.dropped":
		status = "DROPPED"
	default:
		// received / parse_failed carry no message id to key on.
		return
	}

	var data traceData
	if err := json.Unmarshal(e.Data, &data); err != nil || data.MessageID == "" {
		return
	}

	d, ok := directives[data.MessageID]
	if !ok {
		d = &DirectiveState{MessageID: data.MessageID}
		directives[data.MessageID] = d
		*order = append([]string{data.MessageID}, *order...)
	}

	d.Namespace = data.Namespace
	d.Name = data.Name
	d.DialogRequestID = data.DialogRequestID
	d.Status = status
	d.Detail = data.Detail
	d.UpdatedAt = e.At
}

// directiveRows converts the state map into table rows, newest first.
func directiveRows(directives map[string]*DirectiveState, order []string) []table.Row {
	rows := make([]table.Row, 0, len(order))
	for _, id := range order {
		d, ok := directives[id]
		if !ok {
			continue
		}
		msgID := d.MessageID
		if len(msgID) > 12 {
			msgID = msgID[:12]
		}
		dialog := d.DialogRequestID
		if dialog == "" {
			dialog = "-"
		} else if len(dialog) > 12 {
			dialog = dialog[:12]
		}
		rows = append(rows, table.Row{
			msgID,
			d.Namespace,
			d.Name,
			dialog,
			d.Status,
			d.UpdatedAt.Format("15:04:05"),
		})
	}
	return rows
}

func newDirectiveTable() table.Model {
	columns := []table.Column{
		{Title: "MESSAGE ID", Width: 14},
		{Title: "NAMESPACE", Width: 20},
		{Title: "NAME", Width: 20},
		{Title: "DIALOG", Width: 14},
		{Title: "STATUS", Width: 10},
		{Title: "AT", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	t.SetStyles(styles)

	return t
}
