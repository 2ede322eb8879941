package dialogue

import (
	"strconv"
	"strings"
)

// EventKind tells typed text apart from a button selection.
type EventKind int

const (
	// EventText is a plain text message, including reply-keyboard presses.
	EventText EventKind = iota
	// EventSelection is an inline button press; the payload is "key|data".
	EventSelection
)

func (k EventKind) String() string {
	if k == EventSelection {
		return "selection"
	}
	return "text"
}

// Event is one inbound user action.
type Event struct {
	UserID  int64
	Kind    EventKind
	Payload string
}

// TextEvent builds a text event.
func TextEvent(userID int64, text string) Event {
	return Event{UserID: userID, Kind: EventText, Payload: text}
}

// SelectionEvent builds a selection event from a callback key and its data.
func SelectionEvent(userID int64, key, data string) Event {
	payload := key
	if data != "" {
		payload += "|" + data
	}
	return Event{UserID: userID, Kind: EventSelection, Payload: payload}
}

// Intent is what an event asks for, independent of the current state.
type Intent int

const (
	IntentText Intent = iota
	IntentStart
	IntentCancel
	IntentNewDeposit
	IntentNewWithdrawal
	IntentStats
	IntentEditList
	IntentUseCurrentDate
	IntentEditAmount
	IntentEditDate
	IntentEditType
	IntentSelectRecord
	IntentCancelEdit
	IntentUnknownSelection
)

var intentNames = map[Intent]string{
	IntentText:             "text",
	IntentStart:            "start",
	IntentCancel:           "cancel",
	IntentNewDeposit:       "new_deposit",
	IntentNewWithdrawal:    "new_withdrawal",
	IntentStats:            "stats",
	IntentEditList:         "edit_list",
	IntentUseCurrentDate:   "use_current_date",
	IntentEditAmount:       "edit_amount",
	IntentEditDate:         "edit_date",
	IntentEditType:         "edit_type",
	IntentSelectRecord:     "select_record",
	IntentCancelEdit:       "cancel_edit",
	IntentUnknownSelection: "unknown_selection",
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "unknown"
}

var textIntents = map[string]Intent{
	CmdStart:            IntentStart,
	CmdCancel:           IntentCancel,
	LabelCancel:         IntentCancel,
	LabelNewDeposit:     IntentNewDeposit,
	LabelNewWithdrawal:  IntentNewWithdrawal,
	LabelStats:          IntentStats,
	LabelEditList:       IntentEditList,
	LabelUseCurrentDate: IntentUseCurrentDate,
	LabelEditAmount:     IntentEditAmount,
	LabelEditDate:       IntentEditDate,
	LabelEditType:       IntentEditType,
}

// classified is an event resolved to an intent; RecordID is set for
// IntentSelectRecord and Text holds the trimmed text payload.
type classified struct {
	Intent   Intent
	RecordID int64
	Text     string
}

func classify(ev Event) classified {
	if ev.Kind == EventSelection {
		key, data, _ := strings.Cut(ev.Payload, "|")
		switch strings.TrimSpace(key) {
		case SelectEditRecord:
			id, err := strconv.ParseInt(strings.TrimSpace(data), 10, 64)
			if err != nil || id <= 0 {
				return classified{Intent: IntentUnknownSelection}
			}
			return classified{Intent: IntentSelectRecord, RecordID: id}
		case SelectCancelEdit:
			return classified{Intent: IntentCancelEdit}
		}
		return classified{Intent: IntentUnknownSelection}
	}

	text := strings.TrimSpace(ev.Payload)
	if in, ok := textIntents[text]; ok {
		return classified{Intent: in, Text: text}
	}
	// "/start@p2pbot" and "/start <payload>" forms.
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
		if in, ok := textIntents[cmd]; ok {
			return classified{Intent: in, Text: text}
		}
	}
	return classified{Intent: IntentText, Text: text}
}
