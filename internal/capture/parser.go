// Package capture turns free text into proto tower items.
//
// It is a strict parse-and-validate boundary: the model's loosely-typed JSON
// is checked field by field, and anything that fails - an unconfigured
// client, a network error, malformed JSON, an invalid date - degrades to a
// single fallback item carrying the raw text. The engine downstream never
// sees unchecked external data and never needs to special-case a fallback.
package capture

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/spiffler33/meridian/internal/core"
	"github.com/spiffler33/meridian/internal/logging"
)

// Model is the external text-generation collaborator
type Model interface {
	Chat(ctx context.Context, system, userMessage string) (string, error)
	IsConfigured() bool
}

// ProtoItem is a validated, not-yet-persisted item. Fallback marks the
// raw-text degradation variant.
type ProtoItem struct {
	Text      string
	Status    core.Status
	IsEvent   bool
	ExpectsBy *time.Time
	WaitingOn string
	Effort    core.Effort
	Fallback  bool
}

// Parser drives capture through the model
type Parser struct {
	model Model
	log   *logging.Logger
}

// NewParser creates a capture parser. A nil model always falls back.
func NewParser(model Model) *Parser {
	return &Parser{
		model: model,
		log:   logging.WithField("component", "capture"),
	}
}

const systemPrompt = `You split a user's free-form capture into attention items.

Respond with ONLY a JSON array (no markdown, no prose). Each element:
{
  "text": "what to do or attend, imperative, short",
  "status": "active" | "waiting" | "someday",
  "is_event": false for something the user DOES, true for something the user SHOWS UP TO,
  "expects_by": "YYYY-MM-DD" or null (deadline for actions, occurrence date for events),
  "waiting_on": "who or what blocks this" or null (only when status is waiting),
  "effort": "quick" | "medium" | "deep" or null
}

Prefer one item unless the text clearly contains several independent intentions.`

// dateRe gates expects_by before any time parsing happens
var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Parse converts raw text into one or more proto items. It never fails on
// model trouble; the result is non-empty for any non-blank input.
func (p *Parser) Parse(ctx context.Context, raw string) ([]ProtoItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, core.ErrEmptyText
	}

	if p.model == nil || !p.model.IsConfigured() {
		p.log.Debug("capture model unconfigured, using raw fallback")
		return []ProtoItem{fallback(raw)}, nil
	}

	reply, err := p.model.Chat(ctx, systemPrompt, raw)
	if err != nil {
		p.log.Warn("capture model call failed: %v", err)
		return []ProtoItem{fallback(raw)}, nil
	}

	items := p.decode(reply)
	if len(items) == 0 {
		p.log.Warn("capture reply unusable, using raw fallback")
		return []ProtoItem{fallback(raw)}, nil
	}
	return items, nil
}

// decode parses the model reply and keeps only entries that validate
func (p *Parser) decode(reply string) []ProtoItem {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	var parsed []struct {
		Text      string  `json:"text"`
		Status    string  `json:"status"`
		IsEvent   bool    `json:"is_event"`
		ExpectsBy *string `json:"expects_by"`
		WaitingOn *string `json:"waiting_on"`
		Effort    *string `json:"effort"`
	}
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		return nil
	}

	var items []ProtoItem
	for _, e := range parsed {
		item, ok := validate(e.Text, e.Status, e.IsEvent, e.ExpectsBy, e.WaitingOn, e.Effort)
		if !ok {
			p.log.Debug("dropping invalid capture entry %q", e.Text)
			continue
		}
		items = append(items, item)
	}
	return items
}

func validate(text, status string, isEvent bool, expectsBy, waitingOn, effort *string) (ProtoItem, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ProtoItem{}, false
	}

	st := core.Status(status)
	if st == "" {
		st = core.StatusActive
	}
	if !core.ValidStatus(st) || st == core.StatusDone {
		return ProtoItem{}, false
	}

	item := ProtoItem{Text: text, Status: st, IsEvent: isEvent}

	if expectsBy != nil && *expectsBy != "" {
		s := strings.TrimSpace(*expectsBy)
		if !dateRe.MatchString(s) {
			return ProtoItem{}, false
		}
		d, err := time.ParseInLocation(core.DateLayout, s, time.UTC)
		if err != nil {
			return ProtoItem{}, false
		}
		item.ExpectsBy = &d
	}

	if waitingOn != nil && st == core.StatusWaiting {
		item.WaitingOn = strings.TrimSpace(*waitingOn)
	}

	if effort != nil && *effort != "" {
		e := core.Effort(strings.TrimSpace(*effort))
		if !core.ValidEffort(e) {
			return ProtoItem{}, false
		}
		item.Effort = e
	}

	return item, true
}

// fallback wraps the raw text in the minimal valid item
func fallback(raw string) ProtoItem {
	return ProtoItem{
		Text:     raw,
		Status:   core.StatusActive,
		IsEvent:  false,
		Fallback: true,
	}
}
