package models

import (
	"strings"

	"festreg/internal/errdef"
)

const (
	TypeIndividual = "individual"
	TypeGroup      = "group"
)

// EventOptions and ClassOptions are the closed sets offered by the form.
// They are not enforced on import: a manually imported row may carry any
// non-empty value.
var EventOptions = []string{
	"Group Song", "Group Dance", "Fashion Show", "Mad Ads",
	"Mime", "Rangoli", "Mehendi",
}

var ClassOptions = []string{
	"I PCMB", "I PCME", "I SEBA", "I CEBA", "I HEPS",
	"II PCMB", "II PCME", "II SEBA", "II CEBA", "II HEPS",
}

// Registration is the sole persisted entity. Timestamp is display-only:
// it never drives ordering or merge decisions.
type Registration struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Event     string   `json:"event"`
	Class     string   `json:"classVal"`
	Names     []string `json:"names"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// Input is the form payload for create and edit. An edit replaces every
// field of the target registration except its id.
type Input struct {
	Type  string   `json:"type"`
	Event string   `json:"event"`
	Class string   `json:"classVal"`
	Names []string `json:"names"`
}

// Normalize trims the payload and checks the required-field rules:
// event and class non-empty, no blank name entries, exactly one name for
// individual entries. The returned Input carries the trimmed names.
func (in Input) Normalize() (Input, error) {
	out := Input{
		Type:  strings.TrimSpace(in.Type),
		Event: strings.TrimSpace(in.Event),
		Class: strings.TrimSpace(in.Class),
	}
	if out.Type == "" {
		out.Type = TypeIndividual
	}
	if out.Type != TypeIndividual && out.Type != TypeGroup {
		return Input{}, errdef.NewValidation("unknown participation type %q", in.Type)
	}
	if out.Event == "" {
		return Input{}, errdef.NewValidation("event is required")
	}
	if out.Class == "" {
		return Input{}, errdef.NewValidation("class is required")
	}
	for _, n := range in.Names {
		if strings.TrimSpace(n) == "" {
			return Input{}, errdef.NewValidation("every name must be filled in")
		}
		out.Names = append(out.Names, strings.TrimSpace(n))
	}
	if len(out.Names) == 0 {
		return Input{}, errdef.NewValidation("at least one name is required")
	}
	if out.Type == TypeIndividual && len(out.Names) != 1 {
		return Input{}, errdef.NewValidation("individual entries carry exactly one name")
	}
	return out, nil
}
