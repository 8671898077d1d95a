package sheetsync

import (
	"festreg/internal/models"
	"festreg/internal/util"
)

// sheetRecord is the flat row shape exchanged with the sheet endpoint.
type sheetRecord struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Event     string   `json:"event"`
	Class     string   `json:"classVal"`
	Names     []string `json:"names"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// defaulted fills the gaps a hand-edited sheet row may have before a
// local-mode merge.
func (r sheetRecord) defaulted(genID func() string) models.Registration {
	reg := models.Registration{
		ID:        r.ID,
		Type:      r.Type,
		Event:     r.Event,
		Class:     r.Class,
		Names:     r.Names,
		Timestamp: util.NowISO(),
	}
	if reg.ID == "" {
		reg.ID = genID()
	}
	if reg.Type == "" {
		reg.Type = models.TypeIndividual
	}
	if reg.Event == "" {
		reg.Event = "Unknown"
	}
	if reg.Class == "" {
		reg.Class = "Unknown"
	}
	if reg.Names == nil {
		reg.Names = []string{}
	}
	return reg
}
