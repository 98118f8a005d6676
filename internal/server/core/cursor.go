package core

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cursor is the keyset position of the last row on a history page
type Cursor struct {
	PerformedAt time.Time
	ID          string
}

type cursorWire struct {
	PerformedAt *string `json:"performedAt"`
	ID          *string `json:"id"`
}

// EncodeCursor returns the opaque JSON form handed to clients
func EncodeCursor(c Cursor) string {
	performedAt := c.PerformedAt.UTC().Format(time.RFC3339Nano)
	id := c.ID
	data, _ := json.Marshal(cursorWire{PerformedAt: &performedAt, ID: &id})
	return string(data)
}

// DecodeCursor parses a cursor produced by EncodeCursor. Plain JSON and
// base64url-encoded JSON are both accepted; anything else is a validation error.
func DecodeCursor(raw string) (Cursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Cursor{}, Validation("cursor must not be empty")
	}

	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return Cursor{}, Validation("cursor is malformed")
		}
		data = decoded
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w cursorWire
	if err := dec.Decode(&w); err != nil {
		return Cursor{}, Validation("cursor is malformed")
	}
	if dec.More() {
		return Cursor{}, Validation("cursor is malformed")
	}
	if w.PerformedAt == nil || w.ID == nil {
		return Cursor{}, Validation("cursor requires performedAt and id")
	}

	t, err := time.Parse(time.RFC3339Nano, *w.PerformedAt)
	if err != nil {
		return Cursor{}, Validation("cursor performedAt must be RFC3339")
	}
	id, err := uuid.Parse(*w.ID)
	if err != nil {
		return Cursor{}, Validation("cursor id must be a UUID")
	}

	return Cursor{PerformedAt: t.UTC(), ID: id.String()}, nil
}
