package panel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxResponseBytes = 4 << 20

// apiResponse is the x-ui response envelope. Forks disagree on whether the
// payload lives under "obj" or "data", so both are kept.
type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
	Data    json.RawMessage `json:"data"`
}

func (r *apiResponse) payload() json.RawMessage {
	if len(r.Obj) > 0 && string(r.Obj) != "null" {
		return r.Obj
	}
	return r.Data
}

// clientSettings is the JSON document the panel stores per inbound. On the
// wire it is itself a string inside a form field.
type clientSettings struct {
	Clients []inboundClient `json:"clients"`
}

type inboundClient struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Enable     bool   `json:"enable"`
	ExpiryTime int64  `json:"expiryTime"`
	TotalGB    int64  `json:"totalGB"`
	LimitIP    int    `json:"limitIp"`
	SubID      string `json:"subId"`
	SubIDAlt   string `json:"sub_id,omitempty"`
}

type inboundEntry struct {
	ID       int             `json:"id"`
	Settings json.RawMessage `json:"settings"`
}

// clients decodes the inbound's embedded settings. Some forks return the
// settings as an escaped JSON string, others inline the object; a settings
// blob that decodes as neither yields no clients rather than an error.
func (e *inboundEntry) clients() []inboundClient {
	raw := e.Settings
	if len(raw) == 0 {
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}

	var settings clientSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil
	}
	for i := range settings.Clients {
		if settings.Clients[i].SubID == "" {
			settings.Clients[i].SubID = settings.Clients[i].SubIDAlt
		}
	}
	return settings.Clients
}

// decodeInbounds accepts the payload either as a bare array or wrapped in a
// {"list": ...} / {"items": ...} object.
func decodeInbounds(payload json.RawMessage) ([]inboundEntry, error) {
	if len(payload) == 0 || string(payload) == "null" {
		return nil, nil
	}

	var entries []inboundEntry
	if err := json.Unmarshal(payload, &entries); err == nil {
		return entries, nil
	}

	var wrapped struct {
		List  []inboundEntry `json:"list"`
		Items []inboundEntry `json:"items"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, fmt.Errorf("unrecognized inbound list shape: %w", err)
	}
	if wrapped.List != nil {
		return wrapped.List, nil
	}
	return wrapped.Items, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read panel response: %w", err)
	}
	return body, nil
}
