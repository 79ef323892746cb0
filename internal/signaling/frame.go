package signaling

import "encoding/json"

// frame is the wire shape of every inbound signaling message. The router
// never inspects sdp/candidate payloads — they are forwarded opaquely — so
// they are carried as json.RawMessage and never unmarshaled further.
type frame struct {
	Type           string          `json:"type"`
	FlatID         string          `json:"flat_id"`
	Role           string          `json:"role"`
	TargetFlat     string          `json:"targetFlat"`
	ListenerID     string          `json:"listenerId"`
	BroadcasterFlat string         `json:"broadcasterFlat"`
	SDP            json.RawMessage `json:"sdp,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
}

func parseFrame(raw []byte) (*frame, bool) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	if f.Type == "" {
		return nil, false
	}
	return &f, true
}

func mustJSON(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}

type helloFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type deniedFrame struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type listenOKFrame struct {
	Type       string `json:"type"`
	TargetFlat string `json:"targetFlat"`
}

type listenerJoinFrame struct {
	Type       string `json:"type"`
	ListenerID string `json:"listenerId"`
}

type listenerLeaveFrame struct {
	Type       string `json:"type"`
	ListenerID string `json:"listenerId"`
}

type offerFrame struct {
	Type string          `json:"type"`
	From string          `json:"from"`
	SDP  json.RawMessage `json:"sdp"`
}

type answerFrame struct {
	Type       string          `json:"type"`
	ListenerID string          `json:"listenerId"`
	SDP        json.RawMessage `json:"sdp"`
}

type iceToListenerFrame struct {
	Type      string          `json:"type"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type iceToBroadcasterFrame struct {
	Type       string          `json:"type"`
	ListenerID string          `json:"listenerId"`
	Candidate  json.RawMessage `json:"candidate"`
}
