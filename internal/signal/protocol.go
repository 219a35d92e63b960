package signal

import (
	"encoding/json"
	"fmt"
)

// Type tags a signaling message. The set is closed: decoding rejects
// anything else instead of silently ignoring it.
type Type string

const (
	TypeOffer        Type = "offer"
	TypeAnswer       Type = "answer"
	TypeICE          Type = "ice"
	TypeHello        Type = "hello"
	TypeQuality      Type = "quality"
	TypeActiveSource Type = "active_source"
	TypeDrawPacket   Type = "draw_packet"
	TypeCamPreview   Type = "cam_preview"
)

// Envelope is the wire form of every channel message. From carries the
// sender's peer id so a peer can drop its own broadcasts when the pub/sub
// loops them back.
type Envelope struct {
	Type Type            `json:"type"`
	From string          `json:"from"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is the decoded payload of an envelope.
type Message interface {
	SignalType() Type
}

type Offer struct {
	SDP string `json:"sdp"`
}

type Answer struct {
	SDP string `json:"sdp"`
}

type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type ICE struct {
	Candidate ICECandidate `json:"candidate"`
}

// Hello is the rendezvous ping a newly subscribed peer broadcasts so an
// earlier offer can be re-sent to it.
type Hello struct {
	At int64 `json:"at"`
}

type Quality struct {
	Level string `json:"level"`
}

type ActiveSource struct {
	Source string `json:"source"`
}

// DrawPacket carries an annotation overlay: a snapshot frame plus the
// shapes drawn on top of it. Shapes stay opaque to the server.
type DrawPacket struct {
	ID            string          `json:"id"`
	CreatedAt     int64           `json:"createdAt"`
	SnapshotImage string          `json:"snapshotImage,omitempty"`
	Shapes        json.RawMessage `json:"shapes,omitempty"`
}

// CamPreview is a low-rate JPEG preview frame from the phone camera.
type CamPreview struct {
	Image string `json:"image"`
	At    int64  `json:"at"`
}

func (Offer) SignalType() Type        { return TypeOffer }
func (Answer) SignalType() Type       { return TypeAnswer }
func (ICE) SignalType() Type          { return TypeICE }
func (Hello) SignalType() Type        { return TypeHello }
func (Quality) SignalType() Type      { return TypeQuality }
func (ActiveSource) SignalType() Type { return TypeActiveSource }
func (DrawPacket) SignalType() Type   { return TypeDrawPacket }
func (CamPreview) SignalType() Type   { return TypeCamPreview }

// NewEnvelope wraps a message for the wire.
func NewEnvelope(from string, msg Message) (Envelope, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msg.SignalType(), err)
	}
	return Envelope{
		Type: msg.SignalType(),
		From: from,
		Data: data,
	}, nil
}

// ParseEnvelope decodes raw channel bytes into an envelope, validating the
// type tag.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if !validType(env.Type) {
		return Envelope{}, fmt.Errorf("unknown signal type: %q", env.Type)
	}
	return env, nil
}

// Decode returns the typed payload of the envelope. Unknown tags are an
// error, never a no-op.
func (e Envelope) Decode() (Message, error) {
	switch e.Type {
	case TypeOffer:
		return decodeAs[Offer](e)
	case TypeAnswer:
		return decodeAs[Answer](e)
	case TypeICE:
		return decodeAs[ICE](e)
	case TypeHello:
		return decodeAs[Hello](e)
	case TypeQuality:
		return decodeAs[Quality](e)
	case TypeActiveSource:
		return decodeAs[ActiveSource](e)
	case TypeDrawPacket:
		return decodeAs[DrawPacket](e)
	case TypeCamPreview:
		return decodeAs[CamPreview](e)
	default:
		return nil, fmt.Errorf("unknown signal type: %q", e.Type)
	}
}

func decodeAs[T Message](e Envelope) (Message, error) {
	var msg T
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &msg); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
		}
	}
	return msg, nil
}

func validType(t Type) bool {
	switch t {
	case TypeOffer, TypeAnswer, TypeICE, TypeHello,
		TypeQuality, TypeActiveSource, TypeDrawPacket, TypeCamPreview:
		return true
	default:
		return false
	}
}
