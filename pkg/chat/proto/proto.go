// Package proto defines the JSON wire protocol spoken on the chat channel.
// Every frame is an envelope {"event": <name>, "data": {...}}. Inbound
// events decode into the typed structs below; WebRTC payloads (offers,
// answers, ICE candidates) stay opaque raw JSON, the coordinator only
// relays them.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/akashbera009/kichu-kotha/pkg/model"
)

type EventType int

const (
	EventInvalid EventType = iota
	EventRegisterForCalls
	EventSendMessage
	EventMessageRead
	EventTypingStart
	EventTypingStop
	EventOffer
	EventAnswer
	EventICECandidate
	EventRejectCall
	EventEndCall
	EventCallTimeout
	EventConnectionQuality
)

func (t EventType) String() string {
	name, ok := eventTypeToString[t]
	if !ok {
		return ""
	}
	return name
}

var eventTypeToString = map[EventType]string{
	EventRegisterForCalls:  "register-for-calls",
	EventSendMessage:       "sendMessage",
	EventMessageRead:       "messageRead",
	EventTypingStart:       "typingStart",
	EventTypingStop:        "typingStop",
	EventOffer:             "webrtc-offer",
	EventAnswer:            "webrtc-answer",
	EventICECandidate:      "webrtc-ice-candidate",
	EventRejectCall:        "reject-call",
	EventEndCall:           "end-call",
	EventCallTimeout:       "call-timeout",
	EventConnectionQuality: "connection-quality",
}

var stringToEventType = map[string]EventType{}

func init() {
	for t, s := range eventTypeToString {
		stringToEventType[s] = t
	}
}

// Outbound event names.
const (
	OutReceiveMessage = "receiveMessage"
	OutMessageSent    = "messageSent"
	OutMessageError   = "messageError"
	OutMessageRead    = "messageRead"
	OutTypingStart    = "typingStart"
	OutTypingStop     = "typingStop"
	OutUsersList      = "users-list"
	OutOffer          = "webrtc-offer"
	OutAnswer         = "webrtc-answer"
	OutICECandidate   = "webrtc-ice-candidate"
	OutCallError      = "call-error"
	OutCallRejected   = "call-rejected"
	OutCallEnded      = "call-ended"
	OutCallTimeout    = "call-timeout"
	OutPeerQuality    = "peer-connection-quality"
)

//
// Inbound payloads
//

type RegisterForCalls struct {
	DisplayName string `json:"displayName"`
}

type SendMessage struct {
	ReceiverID  string               `json:"receiverId"`
	Payload     model.MessagePayload `json:"payload"`
	MessageType model.MessageType    `json:"messageType"`
}

type MessageRead struct {
	MessageID string `json:"messageId"`
}

type Typing struct {
	ReceiverID string `json:"receiverId"`
}

type Offer struct {
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
	From  string          `json:"from,omitempty"`
}

type Answer struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
	CallID string          `json:"callId"`
}

type ICECandidate struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type RejectCall struct {
	To     string `json:"to"`
	CallID string `json:"callId"`
}

type EndCall struct {
	To     string `json:"to"`
	CallID string `json:"callId"`
}

type CallTimeout struct {
	To     string `json:"to"`
	CallID string `json:"callId"`
}

type ConnectionQuality struct {
	To      string          `json:"to"`
	Quality string          `json:"quality"`
	Stats   json.RawMessage `json:"stats,omitempty"`
}

//
// Outbound payloads
//

// UserEntry is one element of the users-list snapshot.
type UserEntry struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	IsInCall bool   `json:"isInCall"`
}

// MessageData is the wire form of a persisted message, sent with both
// receiveMessage and messageSent.
type MessageData struct {
	ID          string               `json:"id"`
	SenderID    string               `json:"senderId"`
	ReceiverID  string               `json:"receiverId"`
	Payload     model.MessagePayload `json:"payload"`
	MessageType model.MessageType    `json:"messageType"`
	Status      model.MessageStatus  `json:"status"`
	CreatedAt   string               `json:"createdAt"`
}

func NewMessageData(m *model.Message) MessageData {
	return MessageData{
		ID:          m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Payload:     m.Payload,
		MessageType: m.Type,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

type ErrorEvent struct {
	Error string `json:"error"`
}

type OfferEvent struct {
	Offer  json.RawMessage `json:"offer"`
	From   string          `json:"from"`
	Name   string          `json:"name"`
	CallID string          `json:"callId"`
}

type AnswerEvent struct {
	Answer json.RawMessage `json:"answer"`
	From   string          `json:"from"`
	CallID string          `json:"callId"`
}

type CandidateEvent struct {
	Candidate json.RawMessage `json:"candidate"`
	From      string          `json:"from"`
}

type CallRejectedEvent struct {
	From   string `json:"from"`
	CallID string `json:"callId"`
}

type CallEndedEvent struct {
	From   string `json:"from"`
	CallID string `json:"callId"`
	Reason string `json:"reason,omitempty"`
}

type CallTimeoutEvent struct{}

type QualityEvent struct {
	From    string          `json:"from"`
	Quality string          `json:"quality"`
	Stats   json.RawMessage `json:"stats,omitempty"`
}

type MessageReadEvent struct {
	MessageID string `json:"messageId"`
}

type TypingEvent struct {
	UserID string `json:"userId"`
}

//
// Codec
//

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals one inbound frame into its typed payload.
func Decode(data []byte) (EventType, interface{}, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return EventInvalid, nil, fmt.Errorf("chat: invalid frame: %s", err.Error())
	}

	evt, ok := stringToEventType[env.Event]
	if !ok {
		return EventInvalid, nil, fmt.Errorf("chat: unknown event %q", env.Event)
	}

	payload := newPayload(evt)
	if payload == nil {
		// This return should never be reached
		return EventInvalid, nil, fmt.Errorf("chat: no payload type for event %q", env.Event)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return EventInvalid, nil, fmt.Errorf("chat: invalid %s payload: %s", env.Event, err.Error())
		}
	}

	return evt, payload, nil
}

func newPayload(evt EventType) interface{} {
	switch evt {
	case EventRegisterForCalls:
		return &RegisterForCalls{}
	case EventSendMessage:
		return &SendMessage{}
	case EventMessageRead:
		return &MessageRead{}
	case EventTypingStart, EventTypingStop:
		return &Typing{}
	case EventOffer:
		return &Offer{}
	case EventAnswer:
		return &Answer{}
	case EventICECandidate:
		return &ICECandidate{}
	case EventRejectCall:
		return &RejectCall{}
	case EventEndCall:
		return &EndCall{}
	case EventCallTimeout:
		return &CallTimeout{}
	case EventConnectionQuality:
		return &ConnectionQuality{}
	}
	return nil
}

// Encode marshals one outbound frame.
func Encode(event string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("chat: cannot marshal %s payload: %s", event, err.Error())
		}
	}

	return json.Marshal(envelope{Event: event, Data: raw})
}
