package model

import (
	"bytes"
	"encoding/json"
	"time"
)

//
// MessageType definition
//

type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeImage
	MessageTypeAudio
)

func (t MessageType) String() string {
	return messageTypeToString[t]
}

var messageTypeToString = map[MessageType]string{
	MessageTypeText:  "text",
	MessageTypeImage: "image",
	MessageTypeAudio: "audio",
}

var stringToMessageType = map[string]MessageType{
	"text":  MessageTypeText,
	"image": MessageTypeImage,
	"audio": MessageTypeAudio,
}

func (t MessageType) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(messageTypeToString[t])
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

func (t *MessageType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	// An unknown string falls back to the zero value, 'text' in this case.
	*t = stringToMessageType[s]
	return nil
}

//
// MessageStatus definition
//

type MessageStatus int

const (
	MessageStatusSent MessageStatus = iota
	MessageStatusDelivered
	MessageStatusRead
)

func (s MessageStatus) String() string {
	return messageStatusToString[s]
}

var messageStatusToString = map[MessageStatus]string{
	MessageStatusSent:      "sent",
	MessageStatusDelivered: "delivered",
	MessageStatusRead:      "read",
}

var stringToMessageStatus = map[string]MessageStatus{
	"sent":      MessageStatusSent,
	"delivered": MessageStatusDelivered,
	"read":      MessageStatusRead,
}

func (s MessageStatus) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(messageStatusToString[s])
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

func (s *MessageStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	*s = stringToMessageStatus[str]
	return nil
}

// MessagePayload carries exactly one of the three content variants. Image
// and audio hold a reference (URL) only, never the binary itself.
type MessagePayload struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// Empty reports whether the payload carries no content at all.
func (p MessagePayload) Empty() bool {
	return p.Text == "" && p.Image == "" && p.Audio == ""
}

// Message is a model of the persistency layer
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Payload    MessagePayload
	Type       MessageType
	Status     MessageStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}
