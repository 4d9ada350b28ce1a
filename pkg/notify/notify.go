package notify

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Summary is the push-notification payload for a message that could not be
// delivered live. It carries a short body, never the raw media.
type Summary struct {
	MessageID  string `json:"messageId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Body       string `json:"body"`
	Type       string `json:"type"`
}

// Dispatcher hands a notification to the external push gateway. Calls are
// fire-and-forget: failures are logged and never block the caller.
type Dispatcher interface {
	Notify(targets []string, summary Summary)
}

const pushSubject = "kichukotha.notify.v1.push"

type pushRequest struct {
	Targets []string `json:"targets"`
	Summary Summary  `json:"summary"`
}

// NATSDispatcher publishes push requests to the notification subject. The
// gateway that talks to the device push services subscribes there.
type NATSDispatcher struct {
	nc *nats.Conn
}

func NewNATSDispatcher(nc *nats.Conn) *NATSDispatcher {
	return &NATSDispatcher{nc: nc}
}

func (d *NATSDispatcher) Notify(targets []string, summary Summary) {
	if len(targets) == 0 {
		return
	}
	if d.nc == nil {
		log.Debug("notify dispatcher has no nats connection, dropping notification")
		return
	}

	data, err := json.Marshal(pushRequest{Targets: targets, Summary: summary})
	if err != nil {
		log.Errorf("notify failed to marshal push request: %v", err)
		return
	}

	if err := d.nc.Publish(pushSubject, data); err != nil {
		log.Errorf("notify failed to publish push request: %v", err)
	}
}
