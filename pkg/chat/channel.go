package chat

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/akashbera009/kichu-kotha/pkg/auth"
	"github.com/akashbera009/kichu-kotha/pkg/chat/proto"
	"github.com/akashbera009/kichu-kotha/pkg/chat/websocket"
)

// ClientChannel dispatches one connection's inbound frames to the chat
// controller and implements Sender for the reverse direction. All
// per-connection protocol errors are reported back on this channel only;
// they never terminate the connection.
type ClientChannel struct {
	ctrl   *Controller
	driver *websocket.Driver
	sess   *Session

	closeOnce sync.Once
}

// NewClientChannel registers the authenticated connection with the
// controller and starts consuming its inbox.
func NewClientChannel(ctrl *Controller, driver *websocket.Driver, identity *auth.Identity) *ClientChannel {
	ch := &ClientChannel{
		ctrl:   ctrl,
		driver: driver,
	}
	ch.sess = ctrl.Connect(identity, ch)

	go ch.inboxWorker()

	return ch
}

// Send implements Sender. It encodes the event and pushes it to the
// driver's outbox without blocking.
func (ch *ClientChannel) Send(event string, data interface{}) bool {
	payload, err := proto.Encode(event, data)
	if err != nil {
		log.Errorf("failed to encode %s event: %v", event, err)
		return false
	}
	return ch.driver.Push(websocket.NewOutboxMessage(websocket.FlagContinue, payload))
}

// Shutdown implements Sender. It stops the driver without waiting, which
// closes the connection; the inbox worker then runs the disconnect cascade
// exactly once. Shutdown must not block, it is called from inside the
// supersede path of another connection.
func (ch *ClientChannel) Shutdown() {
	ch.driver.Stop()
}

// Close runs the disconnect cascade. Calling it more than once is safe.
func (ch *ClientChannel) Close() {
	ch.disconnect()
}

func (ch *ClientChannel) inboxWorker() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("chat channel for %s crashed: %v", ch.sess.UserID, r)
			ch.driver.Stop()
		}
		ch.disconnect()
	}()

	for m := range ch.driver.Inbox {
		ch.handleMessage(m.Data)
	}
}

func (ch *ClientChannel) disconnect() {
	ch.closeOnce.Do(func() {
		ch.ctrl.Disconnect(ch.sess)
	})
}

func (ch *ClientChannel) handleMessage(data []byte) {
	evt, payload, err := proto.Decode(data)
	if err != nil {
		log.WithField("user", ch.sess.UserID).Debugf("dropping frame: %v", err)
		ch.Send(proto.OutMessageError, proto.ErrorEvent{Error: "Invalid message"})
		return
	}

	switch req := payload.(type) {
	case *proto.RegisterForCalls:
		ch.ctrl.RegisterForCalls(ch.sess, req)
	case *proto.SendMessage:
		ch.reportError(proto.OutMessageError, ch.ctrl.Relay().Send(ch.sess, req))
	case *proto.MessageRead:
		ch.reportError(proto.OutMessageError, ch.ctrl.Relay().MarkRead(ch.sess, req))
	case *proto.Typing:
		ch.ctrl.Relay().Typing(ch.sess, req, evt == proto.EventTypingStart)
	case *proto.Offer:
		ch.reportError(proto.OutCallError, ch.ctrl.Calls().PlaceCall(ch.sess, req))
	case *proto.Answer:
		ch.reportError(proto.OutCallError, ch.ctrl.Calls().Answer(ch.sess, req))
	case *proto.ICECandidate:
		ch.ctrl.Calls().ForwardCandidate(ch.sess, req)
	case *proto.RejectCall:
		ch.reportError(proto.OutCallError, ch.ctrl.Calls().Reject(ch.sess, req))
	case *proto.EndCall:
		ch.reportError(proto.OutCallError, ch.ctrl.Calls().End(ch.sess, req))
	case *proto.CallTimeout:
		ch.reportError(proto.OutCallError, ch.ctrl.Calls().ClientTimeout(ch.sess, req))
	case *proto.ConnectionQuality:
		ch.ctrl.Calls().ForwardQuality(ch.sess, req)
	default:
		log.Warnf("no handler for event %s", evt.String())
	}
}

// reportError sends per-event failures back on the originating connection.
// Protocol violations are logged at debug only, they are expected during
// teardown races.
func (ch *ClientChannel) reportError(event string, err error) {
	if err == nil {
		return
	}

	if IsProtocolError(err) {
		log.WithField("user", ch.sess.UserID).Debugf("rejected event: %v", err)
	}

	ch.Send(event, proto.ErrorEvent{Error: err.Error()})
}
