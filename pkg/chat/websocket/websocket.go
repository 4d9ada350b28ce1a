package websocket

import (
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	log "github.com/sirupsen/logrus"
)

type Flag int

const (
	FlagContinue Flag = iota
	FlagCloseGracefully
	FlagTerminate
)

type OutboxMessage struct {
	Flag Flag
	Data []byte
}

type InboxMessage struct {
	Data []byte
}

// Driver owns the raw websocket connection. It pumps inbound text frames
// into Inbox and writes messages pushed to Outbox back to the client. When
// either pump exits the terminate channel is closed, which tells the HTTP
// handler to release the connection.
type Driver struct {
	conn   net.Conn
	Inbox  chan *InboxMessage
	Outbox chan *OutboxMessage

	terminateCh    chan<- struct{}
	terminatedOnce sync.Once

	stopCh   chan struct{}
	stopOnce sync.Once

	wg sync.WaitGroup
}

func NewDriver(conn net.Conn, terminateCh chan<- struct{}) *Driver {
	return &Driver{
		conn:        conn,
		Inbox:       make(chan *InboxMessage, 100),
		Outbox:      make(chan *OutboxMessage, 100),
		terminateCh: terminateCh,
		stopCh:      make(chan struct{}),
	}
}

func (driver *Driver) Start() {
	driver.wg.Add(1)
	go driver.inboxHandler()
	driver.wg.Add(1)
	go driver.outboxHandler()
}

// Close waits until both pumps have exited.
func (driver *Driver) Close() {
	driver.wg.Wait()
	log.Debug("websocket driver closed")
}

// Stop shuts the driver down from the application side. The connection is
// closed to unblock the inbox reader; without that a stopped driver would
// keep pumping until the peer goes away on its own.
func (driver *Driver) Stop() {
	log.Debug("websocket driver stop called")
	driver.safeCloseTerminateChannel()
	driver.safeCloseStopChannel()
	driver.conn.Close()
}

// Push queues an outbound message without blocking. It reports false when
// the outbox buffer is full and the message was dropped.
func (driver *Driver) Push(m *OutboxMessage) bool {
	select {
	case driver.Outbox <- m:
		return true
	default:
		return false
	}
}

func (driver *Driver) closeHandler() {
	defer driver.wg.Done()
	driver.safeCloseTerminateChannel()
	driver.safeCloseStopChannel()
}

func (driver *Driver) safeCloseTerminateChannel() {
	driver.terminatedOnce.Do(func() {
		close(driver.terminateCh)
	})
}

func (driver *Driver) safeCloseStopChannel() {
	driver.stopOnce.Do(func() {
		close(driver.stopCh)
	})
}

func (driver *Driver) inboxHandler() {
	defer driver.closeHandler()
	defer close(driver.Inbox)

	state := ws.StateServerSide
	ch := wsutil.ControlFrameHandler(driver.conn, state)

	r := &wsutil.Reader{
		Source:         driver.conn,
		State:          state,
		CheckUTF8:      true,
		OnIntermediate: ch,
	}

	for {
		h, err := r.NextFrame()
		if err != nil {
			// Expected when the peer vanishes without a close frame. The
			// echo framework doesn't want an error on a hijacked
			// connection, so we just stop pumping.
			log.Debugf("websocket read frame error: %v", err)
			return
		}

		// Control frames are handled before continuation.
		if h.OpCode.IsControl() {
			// On OpClose the socket was closed by the client, the handler
			// can exit now.
			if h.OpCode == ws.OpClose {
				log.Debug("websocket connection closed gracefully")
				return
			}

			if err = ch(h, r); err != nil {
				log.Errorf("websocket handles control frame error: %v", err)
				return
			}
			continue
		}

		req, err := io.ReadAll(r)
		if err != nil {
			log.Errorf("websocket read error: %v", err)
			return
		}

		select {
		case driver.Inbox <- NewInboxMessage(req):
		case <-driver.stopCh:
			return
		}
	}
}

func (driver *Driver) outboxHandler() {
	defer driver.closeHandler()

	state := ws.StateServerSide
	w := wsutil.NewWriter(driver.conn, state, 0)

	for {
		select {
		case res := <-driver.Outbox:
			if err := writeText(driver.conn, w, state, res.Data); err != nil {
				log.Debugf("websocket terminates because of write error: %v", err)
				return
			}

			switch res.Flag {
			case FlagCloseGracefully:
				closeGraceful(driver.conn, w, state)
				return
			case FlagTerminate:
				return
			}
		case <-driver.stopCh:
			closeGraceful(driver.conn, w, state)
			return
		}
	}
}

func writeText(conn net.Conn, w *wsutil.Writer, state ws.State, data []byte) error {
	w.Reset(conn, state, ws.OpText)
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Flush()
}

func closeGraceful(conn net.Conn, w *wsutil.Writer, state ws.State) {
	w.Reset(conn, state, ws.OpClose)
	if _, err := w.Write([]byte("")); err == nil {
		if err := w.Flush(); err != nil {
			log.Debugf("websocket close write error: %v", err)
		}
	}
}

func NewOutboxMessage(flag Flag, data []byte) *OutboxMessage {
	m := &OutboxMessage{
		Flag: flag,
	}
	if data != nil {
		m.Data = make([]byte, len(data))
		copy(m.Data, data)
	}
	return m
}

func NewInboxMessage(data []byte) *InboxMessage {
	m := &InboxMessage{}
	if data != nil {
		m.Data = make([]byte, len(data))
		copy(m.Data, data)
	}
	return m
}
