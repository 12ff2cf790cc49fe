// Package mqtt is the broker transport. The hub listens on PREFIX and
// PREFIX/ID/# and answers on PREFIX/hub/CLIENT/ID.
package mqtt

import (
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/hub"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"

	connectTimeout = 10 * time.Second
	quiesce        = 250 // ms
)

// Dispatcher routes one command path
type Dispatcher interface {
	Dispatch(from protocol.Conn, url, value string, reply hub.Reply)
}

// publisher is the subset of paho.Client the transport publishes through
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Transport is a hub's connection to a broker
type Transport struct {
	d      Dispatcher
	prefix string
	id     string
	qos    byte
	retain bool
	log    logrus.FieldLogger

	pub    publisher
	client paho.Client
}

// Options selects the topics of one device
type Options struct {
	Prefix string
	ID     string
	Config config.MQTTConfig
}

func newTransport(d Dispatcher, opts Options, pub publisher) *Transport {
	return &Transport{
		d:      d,
		prefix: opts.Prefix,
		id:     opts.ID,
		qos:    opts.Config.QoS,
		retain: opts.Config.Retain,
		log:    config.Log.WithField("conn", protocol.ConnMQTT.String()),
		pub:    pub,
	}
}

// Connect dials the broker. The client reconnects on its own; every
// (re)connect subscribes again and publishes the online status.
func Connect(d Dispatcher, opts Options) (*Transport, error) {
	cfg := opts.Config
	t := newTransport(d, opts, nil)

	co := paho.NewClientOptions()
	co.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	co.SetClientID(ClientID())
	if cfg.Login != "" {
		co.SetUsername(cfg.Login)
		co.SetPassword(cfg.Password)
	}
	co.SetWill(t.statusTopic(), statusOffline, cfg.QoS, true)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	if cfg.Reconnect > 0 {
		co.SetConnectRetryInterval(cfg.Reconnect)
		co.SetMaxReconnectInterval(cfg.Reconnect)
	}
	co.SetOnConnectHandler(t.onConnect)
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		t.log.WithError(err).Warn("Broker connection lost")
	})

	t.client = paho.NewClient(co)
	t.pub = t.client
	tok := t.client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		// ConnectRetry keeps trying in the background
		t.log.WithField("broker", cfg.Host).Warn("Broker not reachable yet, retrying")
		return t, nil
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return t, nil
}

// ClientID is a random broker client id short enough for MQTT 3.1
func ClientID() string {
	return "hub-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (t *Transport) onConnect(c paho.Client) {
	t.log.Info("Connected to broker")
	for _, topic := range t.Subscriptions() {
		tok := c.Subscribe(topic, t.qos, func(_ paho.Client, m paho.Message) {
			t.Handle(m.Topic(), m.Payload())
		})
		go t.watch(tok, "subscribe "+topic)
	}
	if err := t.PublishStatus(true); err != nil {
		t.log.WithError(err).Warn("failed to publish status")
	}
}

// Close publishes the offline status and disconnects
func (t *Transport) Close() {
	if t.client == nil {
		return
	}
	if t.client.IsConnected() {
		tok := t.pub.Publish(t.statusTopic(), t.qos, true, statusOffline)
		tok.WaitTimeout(time.Second)
	}
	t.client.Disconnect(quiesce)
}

// Subscriptions are the topics the hub listens on
func (t *Transport) Subscriptions() []string {
	return []string{t.prefix, t.prefix + "/" + t.id + "/#"}
}

// Handle dispatches one received message. The payload is the command value;
// for the discover topics it is the client id.
func (t *Transport) Handle(topic string, payload []byte) {
	value := string(payload)
	client := value
	if topic != t.prefix {
		if p := protocol.SplitPath(topic); p.Len > 2 {
			client = p.Client
		}
	}
	client = protocol.NewClient(protocol.ConnMQTT, client).ID

	answer := t.answerTopic(client)
	t.d.Dispatch(protocol.ConnMQTT, topic, value, func(data []byte) {
		if err := t.publish(answer, false, data); err != nil {
			t.log.WithError(err).WithField("topic", answer).Warn("failed to publish answer")
		}
	})
}

// Conn implements hub.Transport
func (t *Transport) Conn() protocol.Conn {
	return protocol.ConnMQTT
}

// Broadcast implements hub.Transport
func (t *Transport) Broadcast(data []byte) error {
	return t.publish(t.prefix+"/hub/"+t.id, t.retain, data)
}

// PublishGet implements hub.Publisher
func (t *Transport) PublishGet(name, value string) error {
	return t.publish(t.prefix+"/hub/"+t.id+"/get/"+name, t.retain, []byte(value))
}

// PublishStatus implements hub.Publisher
func (t *Transport) PublishStatus(online bool) error {
	status := statusOffline
	if online {
		status = statusOnline
	}
	return t.publish(t.statusTopic(), true, []byte(status))
}

func (t *Transport) answerTopic(client string) string {
	return t.prefix + "/hub/" + client + "/" + t.id
}

func (t *Transport) statusTopic() string {
	return t.prefix + "/hub/" + t.id + "/status"
}

// publish does not wait for the broker: it may run inside a message handler
// and paho delivers acks on the same goroutine.
func (t *Transport) publish(topic string, retained bool, payload []byte) error {
	if t.pub == nil {
		return nil
	}
	tok := t.pub.Publish(topic, t.qos, retained, payload)
	select {
	case <-tok.Done():
		return tok.Error()
	default:
	}
	go t.watch(tok, topic)
	return nil
}

func (t *Transport) watch(tok paho.Token, what string) {
	<-tok.Done()
	if err := tok.Error(); err != nil {
		t.log.WithError(err).WithField("topic", what).Warn("broker request failed")
	}
}
