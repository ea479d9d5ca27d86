// Package publish mirrors acquisition results to an MQTT broker.
package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/itohio/colorgrid/pkg/acquire"
	"github.com/itohio/colorgrid/pkg/chart"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/grid"
)

// Client is the subset of mqtt.Client used for publishing.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// FrameMessage is published for every applied frame.
type FrameMessage struct {
	Time   time.Time `json:"time"`
	Values []float64 `json:"values"`
	Colors [][3]int  `json:"colors"`
}

// ErrorMessage is published when a session ends with an error.
type ErrorMessage struct {
	Time  time.Time `json:"time"`
	Op    string    `json:"op"`
	Error string    `json:"error"`
}

// MQTT is an acquire.Display that publishes frames to <topic>, lifecycle
// states to <topic>/state and errors to <topic>/error.
type MQTT struct {
	client Client
	topic  string
	qos    byte

	mu    sync.Mutex
	state acquire.State
	sent  bool
}

var _ acquire.Display = (*MQTT)(nil)

// Connect dials the broker configured in cfg.
func Connect(cfg config.MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("Connected to MQTT broker %s", cfg.Broker)

	return New(c, cfg.Topic, cfg.QoS), nil
}

// New wraps an already connected client.
func New(client Client, topic string, qos byte) *MQTT {
	return &MQTT{
		client: client,
		topic:  topic,
		qos:    qos,
	}
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

func (m *MQTT) FrameApplied(ts time.Time, f frame.Frame, cells []grid.Cell) {
	msg := FrameMessage{
		Time:   ts,
		Values: f,
		Colors: make([][3]int, len(cells)),
	}
	for i, c := range cells {
		msg.Colors[i] = c.Color.Ints()
	}
	m.publishJSON(m.topic, false, msg)
}

func (m *MQTT) ChartPoint(int, chart.View) {}

func (m *MQTT) ChartReset(int) {}

// StateChanged publishes a retained state. ReadInFlight is reported as
// Running and repeated states are not republished.
func (m *MQTT) StateChanged(s acquire.State) {
	if s == acquire.ReadInFlight {
		s = acquire.Running
	}

	m.mu.Lock()
	if m.sent && m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.sent = true
	m.mu.Unlock()

	m.publish(m.topic+"/state", true, []byte(s.String()))
}

func (m *MQTT) Error(ev acquire.ErrorEvent) {
	m.publishJSON(m.topic+"/error", false, ErrorMessage{
		Time:  time.Now(),
		Op:    ev.Op,
		Error: ev.Err.Error(),
	})
}

func (m *MQTT) publishJSON(topic string, retained bool, obj any) {
	payload, err := json.Marshal(obj)
	if err != nil {
		log.Printf("Failed to encode MQTT message for %s: %v", topic, err)
		return
	}
	m.publish(topic, retained, payload)
}

// publish does not wait for delivery; the control goroutine must not block
// on the broker.
func (m *MQTT) publish(topic string, retained bool, payload []byte) {
	if !m.client.IsConnected() {
		return
	}
	m.client.Publish(topic, m.qos, retained, payload)
}
