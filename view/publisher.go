package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ViewSummary is published after every rendered snapshot.
type ViewSummary struct {
	Viewport  Viewport     `json:"viewport"`
	Zoom      bool         `json:"zoom"`
	Agents    int          `json:"agents"`
	Positions [][2]float64 `json:"positions"`
	Angles    []float64    `json:"angles"`
	Texels    int          `json:"texels"`
	AgentTex  int          `json:"agentTexels"`
	Timestamp int64        `json:"timestamp"`
}

// Publisher pushes rendered views of each snapshot to MQTT.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	render        RenderConfig
	log           *zap.SugaredLogger

	mu   sync.RWMutex
	last *ViewSummary
}

// NewPublisher creates a publisher. A nil client disables publishing.
func NewPublisher(client mqtt.Client, prefix string, render RenderConfig, log *zap.SugaredLogger) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "stepview"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true,
		render:        render,
		log:           log,
	}
}

// Summarize computes the published summary of a state.
func Summarize(state *State, rc RenderConfig) (*ViewSummary, error) {
	opts := rc.Options()
	v, err := Extent(state, opts.Zoom, opts.ViewRadius)
	if err != nil {
		return nil, err
	}
	positions := make([][2]float64, len(state.Agents.Positions))
	for i, p := range state.Agents.Positions {
		positions[i] = [2]float64{p[0], p[1]}
	}
	return &ViewSummary{
		Viewport:  v,
		Zoom:      opts.Zoom,
		Agents:    state.Agents.Len(),
		Positions: positions,
		Angles:    state.Agents.Angles,
		Texels:    state.Scene.TotalTexels(),
		AgentTex:  NAgentTexels(state),
		Timestamp: time.Now().Unix(),
	}, nil
}

// PublishSnapshot publishes the view summary to {prefix}/view and the
// rendered diagram to {prefix}/diagram.png.
func (p *Publisher) PublishSnapshot(snap *Snapshot) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	summary, err := Summarize(&snap.State, p.render)
	if err != nil {
		return fmt.Errorf("summarizing snapshot: %w", err)
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling view summary: %w", err)
	}
	if err := p.publish(p.publishPrefix+"/view", payload); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := RenderDiagram(&buf, &snap.State, p.render, FormatPNG); err != nil {
		return fmt.Errorf("rendering diagram: %w", err)
	}
	if err := p.publish(p.publishPrefix+"/diagram.png", buf.Bytes()); err != nil {
		return err
	}

	p.mu.Lock()
	p.last = summary
	p.mu.Unlock()

	p.log.Debugf("Published view: %d agents, viewport [%.2f,%.2f]x[%.2f,%.2f]",
		summary.Agents, summary.Viewport.Left, summary.Viewport.Right,
		summary.Viewport.Bottom, summary.Viewport.Top)
	return nil
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// LastSummary returns the most recently published summary.
func (p *Publisher) LastSummary() (*ViewSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil, false
	}
	s := *p.last
	return &s, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2).
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker.
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
