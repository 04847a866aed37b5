package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecore/internal/device"
	"homecore/internal/models"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu     sync.Mutex
	open   bool
	token  func() MQTT.Token
	output []published
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	c.mu.Lock()
	c.output = append(c.output, published{topic: topic, qos: qos, payload: payload.([]byte)})
	c.mu.Unlock()
	if c.token != nil {
		return c.token()
	}
	return doneToken(nil)
}

func TestWriter_PublishesCommand(t *testing.T) {
	c := &fakeClient{open: true}
	w := NewWriter(c, time.Second)

	require.NoError(t, w.Write(context.Background(), "lamp", "brightness", models.Int(40)))

	require.Len(t, c.output, 1)
	assert.Equal(t, "devices/lamp/commands", c.output[0].topic)
	assert.Equal(t, byte(1), c.output[0].qos)

	var got map[string]any
	require.NoError(t, json.Unmarshal(c.output[0].payload, &got))
	assert.Equal(t, "brightness", got["characteristic"])
	assert.EqualValues(t, 40, got["value"])
}

func TestWriter_PublishesScene(t *testing.T) {
	c := &fakeClient{open: true}
	w := NewWriter(c, time.Second)

	require.NoError(t, w.WriteScene(context.Background(), "evening"))
	require.Len(t, c.output, 1)
	assert.Equal(t, "scenes/evening/execute", c.output[0].topic)
	assert.Contains(t, string(c.output[0].payload), `"scene_id":"evening"`)
}

func TestWriter_OfflineIsConnectivityError(t *testing.T) {
	c := &fakeClient{open: false}
	w := NewWriter(c, time.Second)

	err := w.Write(context.Background(), "lamp", "power", models.Bool(true))
	require.Error(t, err)
	assert.True(t, device.IsConnectivity(err))
	assert.Equal(t, device.ReasonOffline, device.ReasonOf(err))
	assert.Empty(t, c.output)
}

func TestWriter_UnacknowledgedPublishTimesOut(t *testing.T) {
	c := &fakeClient{open: true, token: func() MQTT.Token { return &fakeToken{done: make(chan struct{})} }}
	w := NewWriter(c, 10*time.Millisecond)

	err := w.Write(context.Background(), "lamp", "power", models.Bool(true))
	assert.Equal(t, device.ReasonTimeout, device.ReasonOf(err))

	var derr *device.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "power", derr.Characteristic)
}

func TestWriter_TokenErrorIsTransport(t *testing.T) {
	c := &fakeClient{open: true, token: func() MQTT.Token { return doneToken(errors.New("broken pipe")) }}
	w := NewWriter(c, time.Second)

	err := w.WriteScene(context.Background(), "evening")
	assert.Equal(t, device.ReasonTransport, device.ReasonOf(err))
	assert.False(t, device.IsPermanent(err))
}

func TestWriter_EmptyCharacteristicIsPermanent(t *testing.T) {
	w := NewWriter(&fakeClient{open: true}, time.Second)
	assert.True(t, device.IsPermanent(w.Write(context.Background(), "lamp", "", models.Bool(true))))
}

func TestNotificationPublisher(t *testing.T) {
	c := &fakeClient{open: true}
	p := NewNotificationPublisher(c, time.Second)

	n := models.HomeNotification{ID: "n1", Kind: models.NotifyLeakDetected, Title: "Leak"}
	require.NoError(t, p.Deliver(context.Background(), n))
	require.Len(t, c.output, 1)
	assert.Equal(t, "notifications/leak_detected", c.output[0].topic)

	c.open = false
	assert.Error(t, p.Deliver(context.Background(), n))
}

func TestConnectivity_PostKeepsLatestState(t *testing.T) {
	conn := NewConnectivity(1)
	conn.Post(false)
	conn.Post(true) // replaces the buffered offline event

	ev := <-conn.Events()
	assert.True(t, ev.Online)
	select {
	case <-conn.Events():
		t.Fatal("only the latest event should remain")
	default:
	}
}

func TestConnectivity_FlappingEndsOnLastPosted(t *testing.T) {
	conn := NewConnectivity(2)
	for i := 0; i < 7; i++ {
		conn.Post(i%2 == 0)
	}

	var last bool
	n := 0
	for len(conn.Events()) > 0 {
		last = (<-conn.Events()).Online
		n++
	}
	assert.Equal(t, 2, n)
	assert.True(t, last, "the seventh post was online")
}
