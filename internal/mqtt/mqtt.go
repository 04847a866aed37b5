package mqtt

import (
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// NewClient connects to broker with automatic reconnects. Connection changes
// are reported to conn, which may be nil.
func NewClient(broker, clientID string, conn *Connectivity) (MQTT.Client, error) {
	opts := MQTT.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(time.Minute).
		SetCleanSession(false)

	if conn != nil {
		opts.SetOnConnectHandler(func(MQTT.Client) { conn.Post(true) })
		opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
			conn.log.Warn().Err(err).Msg("mqtt connection lost")
			conn.Post(false)
		})
	}

	c := MQTT.NewClient(opts)
	token := c.Connect()
	// With ConnectRetry the token only completes once connected, so a slow
	// broker is not fatal here.
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return c, nil
}
