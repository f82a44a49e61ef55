package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds for paho Disconnect

	defaultKeepAlive         = 30 * time.Second
	defaultPingTimeout       = 10 * time.Second
	defaultMaxReconnectDelay = 2 * time.Minute
)

// buildClientOptions translates our config into paho client options.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker, cfg.Port))

	opts.SetClientID(instanceClientID(cfg.ClientID))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	keepalive := defaultKeepAlive
	if cfg.Keepalive > 0 {
		keepalive = time.Duration(cfg.Keepalive) * time.Second
	}
	opts.SetKeepAlive(keepalive)
	opts.SetPingTimeout(defaultPingTimeout)
	opts.SetConnectTimeout(defaultConnectTimeout)

	// Reconnect automatically with backoff; the poller keeps running and
	// publishes resume once the broker comes back.
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(defaultMaxReconnectDelay)
	opts.SetConnectRetry(false)

	// A clean session is fine for a publish-only client.
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)

	return opts
}

// statusPayload is the retained message published to {base}/bridge/status.
type statusPayload struct {
	State    string `json:"state"`
	ClientID string `json:"client_id"`
	Time     string `json:"time,omitempty"`
}

// configureLWT registers the Last Will and Testament so the broker marks
// the bridge offline if the connection drops without a clean disconnect.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics, clientID string) {
	payload, _ := json.Marshal(statusPayload{State: "offline", ClientID: clientID})
	opts.SetWill(topics.BridgeStatus(), string(payload), 1, true)
}

func buildOnlinePayload(clientID string) []byte {
	payload, _ := json.Marshal(statusPayload{
		State:    "online",
		ClientID: clientID,
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}

func buildOfflinePayload(clientID string) []byte {
	payload, _ := json.Marshal(statusPayload{
		State:    "offline",
		ClientID: clientID,
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}
