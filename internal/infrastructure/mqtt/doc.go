// Package mqtt provides the MQTT connection to the appliance bus.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and a payload size limit
//   - Subscriptions, restored automatically after a reconnect
//   - A retained bridge status topic backed by Last Will and Testament
//
// The appliance adapter publishes element values on
// <prefix>/<device>/erd/<erd>/value and accepts writes on
// <prefix>/<device>/erd/<erd>/write. Topics builds both.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{Prefix: "geappliances"}
//	err = client.Subscribe(topics.All(), 1, func(topic string, payload []byte) error {
//	    return router.HandleMessage(ctx, topic, payload)
//	})
//
// Tests that need a broker at 127.0.0.1:1883 are behind the integration
// build tag:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...
package mqtt
