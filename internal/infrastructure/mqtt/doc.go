// Package mqtt provides the MQTT transport for the remote robot channel.
//
// The engine publishes partial state updates for the robot node and
// subscribes to the node's detection topic. This package owns the broker
// connection:
//   - auto-reconnect with subscription restore
//   - retained engine presence with a Last Will
//   - bounded publish/subscribe with QoS validation
//
// # Topics
//
//	{prefix}/{node}/update         partial JSON updates from the engine
//	{prefix}/{node}/detection      detection value written by the sensor side
//	{prefix}/{node}/engine/status  retained online/offline presence
//
// # Usage
//
//	topics := mqtt.Topics{Prefix: cfg.Remote.TopicPrefix, Node: cfg.Robot.Node}
//	client, err := mqtt.Connect(cfg.MQTT, topics.EngineStatus())
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishUpdate(topics.Update(), []byte(`{"Movements":"S"}`))
package mqtt
