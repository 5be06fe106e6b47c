package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "pickroute"

// Topics builds the topic names for one robot node.
//
//	t := mqtt.Topics{Prefix: "pickroute", Node: "Picking_Robot"}
//	t.Update()    // pickroute/Picking_Robot/update
//	t.Detection() // pickroute/Picking_Robot/detection
type Topics struct {
	Prefix string
	Node   string
}

func (t Topics) base() string {
	prefix := strings.Trim(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + t.Node
}

// Update is where partial robot state updates (Movements, duration,
// picking, timestamp) are published.
func (t Topics) Update() string {
	return t.base() + "/update"
}

// Detection carries the dust/obstacle detection value for the node.
func (t Topics) Detection() string {
	return t.base() + "/detection"
}

// EngineStatus carries the retained engine presence message and LWT.
func (t Topics) EngineStatus() string {
	return t.base() + "/engine/status"
}

// All matches every topic of the node.
func (t Topics) All() string {
	return t.base() + "/#"
}
