// Package remote implements the shared remote state channel of the robot.
//
// The robot node is a small record with the fields Movements (F, B, L, R,
// S), duration, timestamp and picking (P0, P1, 0). The engine writes
// partial updates to it and reads the detection value from it. Two
// backends are provided:
//
//   - MQTTChannel publishes each update as a JSON object on
//     {prefix}/{node}/update and subscribes to {prefix}/{node}/detection.
//   - RedisChannel keeps the node as a hash (HSET), announces every update
//     on the "{node}:updates" pub/sub channel and listens for detection
//     changes on "{node}:detection".
//
// Neither backend retries; delivery guarantees are out of scope and
// failures are reported to the caller for logging.
package remote
