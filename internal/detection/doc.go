// Package detection turns the robot's obstacle/dust sensor feed into
// detected / clear signals for the engine.
//
// Payloads arrive in several shapes: a bare number, an object with a
// "status" field, or the whole robot node carrying the detection field.
// Parse reduces all of them to Detected, Clear or Malformed. Malformed
// payloads count as clear and are reported as data-quality warnings; they
// never pause the robot.
//
// The Monitor only holds a subscription while the engine asks for one
// (running, or paused because of a detection). SetActive never blocks:
// a background worker reconciles the wanted and actual subscription.
package detection
