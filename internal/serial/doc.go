// Package serial is the direct link to the robot's microcontroller.
//
// Commands are single-line ASCII (F, B, L, R, S, P0, P1) terminated by a
// newline, written at 9600 baud 8N1. The link is send-only: the firmware
// never acknowledges, so a successful Send only means the bytes reached
// the OS driver.
//
// A write failure closes the port and the link reports ErrNotConnected
// until Open succeeds again. Callers treat every error as non-fatal.
package serial
