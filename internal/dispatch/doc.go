// Package dispatch translates engine decisions into robot commands on the
// remote channel and the serial link.
//
// Every command is queued and delivered by one worker goroutine per
// channel, so the engine never waits on I/O and each channel sees its own
// commands in order. The two channels are not synchronised with each
// other. A failed write is logged and counted; nothing is retried.
//
// Command vocabulary:
//
//	movement  remote {Movements: F|B|L|R, duration, timestamp}  serial F|B|L|R
//	action    remote {Movements: S, picking: P1|P0, timestamp}   serial S then P1|P0
//	done      remote {picking: "0", timestamp}                    (action completed)
//	halt      remote {Movements: S}                               serial S
//	stop      remote {Movements: S, duration: 0, timestamp}       serial S
package dispatch
