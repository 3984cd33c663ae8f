// Package telemetry speaks the simulator's socket.io text protocol over a
// websocket.
//
// Every frame starts with the event prefix "42" followed by a JSON array of
// [event, payload]. The server answers each telemetry frame with a steer
// frame, or with a manual frame when the payload is empty.
package telemetry
