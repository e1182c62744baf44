// Package connection implements the Connection Session component.
//
// The Connection Session:
//   - Owns the single WebSocket to the Voyager application server
//   - Runs the bootstrap sequence every time the connection becomes ready
//   - Sends the Polling keep-alive while the connection is ready
//   - Reconnects with exponential backoff (1s doubling to 512s)
//   - Hands every inbound frame, in order, to one FrameHandler
//
// Run is the only goroutine that mutates the command dispatcher. Other
// goroutines submit commands through Session.Enqueue.
package connection
