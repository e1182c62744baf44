// Package command implements the Command Dispatcher component.
//
// The Command Dispatcher:
//   - Assigns each outbound command a monotonic id and a correlation UID
//   - Keeps a FIFO queue of pending commands and a single in-flight slot
//   - Transmits at most one command at a time; the next one goes out when
//     a completion frees the slot
//   - Remembers uid -> method for the lifetime of the session so push
//     events can be annotated with the command that caused them
//
// The server carries no id echo in its completions. Any completion is taken
// to refer to the command currently in flight, which holds as long as the
// server completes commands in submission order.
package command
