// Package arq implements the Go-Back-N sender and receiver engines.
//
// Each engine is a single control loop over a transport.Port and owns its
// state exclusively; only the Stats snapshots are safe to read from another
// goroutine.
//
// # Sender
//
// The Sender keeps the ordered slice of data segments produced by
// BuildSegments and two counters: sent (segments transmitted at least once)
// and ack (index of the highest cumulatively acknowledged segment, -1 for
// none). Each iteration it
//
//  1. sends new segments while fewer than Window are outstanding,
//  2. waits up to Timeout for one acknowledgement,
//  3. on an ACK carrying ack+2, advances ack by exactly one,
//  4. on timeout, resends every segment in [ack+1, sent).
//
// An ACK carrying the segment count ends the transfer. Datagrams that do not
// decode as an ACK are ignored and handled like a timeout.
//
// # Receiver
//
// The Receiver accepts only the segment whose sequence equals expected. It
// writes the payload, acknowledges expected+1 and either advances expected
// or, for a segment shorter than limits.PayloadSize, closes the sink and
// stops. Any other data segment is discarded and answered with an ACK
// carrying expected. Undecodable datagrams are dropped without reply.
//
// Sequence numbers are plain counters from zero and are never reduced modulo
// the window.
//
// Example:
//
//	segments := arq.BuildSegments(data, 4)
//	sender, err := arq.NewSender(port, peer, segments, arq.DefaultSenderConfig())
//	if err != nil {
//	    return err
//	}
//	if err := sender.Run(ctx); err != nil {
//	    return err
//	}
package arq
