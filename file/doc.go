// Package file provides the local file plumbing around a transfer.
//
// The sender side loads the whole input with ReadSource, which rejects empty
// files and files above limits.MaxFileSize before any network activity. The
// receiver side appends accepted payloads to a Sink, a buffered output file
// that is flushed when the final segment arrives.
//
// Both sides can log a BLAKE2b-256 digest (Digest, Sink.Digest) so the two
// ends of a transfer can be compared by hand. The digest is diagnostic only
// and never travels on the wire.
//
// Example:
//
//	data, err := file.ReadSource("input.bin")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(file.Digest(data))
//
//	sink, err := file.CreateSink("output.bin")
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
package file
