// Package lineio assembles newline-terminated announcement records from the
// raw, arbitrarily-chunked byte stream the reactor drains off the FIFO, and
// validates each record as a PID announcement.
package lineio
