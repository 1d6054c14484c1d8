package model

import "time"

// Document is the intermediate type produced by connectors and consumed by the engine.
type Document struct {
	Name        string // base name, used to derive output names
	Source      string // connector name (e.g. "localfs", "stdin")
	ContentType string // optional, used for charset detection
	Body        []byte // raw markup
	ReceivedAt  time.Time
}
