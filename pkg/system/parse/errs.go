package parse

import "errors"

// ErrFormat indicates content that does not match the expected grammar
// for a pseudo-file format.
var ErrFormat = errors.New("parse: malformed content")
