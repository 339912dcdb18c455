package wire

import "errors"

// ErrBodyMalformed is returned whenever a body's actual length does not
// exactly match what its length prefixes declare. The strict length
// policy admits no partial parse.
var ErrBodyMalformed = errors.New("wire: body malformed")
