package serverfn

// PayloadKind discriminates the three result shapes a server function can
// produce.
type PayloadKind int

const (
	// PayloadBinary is an opaque byte result (CBOR or anything else the
	// function chose to emit). The adapter writes it without a content type.
	PayloadBinary PayloadKind = iota

	// PayloadURLEncoded is a url-encoded form result.
	PayloadURLEncoded

	// PayloadJSON is a JSON document result.
	PayloadJSON
)

// String returns a human-readable name for the payload kind.
func (k PayloadKind) String() string {
	switch k {
	case PayloadBinary:
		return "binary"
	case PayloadURLEncoded:
		return "url"
	case PayloadJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Payload is a serialized server-function result.
type Payload struct {
	kind PayloadKind
	data []byte
}

// Binary wraps raw bytes as a binary payload.
func Binary(data []byte) Payload {
	return Payload{kind: PayloadBinary, data: data}
}

// URLEncoded wraps a url-encoded form string as a payload.
func URLEncoded(data string) Payload {
	return Payload{kind: PayloadURLEncoded, data: []byte(data)}
}

// JSON wraps a serialized JSON document as a payload.
func JSON(data string) Payload {
	return Payload{kind: PayloadJSON, data: []byte(data)}
}

// Kind returns the payload's shape.
func (p Payload) Kind() PayloadKind { return p.kind }

// Body returns the payload bytes.
func (p Payload) Body() []byte { return p.data }

// ContentType returns the Content-Type the payload should be served with.
// Binary payloads return "" - the caller decides (or sends none).
func (p Payload) ContentType() string {
	switch p.kind {
	case PayloadURLEncoded:
		return "application/x-www-form-urlencoded"
	case PayloadJSON:
		return "application/json"
	default:
		return ""
	}
}
