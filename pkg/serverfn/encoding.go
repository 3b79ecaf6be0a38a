package serverfn

// Encoding declares how a server function receives its arguments and
// serializes its result. It is fixed per function at registration time; the
// adapter uses it to pick the argument source (query string vs. request body)
// and the typed wrapper uses it to pick codecs.
type Encoding int

const (
	// EncodingURL sends url-encoded arguments in a POST body and returns JSON.
	EncodingURL Encoding = iota

	// EncodingGetJSON sends url-encoded arguments in the query string of a
	// GET request and returns JSON.
	EncodingGetJSON

	// EncodingGetCBOR sends url-encoded arguments in the query string of a
	// GET request and returns CBOR.
	EncodingGetCBOR

	// EncodingCBOR sends CBOR arguments in a POST body and returns CBOR.
	EncodingCBOR
)

// String returns the wire name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingURL:
		return "url"
	case EncodingGetJSON:
		return "get-json"
	case EncodingGetCBOR:
		return "get-cbor"
	case EncodingCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// UsesRequestBody reports whether arguments arrive in the request body.
// When false, arguments are carried by the raw query string instead.
func (e Encoding) UsesRequestBody() bool {
	return e == EncodingURL || e == EncodingCBOR
}

// HasURLEncodedArgs reports whether arguments are url-encoded key/value
// pairs (as opposed to a CBOR document).
func (e Encoding) HasURLEncodedArgs() bool {
	return e != EncodingCBOR
}

// ResultKind returns the payload kind this encoding produces for results.
func (e Encoding) ResultKind() PayloadKind {
	if e == EncodingCBOR || e == EncodingGetCBOR {
		return PayloadBinary
	}
	return PayloadJSON
}
