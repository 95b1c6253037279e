package tools

type ContentType int

const (
	ContentTypeJSON ContentType = iota
	ContentTypeSARIF
)

// MIME returns the value sent in the Content-Type header.
func (c ContentType) MIME() string {
	switch c {
	case ContentTypeSARIF:
		return "application/sarif+json"
	default:
		return "application/json"
	}
}

func (c ContentType) String() string {
	if c == ContentTypeSARIF {
		return "sarif"
	}
	return "json"
}

// Artifact is the output of one Launch, consumed by one submission.
type Artifact struct {
	ContentType ContentType
	Payload     []byte
}
