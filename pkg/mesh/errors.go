package mesh

import "errors"

// Configuration errors. They are always returned wrapped with context; test
// for them with errors.Is.
var (
	ErrDuplicateAttribute = errors.New("attribute already registered")
	ErrAttributeSize      = errors.New("attribute data size mismatch")
	ErrAttributeName      = errors.New("attribute name must start with \"vertex_\" or \"face_\"")
	ErrFaceIndex          = errors.New("face index out of range")
	ErrBufferSize         = errors.New("buffer size mismatch")
	ErrBufferMissing      = errors.New("buffer not allocated")
	ErrUnknownParameter   = errors.New("unknown parameter")
)
