package contract

import (
	"context"
	"errors"
)

var ErrTagLimitReached = errors.New("context tag limit reached")

// TagIndex tracks which context tags a subject owns.
type TagIndex interface {
	List(ctx context.Context, subjectId string) ([]string, error)
	// Add registers tag unless the subject already owns limit tags, in which
	// case it returns ErrTagLimitReached and changes nothing. added is false
	// when the tag was already present.
	Add(ctx context.Context, subjectId, tag string, limit int) (added bool, err error)
	Remove(ctx context.Context, subjectId, tag string) error
}
