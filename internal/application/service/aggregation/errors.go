package aggregation

import "errors"

// errBucketUnavailable marks a historical response that does not yet contain
// the requested bucket; the fill is retried.
var errBucketUnavailable = errors.New("bucket not yet available in history")
