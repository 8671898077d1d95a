package util

import (
	"strconv"
	"time"
)

func NowISO() string {
	return time.Now().Format(time.RFC3339)
}

// LocalID returns a millisecond-resolution id for records created while
// no remote backend is attached. Good enough for one operator and one
// form; imported records get real UUIDs instead.
func LocalID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
