package adapter

import "time"

// Clock abstracts wall-clock time so expiry can be tested with a virtual clock.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
