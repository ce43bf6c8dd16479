package search

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RunIDProvider names search runs in logs, traces and monitors.
type RunIDProvider interface {
	NextRunID() string
}

var _ RunIDProvider = &UUIDRunIDProvider{}

type UUIDProviderFn func() (uuid.UUID, error)

type UUIDRunIDProvider struct {
	nextUUIDFn UUIDProviderFn
}

func NewUUIDRunIDProvider() *UUIDRunIDProvider {
	return &UUIDRunIDProvider{
		nextUUIDFn: uuid.NewRandom,
	}
}

func NewCustomUUIDRunIDProvider(nextUUIDFn UUIDProviderFn) *UUIDRunIDProvider {
	return &UUIDRunIDProvider{
		nextUUIDFn: nextUUIDFn,
	}
}

func (p *UUIDRunIDProvider) NextRunID() string {
	id, err := p.nextUUIDFn()
	if err != nil {
		return fmt.Sprintf("run-%d (with error: %s)", time.Now().UnixNano(), err)
	}
	return id.String()
}

var _ RunIDProvider = &IncreasingRunIDProvider{}

// IncreasingRunIDProvider hands out "1", "2", ... and is safe for
// concurrent use.
type IncreasingRunIDProvider struct {
	id int64
}

func (i *IncreasingRunIDProvider) NextRunID() string {
	return strconv.FormatInt(atomic.AddInt64(&i.id, 1), 10)
}
