package general

import (
	"sync"
	"time"
)

type TimeBufferable interface {
	GetId() string
	GetTimestamp() time.Time
}

// TimedBuffer keeps the newest bufferSize elements in insertion order.
type TimedBuffer[T TimeBufferable] struct {
	buffer     []T
	bufferSize int
	idToIndex  map[string]int
	mutex      sync.RWMutex
}

func NewTimedBuffer[T TimeBufferable](bufferSize int) *TimedBuffer[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &TimedBuffer[T]{
		buffer:     make([]T, 0, bufferSize),
		bufferSize: bufferSize,
		idToIndex:  make(map[string]int),
	}
}

func (tb *TimedBuffer[T]) AddElement(element T) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	if len(tb.buffer) >= tb.bufferSize {
		tb.buffer = append(tb.buffer[:0], tb.buffer[1:]...)
		tb.reindex()
	}
	tb.buffer = append(tb.buffer, element)
	tb.idToIndex[element.GetId()] = len(tb.buffer) - 1
}

func (tb *TimedBuffer[T]) reindex() {
	clear(tb.idToIndex)
	for i, el := range tb.buffer {
		tb.idToIndex[el.GetId()] = i
	}
}

func (tb *TimedBuffer[T]) GetElement(id string) (T, bool) {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()
	i, ok := tb.idToIndex[id]
	if !ok {
		var zero T
		return zero, false
	}
	return tb.buffer[i], true
}

func (tb *TimedBuffer[T]) GetLatestElement() (T, bool) {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()
	if len(tb.buffer) == 0 {
		var zero T
		return zero, false
	}
	return tb.buffer[len(tb.buffer)-1], true
}

func (tb *TimedBuffer[T]) GetElements() []T {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()
	out := make([]T, len(tb.buffer))
	copy(out, tb.buffer)
	return out
}

// GetElementsSince returns elements strictly newer than since.
func (tb *TimedBuffer[T]) GetElementsSince(since time.Time) []T {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()
	out := make([]T, 0)
	for _, el := range tb.buffer {
		if el.GetTimestamp().After(since) {
			out = append(out, el)
		}
	}
	return out
}

func (tb *TimedBuffer[T]) Len() int {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()
	return len(tb.buffer)
}
