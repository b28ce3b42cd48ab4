package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FixedClock всегда возвращает одно и то же время
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

// SequenceKeys выдаёт ключи "key-1.jpg", "key-2.png"... в порядке вызовов,
// сохраняя расширение исходного имени.
type SequenceKeys struct {
	mu sync.Mutex
	n  int
}

func (s *SequenceKeys) NewKey(originalName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	ext := ""
	for i := len(originalName) - 1; i >= 0; i-- {
		if originalName[i] == '.' {
			ext = originalName[i:]
			break
		}
	}
	return fmt.Sprintf("key-%d%s", s.n, ext)
}
