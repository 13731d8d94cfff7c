// pattern: Imperative Shell

package logging

import "sync"

// loggerCache memoizes *ScopedLogger by scope name with a double-checked
// lock, shared by Manager and TestLogManager so neither reimplements the
// same build-once-per-scope dance.
type loggerCache struct {
	mu      sync.RWMutex
	loggers map[string]*ScopedLogger
}

func newLoggerCache() *loggerCache {
	return &loggerCache{loggers: make(map[string]*ScopedLogger)}
}

// getOrCreate returns the cached logger for scope, calling build to
// construct one on first use. build must not itself call back into the
// cache.
func (c *loggerCache) getOrCreate(scope string, build func() *ScopedLogger) *ScopedLogger {
	c.mu.RLock()
	if logger, ok := c.loggers[scope]; ok {
		c.mu.RUnlock()
		return logger
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if logger, ok := c.loggers[scope]; ok {
		return logger
	}

	logger := build()
	c.loggers[scope] = logger
	return logger
}

// deleteByPrefix removes every cached logger whose scope has the given
// prefix, e.g. when a session's scope tree is torn down.
func (c *loggerCache) deleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for scope := range c.loggers {
		if len(scope) >= len(prefix) && scope[:len(prefix)] == prefix {
			delete(c.loggers, scope)
		}
	}
}
