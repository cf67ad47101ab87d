package skillproc

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

const tailSize = 4096

// lineLogger logs complete stderr lines of a child and keeps a short tail
// for error messages.
type lineLogger struct {
	log  zerolog.Logger
	mu   sync.Mutex
	buf  []byte
	tail []byte
}

func (lw *lineLogger) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.tail = append(lw.tail, p...)
	if len(lw.tail) > tailSize {
		lw.tail = lw.tail[len(lw.tail)-tailSize:]
	}
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := bytes.TrimRight(lw.buf[:idx], "\r"); len(line) > 0 {
			lw.log.Info().Str("stream", "stderr").Msg(string(line))
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (lw *lineLogger) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.buf) > 0 {
		lw.log.Info().Str("stream", "stderr").Msg(string(lw.buf))
		lw.buf = nil
	}
}

// Tail returns the last few KiB written.
func (lw *lineLogger) Tail() string {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return string(lw.tail)
}
