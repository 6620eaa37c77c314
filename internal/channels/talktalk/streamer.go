package talktalk

import (
	"context"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultChunkRunes  = 300
	DefaultTypingDelay = 40 * time.Millisecond
)

// TextSender is the part of Client the streamer needs.
type TextSender interface {
	SendText(ctx context.Context, user, text string) error
}

// Streamer turns a stream of text deltas into platform-sized messages,
// pausing between sends to mimic typing.
type Streamer struct {
	sender     TextSender
	chunkRunes int
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration)
}

type StreamerOption func(*Streamer)

func WithChunkRunes(n int) StreamerOption {
	return func(s *Streamer) {
		if n > 0 {
			s.chunkRunes = n
		}
	}
}

func WithTypingDelay(d time.Duration) StreamerOption {
	return func(s *Streamer) {
		if d >= 0 {
			s.delay = d
		}
	}
}

func withSleep(fn func(context.Context, time.Duration)) StreamerOption {
	return func(s *Streamer) { s.sleep = fn }
}

func NewStreamer(sender TextSender, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		sender:     sender,
		chunkRunes: DefaultChunkRunes,
		delay:      DefaultTypingDelay,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendText streams an already complete reply.
func (s *Streamer) SendText(ctx context.Context, user, text string) error {
	ch := make(chan string, 1)
	ch <- text
	close(ch)
	return s.Stream(ctx, user, ch)
}

// Stream consumes deltas until the channel closes. When a send fails the
// buffered remainder gets one best-effort send, later deltas are drained and
// dropped, and the first error is returned.
func (s *Streamer) Stream(ctx context.Context, user string, deltas <-chan string) error {
	var buf []rune
	sent := 0

	emit := func(chunk string) error {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			return nil
		}
		if sent > 0 && s.delay > 0 {
			s.sleep(ctx, s.delay)
		}
		sent++
		return s.sender.SendText(ctx, user, chunk)
	}

	fail := func(err error) error {
		if rest := string(buf); strings.TrimSpace(rest) != "" {
			_ = emit(rest)
		}
		go drain(deltas)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			go drain(deltas)
			return ctx.Err()
		case delta, ok := <-deltas:
			if !ok {
				if err := emit(string(buf)); err != nil {
					return err
				}
				return nil
			}
			buf = append(buf, []rune(delta)...)
			for len(buf) >= s.chunkRunes {
				cut := splitPoint(buf, s.chunkRunes)
				chunk := string(buf[:cut])
				buf = buf[cut:]
				if err := emit(chunk); err != nil {
					return fail(err)
				}
			}
		}
	}
}

// splitPoint picks where to cut buf so the chunk holds at most limit runes,
// preferring a newline, then a sentence end, then whitespace.
func splitPoint(buf []rune, limit int) int {
	if len(buf) <= limit {
		return len(buf)
	}
	window := buf[:limit]
	floor := limit / 2
	for i := len(window) - 1; i >= floor; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	for i := len(window) - 1; i >= floor; i-- {
		if isSentenceEnd(window[i]) && (i+1 >= len(buf) || unicode.IsSpace(buf[i+1])) {
			return i + 1
		}
	}
	for i := len(window) - 1; i >= floor; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func drain(ch <-chan string) {
	for range ch {
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
