//go:build cgo

// Package portaudio provides a playback surface backed by a PortAudio
// output stream.
package portaudio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/vocadrill/drill-core/core/audio"
)

const defaultBufferFrames = 1024

// Element feeds fully buffered clips to a single PortAudio output stream
// through a pump goroutine. The stream is opened and started once and kept
// for the element's whole lifetime. Clips are expected in the default
// encoding (16kHz linear16 mono).
type Element struct {
	stream *portaudio.Stream
	out    []int16

	mu      sync.Mutex
	clip    audio.Clip
	cursor  int
	started bool
	ended   bool
	volume  float64
	onEnded func()

	wake chan struct{}
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func NewElement() (*Element, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	out := make([]int16, defaultBufferFrames)
	stream, err := portaudio.OpenDefaultStream(0, 1, audio.DefaultSampleRate, defaultBufferFrames, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	element := &Element{
		stream: stream,
		out:    out,
		volume: 1,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go element.pump()

	return element, nil
}

func (e *Element) Load(_ context.Context, clip audio.Clip) error {
	if clip.IsZero() {
		return fmt.Errorf("cannot load an empty clip")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.clip = clip
	e.cursor = 0
	e.started = false
	e.ended = false
	return nil
}

func (e *Element) Start() error {
	e.mu.Lock()
	if e.clip.IsZero() {
		e.mu.Unlock()
		return fmt.Errorf("no clip loaded")
	}
	e.started = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

func (e *Element) Pause() {
	e.mu.Lock()
	e.started = false
	e.mu.Unlock()
}

func (e *Element) Rewind() {
	e.mu.Lock()
	e.cursor = 0
	e.ended = false
	e.mu.Unlock()
}

func (e *Element) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.clip.IsZero() {
		return 0
	}
	return e.clip.Encoding.Duration(e.cursor)
}

func (e *Element) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	e.mu.Lock()
	e.volume = volume
	e.mu.Unlock()
}

func (e *Element) SetOnEnded(callback func()) {
	e.mu.Lock()
	e.onEnded = callback
	e.mu.Unlock()
}

func (e *Element) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.started = false
		e.mu.Unlock()

		close(e.done)
		select {
		case e.wake <- struct{}{}:
		default:
		}

		if err := e.stream.Close(); err != nil {
			e.closeErr = fmt.Errorf("failed to close portaudio stream: %w", err)
		}
		if err := portaudio.Terminate(); err != nil && e.closeErr == nil {
			e.closeErr = fmt.Errorf("failed to terminate portaudio: %w", err)
		}
	})
	return e.closeErr
}

// pump writes buffers to the stream while a clip is live and parks on the
// wake channel while idle.
func (e *Element) pump() {
	for {
		select {
		case <-e.done:
			return
		default:
		}

		if !e.fillBuffer() {
			select {
			case <-e.done:
				return
			case <-e.wake:
			}
			continue
		}

		// Underflows while the scheduler catches up are expected and are
		// not worth surfacing.
		_ = e.stream.Write()
	}
}

// fillBuffer converts the next slice of the clip into the output buffer.
// It returns false when there is nothing to play, firing the ended callback
// once, off the pump goroutine, when the clip has drained.
func (e *Element) fillBuffer() bool {
	e.mu.Lock()

	if !e.started || e.clip.IsZero() || e.cursor >= len(e.clip.PCM) {
		var callback func()
		if e.started && !e.clip.IsZero() && e.cursor >= len(e.clip.PCM) && !e.ended {
			e.ended = true
			e.started = false
			callback = e.onEnded
		}
		e.mu.Unlock()

		if callback != nil {
			go callback()
		}
		return false
	}

	pcm := e.clip.PCM
	volume := e.volume
	n := e.cursor
	for i := range e.out {
		if n+1 < len(pcm) {
			sample := int16(uint16(pcm[n]) | uint16(pcm[n+1])<<8)
			e.out[i] = int16(float64(sample) * volume)
			n += 2
		} else {
			e.out[i] = 0
		}
	}
	e.cursor = n
	e.mu.Unlock()

	return true
}
