//go:build cgo

// Package miniaudio provides a playback surface backed by a miniaudio
// playback device.
package miniaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/vocadrill/drill-core/core/audio"
)

// Element feeds fully buffered clips to a single miniaudio device. The
// device is initialized and started once and kept running for the element's
// whole lifetime; silence is written while nothing is playing. Clips are
// expected in the default encoding (16kHz linear16 mono).
type Element struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	mu      sync.Mutex
	clip    audio.Clip
	cursor  int
	started bool
	ended   bool
	volume  float64
	onEnded func()

	closeOnce sync.Once
	closeErr  error
}

func NewElement() (*Element, error) {
	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}

	element := &Element{audioContext: audioContext, volume: 1}

	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(audio.DefaultSampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(audio.DefaultSampleRate / 10) // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(
		audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: element.processAudio(bytesPerFrame)},
	)
	if err != nil {
		_ = audioContext.Uninit()
		audioContext.Free()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = audioContext.Uninit()
		audioContext.Free()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	element.device = device
	return element, nil
}

// Load swaps the element's source. The clip is already fully buffered, so
// this never blocks; playback does not begin until Start.
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
	defer e.mu.Unlock()

	if e.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if e.clip.IsZero() {
		return fmt.Errorf("no clip loaded")
	}

	e.started = true
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

		if e.device != nil {
			e.device.Uninit()
			e.device = nil
		}
		if e.audioContext != nil {
			e.closeErr = e.audioContext.Uninit()
			e.audioContext.Free()
			e.audioContext = nil
		}
	})
	return e.closeErr
}

// processAudio runs on the device thread. It drains the loaded clip into the
// output buffer and fires the ended callback once, off-thread, when the
// clip's last byte has been handed to the device.
func (e *Element) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		e.mu.Lock()
		if !e.started || e.clip.IsZero() {
			e.mu.Unlock()
			return
		}

		n := copy(pOutput[:need], e.clip.PCM[e.cursor:])
		volume := e.volume
		e.cursor += n

		var callback func()
		if e.cursor >= len(e.clip.PCM) && !e.ended {
			e.ended = true
			e.started = false
			callback = e.onEnded
		}
		e.mu.Unlock()

		scaleLinear16(pOutput[:n], volume)

		if callback != nil {
			go callback()
		}
	}
}

func scaleLinear16(buf []byte, volume float64) {
	if volume >= 1 {
		return
	}
	if volume <= 0 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}

	for i := 0; i+1 < len(buf); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(buf[i:]))
		binary.LittleEndian.PutUint16(buf[i:], uint16(int16(float64(sample)*volume)))
	}
}
