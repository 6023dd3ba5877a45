package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocadrill/drill-core/core/audio"
)

type fakeElement struct {
	mu sync.Mutex

	clip     audio.Clip
	started  bool
	position time.Duration
	volume   float64
	volumes  []float64
	onEnded  func()
	closed   bool

	loadErr  error
	startErr error

	loads   int
	starts  int
	pauses  int
	rewinds int

	// autoAdvance moves the position forward on every Position read,
	// simulating a stream that keeps making progress.
	autoAdvance time.Duration
}

func newFakeElement() *fakeElement {
	return &fakeElement{volume: 1}
}

func (f *fakeElement) Load(_ context.Context, clip audio.Clip) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loadErr != nil {
		return f.loadErr
	}

	f.clip = clip
	f.position = 0
	f.loads++
	return nil
}

func (f *fakeElement) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return f.startErr
	}

	f.started = true
	f.starts++
	return nil
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = false
	f.pauses++
}

func (f *fakeElement) Rewind() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.position = 0
	f.rewinds++
}

func (f *fakeElement) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	position := f.position
	f.position += f.autoAdvance
	return position
}

func (f *fakeElement) SetVolume(volume float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.volume = volume
	f.volumes = append(f.volumes, volume)
}

func (f *fakeElement) SetOnEnded(callback func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onEnded = callback
}

func (f *fakeElement) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

func (f *fakeElement) fireEnded() {
	f.mu.Lock()
	callback := f.onEnded
	f.mu.Unlock()

	if callback != nil {
		callback()
	}
}

func (f *fakeElement) loadedClip() audio.Clip {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.clip
}

func (f *fakeElement) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.loads
}

func (f *fakeElement) pauseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pauses
}

func (f *fakeElement) recordedVolumes() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]float64(nil), f.volumes...)
}

func (f *fakeElement) setPosition(position time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.position = position
}

type fakeLoader struct {
	mu    sync.Mutex
	clips map[string]audio.Clip
	errs  map[string]error
	calls []string
}

func newFakeLoader(clips ...audio.Clip) *fakeLoader {
	loader := &fakeLoader{
		clips: map[string]audio.Clip{},
		errs:  map[string]error{},
	}
	for _, clip := range clips {
		loader.clips[clip.Ref.ID] = clip
	}
	return loader
}

func (f *fakeLoader) failOn(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errs[id] = fmt.Errorf("injected load failure for %q", id)
}

func (f *fakeLoader) LoadClip(_ context.Context, ref audio.Ref) (audio.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, ref.ID)

	if err := f.errs[ref.ID]; err != nil {
		return audio.Clip{}, err
	}
	clip, ok := f.clips[ref.ID]
	if !ok {
		return audio.Clip{}, fmt.Errorf("no clip registered for %q", ref.ID)
	}
	return clip, nil
}

func (f *fakeLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func testClip(id string) audio.Clip {
	return audio.Clip{
		Ref:      audio.Ref{ID: id, URL: "https://cdn.example.test/" + id},
		PCM:      []byte{0x01, 0x02, 0x03, 0x04},
		Encoding: audio.GetDefaultEncodingInfo(),
	}
}
