package playback

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/vocadrill/drill-core/core/audio"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPLoader fetches clips by ref URL over HTTP and decodes them into raw
// PCM. Loads happen strictly off the playback path: controllers call it to
// fill the preload cache or to fetch a cache miss before starting a play.
type HTTPLoader struct {
	client *http.Client
}

func NewHTTPLoader() *HTTPLoader {
	return &HTTPLoader{
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return fmt.Sprintf("%s %s", request.Method, request.URL.Path)
			}),
		)},
	}
}

func (l *HTTPLoader) LoadClip(ctx context.Context, ref audio.Ref) (audio.Clip, error) {
	if ref.URL == "" {
		return audio.Clip{}, fmt.Errorf("ref %q has no url", ref.ID)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to build request for %q: %w", ref.ID, err)
	}

	response, err := l.client.Do(request)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to fetch %q: %w", ref.ID, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return audio.Clip{}, fmt.Errorf("failed to fetch %q: unexpected status %d", ref.ID, response.StatusCode)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to read body for %q: %w", ref.ID, err)
	}

	clip, err := audio.DecodeClip(ref, data)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to decode clip: %w", err)
	}

	return clip, nil
}
