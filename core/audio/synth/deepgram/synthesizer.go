// Package deepgram synthesizes drill phrases into fully buffered clips over
// Deepgram's speak websocket. It is a preparation-time tool for callers that
// have no pre-recorded audio; nothing on the playback path consults it.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/vocadrill/drill-core/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Synthesizer turns one phrase at a time into raw PCM through a short-lived
// speak websocket. Each Synthesize call opens its own connection; two voices
// are typically held as two synthesizers.
type Synthesizer struct {
	voice    Voice
	encoding audio.EncodingInfo
	dialer   *websocket.Dialer
}

func NewSynthesizer(voice Voice) (*Synthesizer, error) {
	if voice == "" {
		voice = defaultVoice
	}
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice %q", voice)
	}

	return &Synthesizer{
		voice:    voice,
		encoding: audio.GetDefaultEncodingInfo(),
		dialer:   websocket.DefaultDialer,
	}, nil
}

// Synthesize speaks one phrase and returns it as a fully buffered clip
// carrying the given ref. Binary frames accumulate audio; the "Flushed"
// confirmation marks the end of the utterance.
func (s *Synthesizer) Synthesize(ctx context.Context, ref audio.Ref, text string) (audio.Clip, error) {
	ctx, span := tracer.Start(ctx, "synthesize clip")
	defer span.End()
	span.SetAttributes(
		attribute.String("audio.ref_id", ref.ID),
		attribute.String("deepgram.voice", string(s.voice)),
	)

	fail := func(err error) (audio.Clip, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return audio.Clip{}, err
	}

	if text == "" {
		return fail(fmt.Errorf("nothing to synthesize for %q", ref.ID))
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := conn.WriteJSON(speakMsg(text)); err != nil {
		return fail(fmt.Errorf("failed to send speak message: %w", err))
	}
	if err := conn.WriteJSON(flushMsg); err != nil {
		return fail(fmt.Errorf("failed to send flush message: %w", err))
	}

	var pcm []byte
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return fail(fmt.Errorf("websocket read failed: %w", err))
		}

		switch msgType {
		case websocket.BinaryMessage:
			pcm = append(pcm, msg...)
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}

			if parsedMsg.Type != "Flushed" {
				continue
			}

			if len(pcm) == 0 {
				return fail(fmt.Errorf("no audio received for %q", ref.ID))
			}
			_ = conn.WriteJSON(closeMsg)
			return audio.Clip{Ref: ref, PCM: pcm, Encoding: s.encoding}, nil
		}
	}
}

func (s *Synthesizer) connect(ctx context.Context) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", s.encoding.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(s.encoding.SampleRate))
	urlValues.Set("model", string(s.voice))
	urlValues.Set("container", "none")

	conn, _, err := s.dialer.DialContext(ctx,
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

type websocketMessage struct {
	Type string `json:"type"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

func speakMsg(text string) struct {
	Type string `json:"type"`
	Text string `json:"text"`
} {
	return struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "Speak", Text: text}
}
