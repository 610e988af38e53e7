package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"tapvoice/audio"
	"tapvoice/encoder"
)

// Whisper's own thresholds for treating a segment as silence.
const (
	noSpeechThreshold = 0.6
	logProbThreshold  = -1.0
)

// Whisper uploads FLAC-encoded phrases to an OpenAI-compatible endpoint.
type Whisper struct {
	name   string
	apiKey string
	apiURL string
	model  string
	format string
	lang   string
	client *TracedClient

	// Observe, if set, receives every successful result.
	Observe func(*Result)
}

func (w *Whisper) Name() string     { return w.name }
func (w *Whisper) Model() string    { return w.model }
func (w *Whisper) Language() string { return w.lang }

// Warm pre-connects to the endpoint.
func (w *Whisper) Warm(ctx context.Context) time.Duration {
	return w.client.Warm(ctx, w.apiURL)
}

// Transcribe returns the recognized text of one phrase. It returns
// ErrUnintelligible when nothing was recognized and *RequestError when the
// service could not be reached or refused the request. A cancelled ctx is
// returned as ctx.Err().
func (w *Whisper) Transcribe(ctx context.Context, u audio.Utterance) (string, error) {
	r, err := w.TranscribeResult(ctx, u)
	if err != nil {
		return "", err
	}
	if w.Observe != nil {
		w.Observe(r)
	}
	return r.Text, nil
}

func (w *Whisper) TranscribeResult(ctx context.Context, u audio.Utterance) (*Result, error) {
	if len(u.PCM) == 0 {
		return nil, ErrUnintelligible
	}

	encStart := time.Now()
	flacData, err := encoder.EncodeFLAC(u.Samples(), u.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode phrase: %w", err)
	}
	encodeTime := time.Since(encStart)

	body, contentType, err := w.form(flacData)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &RequestError{Provider: w.name, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Provider:   w.name,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(resp.Body)), 200),
		}
	}

	var parsed whisperResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, &RequestError{Provider: w.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse response: %w", err)}
	}

	r := &Result{
		Provider:     w.name,
		Text:         strings.TrimSpace(parsed.Text),
		Metrics:      resp.Metrics,
		RateLimit:    firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests") + "/" + firstNonEmpty(resp.Header, "x-ratelimit-limit-requests"),
		AudioSeconds: u.Duration.Seconds(),
		UploadBytes:  len(flacData),
		EncodeTime:   encodeTime,
	}
	if len(parsed.Segments) > 0 {
		var logProbSum float64
		for _, seg := range parsed.Segments {
			r.NoSpeechProb = max(r.NoSpeechProb, seg.NoSpeechProb)
			logProbSum += seg.AvgLogProb
		}
		r.AvgLogProb = logProbSum / float64(len(parsed.Segments))
	}

	if r.Text == "" || (r.NoSpeechProb > noSpeechThreshold && r.AvgLogProb < logProbThreshold) {
		return nil, ErrUnintelligible
	}
	return r, nil
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (w *Whisper) form(flacData []byte) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(flacData); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"model", w.model},
		{"response_format", w.format},
		{"temperature", "0"},
	}
	if w.lang != "" {
		fields = append(fields, [2]string{"language", w.lang})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
