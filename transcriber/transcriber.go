// Package transcriber turns captured phrases into text with a hosted
// Whisper-compatible transcription endpoint.
package transcriber

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrUnintelligible means the service heard audio but recognized no words.
var ErrUnintelligible = errors.New("speech was unintelligible")

// RequestError is a failed round trip to the transcription service: the
// network, a non-2xx status, or an unreadable body. These are transient.
type RequestError struct {
	Provider   string
	StatusCode int // zero when no response arrived
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s API error %d", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s request: %v", e.Provider, e.Err)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Result struct {
	Provider     string
	Text         string
	Metrics      *NetworkMetrics
	RateLimit    string
	NoSpeechProb float64
	AvgLogProb   float64
	AudioSeconds float64
	UploadBytes  int
	EncodeTime   time.Duration
}

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"

	DefaultTimeout = 30 * time.Second
)

type Config struct {
	Provider string
	APIKey   string // falls back to GROQ_API_KEY or OPENAI_API_KEY
	Model    string // empty selects the provider default
	Language string
	Timeout  time.Duration
	BaseURL  string // overrides the provider endpoint
}

type provider struct {
	url            string
	model          string
	responseFormat string
	keyEnv         string
}

var providers = map[string]provider{
	ProviderGroq: {
		url:            "https://api.groq.com/openai/v1/audio/transcriptions",
		model:          "whisper-large-v3-turbo",
		responseFormat: "verbose_json",
		keyEnv:         "GROQ_API_KEY",
	},
	ProviderOpenAI: {
		url:            "https://api.openai.com/v1/audio/transcriptions",
		model:          "gpt-4o-transcribe",
		responseFormat: "json",
		keyEnv:         "OPENAI_API_KEY",
	},
}

// New builds a client for the configured provider.
func New(cfg Config) (*Whisper, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = ProviderGroq
	}
	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}

	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(p.keyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("no API key for %s: set transcriber.api_key or %s", name, p.keyEnv)
	}

	if cfg.Model != "" {
		p.model = cfg.Model
	}
	if cfg.BaseURL != "" {
		p.url = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Whisper{
		name:     name,
		apiKey:   key,
		apiURL:   p.url,
		model:    p.model,
		format:   p.responseFormat,
		lang:     cfg.Language,
		client:   NewTracedClient(timeout),
	}, nil
}
