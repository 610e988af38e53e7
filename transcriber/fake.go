package transcriber

import (
	"context"
	"sync"

	"tapvoice/audio"
)

// FakeStep is one scripted reply.
type FakeStep struct {
	Text string
	Err  error
}

// Fake replies from a script and then repeats its last step.
type Fake struct {
	mu    sync.Mutex
	steps []FakeStep
	calls int
	block bool
}

func NewFake(steps ...FakeStep) *Fake {
	return &Fake{steps: steps}
}

// Blocking makes Transcribe wait for ctx cancellation.
func (f *Fake) Blocking() *Fake {
	f.block = true
	return f
}

func (f *Fake) Transcribe(ctx context.Context, _ audio.Utterance) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	var step FakeStep
	if n := len(f.steps); n > 0 {
		step = f.steps[min(f.calls-1, n-1)]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if step.Err == nil && step.Text == "" {
		return "", ErrUnintelligible
	}
	return step.Text, step.Err
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
