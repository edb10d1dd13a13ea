package ffmpeg

import (
	"context"
	"errors"
	"testing"

	"stemlab/internal/services"
)

type stubExecutor struct {
	binary string
	args   []string
	output []byte
	err    error
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	s.binary = binary
	s.args = args
	return s.output, s.err
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestExtractAudioArguments(t *testing.T) {
	stub := &stubExecutor{}
	converter, err := New("ffmpeg", WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := converter.ExtractAudio(context.Background(), "/tmp/in.mp4", "/tmp/out.wav"); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if stub.binary != "ffmpeg" {
		t.Fatalf("binary = %q", stub.binary)
	}

	want := []string{"-y", "-i", "/tmp/in.mp4", "-ac", "2", "-ar", "44100", "-f", "wav", "/tmp/out.wav"}
	if len(stub.args) != len(want) {
		t.Fatalf("args = %v", stub.args)
	}
	for i := range want {
		if stub.args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, stub.args[i], want[i])
		}
	}
}

func TestExtractAudioFailureClassifiesUpstream(t *testing.T) {
	stub := &stubExecutor{output: []byte("header\nInvalid data found when processing input"), err: errors.New("exit status 1")}
	converter, err := New("ffmpeg", WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = converter.ExtractAudio(context.Background(), "/tmp/in.mp4", "/tmp/out.wav")
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestExtractAudioValidatesPaths(t *testing.T) {
	converter, err := New("ffmpeg", WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := converter.ExtractAudio(context.Background(), "", "/tmp/out.wav"); err == nil {
		t.Fatal("expected error for empty input path")
	}
}
