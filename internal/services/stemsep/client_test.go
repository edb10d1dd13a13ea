package stemsep

import (
	"context"
	"errors"
	"testing"

	"stemlab/internal/services"
)

type stubExecutor struct {
	calls  int
	binary string
	args   []string
	err    error
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	s.calls++
	s.binary = binary
	s.args = args
	return nil, s.err
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", DefaultModel); err == nil {
		t.Fatal("expected error for empty binary")
	}
	if _, err := NewClient("spleeter", " "); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestSeparateArguments(t *testing.T) {
	stub := &stubExecutor{}
	client, err := NewClient("spleeter", "spleeter:2stems", WithExecutor(stub))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.Separate(context.Background(), "/scratch/song.wav", "/scratch"); err != nil {
		t.Fatalf("Separate: %v", err)
	}
	want := []string{"separate", "-p", "spleeter:2stems", "-o", "/scratch", "-c", "wav", "-f", outputFormat, "/scratch/song.wav"}
	if len(stub.args) != len(want) {
		t.Fatalf("args = %v", stub.args)
	}
	for i := range want {
		if stub.args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, stub.args[i], want[i])
		}
	}
}

func TestSeparateFailureClassifiesUpstream(t *testing.T) {
	stub := &stubExecutor{err: errors.New("exit status 2")}
	client, err := NewClient("spleeter", DefaultModel, WithExecutor(stub))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.Separate(context.Background(), "/in.wav", "/out"); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestRegistryCachesPerModel(t *testing.T) {
	registry := NewRegistry("spleeter", WithExecutor(&stubExecutor{}))

	first, err := registry.Resolve("spleeter:4stems")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	again, err := registry.Resolve("spleeter:4stems")
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if first != again {
		t.Fatal("expected the same client instance for the same model")
	}

	other, err := registry.Resolve("spleeter:2stems")
	if err != nil {
		t.Fatalf("Resolve other: %v", err)
	}
	if other == first {
		t.Fatal("expected a distinct client per model")
	}
	if other.Model() != "spleeter:2stems" {
		t.Fatalf("model = %q", other.Model())
	}
}

func TestRegistryRejectsEmptyModel(t *testing.T) {
	registry := NewRegistry("spleeter")
	if _, err := registry.Resolve(""); err == nil {
		t.Fatal("expected error for empty model")
	}
}
