// Package dataurl encodes audio blobs as self-describing inline payloads
// (data:audio/wav;base64,...) and decodes both the tagged form and bare
// base64 strings submitted by clients.
package dataurl

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"stemlab/internal/services"
)

// WAVPrefix tags an inline payload as wav audio.
const WAVPrefix = "data:audio/wav;base64,"

// EncodeWAV renders raw wav bytes as an inline audio payload.
func EncodeWAV(data []byte) string {
	return WAVPrefix + base64.StdEncoding.EncodeToString(data)
}

// EncodeFile reads an audio file whole and returns it as an inline payload.
func EncodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	return EncodeWAV(data), nil
}

// Decode accepts either a tagged data URL or a bare base64 string and returns
// the raw bytes. Malformed input is a validation failure.
func Decode(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "data:") {
		header, payload, found := strings.Cut(value, ",")
		if !found {
			return nil, services.Wrap(services.ErrValidation, "dataurl", "decode", "data URL missing payload", nil)
		}
		if !strings.Contains(header, ";base64") {
			return nil, services.Wrap(services.ErrValidation, "dataurl", "decode", "unsupported data URL format", nil)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "dataurl", "decode", "invalid base64 payload", err)
		}
		return data, nil
	}

	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "dataurl", "decode", "invalid base64 payload", err)
	}
	return data, nil
}
