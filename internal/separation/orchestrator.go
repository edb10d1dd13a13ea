package separation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stemlab/internal/logging"
	"stemlab/internal/media/dataurl"
	"stemlab/internal/services"
)

// videoExtensions are the container formats that require an ffmpeg audio
// extraction pass before separation.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".m4v":  {},
	".mkv":  {},
	".webm": {},
	".avi":  {},
	".mpg":  {},
	".mpeg": {},
}

// expectedStems is the fixed output vocabulary, in response order.
var expectedStems = []string{"vocals", "drums", "bass", "other"}

// copyChunkSize bounds the buffer used to stream uploads to scratch.
const copyChunkSize = 1 << 20

// Converter renders a video container into a stereo wav file.
type Converter interface {
	ExtractAudio(ctx context.Context, inputPath, outputPath string) error
}

// Separator runs a separation model against an audio file.
type Separator interface {
	Separate(ctx context.Context, inputPath, outputDir string) error
}

// ModelResolver returns the (cached) separator handle for a model identifier.
type ModelResolver func(model string) (Separator, error)

// Result carries the encoded stems for one request.
type Result struct {
	Model string
	Stems map[string]string
}

// Orchestrator drives one separation request: receive the upload, optionally
// extract audio from video, invoke the model, collect whatever expected stems
// materialized, and encode them for transport. It holds no per-request state;
// everything lives in a scratch directory that is removed on every exit path.
type Orchestrator struct {
	scratchRoot  string
	defaultModel string
	converter    Converter
	resolve      ModelResolver
	logger       *slog.Logger
}

// New constructs an orchestrator. scratchRoot may be empty to use the system
// temp directory.
func New(scratchRoot, defaultModel string, converter Converter, resolve ModelResolver, logger *slog.Logger) (*Orchestrator, error) {
	if converter == nil || resolve == nil {
		return nil, errors.New("orchestrator requires converter and model resolver")
	}
	if strings.TrimSpace(defaultModel) == "" {
		return nil, errors.New("orchestrator requires a default model")
	}
	return &Orchestrator{
		scratchRoot:  scratchRoot,
		defaultModel: defaultModel,
		converter:    converter,
		resolve:      resolve,
		logger:       logging.WithComponent(logger, "separation"),
	}, nil
}

// DefaultModel returns the model used when the client does not name one.
func (o *Orchestrator) DefaultModel() string {
	return o.defaultModel
}

// Process runs the full pipeline for one uploaded file. filename must carry
// the client's original name (the extension decides whether conversion runs).
func (o *Orchestrator) Process(ctx context.Context, filename string, payload io.Reader, model string) (Result, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Result{}, services.Wrap(services.ErrValidation, "separation", "receive", "upload must include a filename", nil)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = o.defaultModel
	}

	scratch, err := os.MkdirTemp(o.scratchRoot, "stemlab-")
	if err != nil {
		return Result{}, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			o.logger.Warn("remove scratch directory", logging.String("dir", scratch), logging.Error(err))
		}
	}()

	started := time.Now()
	inputPath := filepath.Join(scratch, name)
	if err := streamToFile(payload, inputPath); err != nil {
		return Result{}, err
	}

	source := inputPath
	ext := strings.ToLower(filepath.Ext(name))
	if _, isVideo := videoExtensions[ext]; isVideo {
		converted := filepath.Join(scratch, stemBase(name)+"_audio.wav")
		if err := o.converter.ExtractAudio(ctx, inputPath, converted); err != nil {
			return Result{}, services.Wrap(services.ErrUpstream, "separation", "convert", "could not extract audio from video", err)
		}
		source = converted
	}

	separator, err := o.resolve(model)
	if err != nil {
		return Result{}, services.Wrap(services.ErrUpstream, "separation", "init",
			fmt.Sprintf("could not initialize separation model %q", model), err)
	}
	if err := separator.Separate(ctx, source, scratch); err != nil {
		return Result{}, services.Wrap(services.ErrUpstream, "separation", "separate", "stem separation failed", err)
	}

	stems, err := o.collect(scratch, filepath.Base(source))
	if err != nil {
		return Result{}, err
	}

	o.logger.Info("separation complete",
		logging.String("file", name),
		logging.String("model", model),
		logging.Int("stems", len(stems)),
		logging.Duration("elapsed", time.Since(started)))
	return Result{Model: model, Stems: stems}, nil
}

// collect gathers whichever expected stems the model produced. The model tool
// writes a folder named after its input file's base name. A subset of the
// expected stems is valid; an absent output directory or an empty set is an
// upstream failure.
func (o *Orchestrator) collect(scratch, sourceName string) (map[string]string, error) {
	stemsDir := filepath.Join(scratch, stemBase(sourceName))
	if _, err := os.Stat(stemsDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrUpstream, "separation", "collect", "stem service did not produce any files", nil)
		}
		return nil, fmt.Errorf("inspect stem output: %w", err)
	}

	stems := make(map[string]string, len(expectedStems))
	for _, stem := range expectedStems {
		path := filepath.Join(stemsDir, stem+".wav")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		encoded, err := dataurl.EncodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("encode stem %q: %w", stem, err)
		}
		stems[stem] = encoded
	}

	if len(stems) == 0 {
		return nil, services.Wrap(services.ErrUpstream, "separation", "collect", "no stems were generated", nil)
	}
	return stems, nil
}

func streamToFile(payload io.Reader, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, copyChunkSize)
	if _, err := io.CopyBuffer(file, payload, buf); err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	return file.Close()
}

func stemBase(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
