package execution

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Mode selects the submitter implementation.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModePipe  Mode = "PIPE"
)

// NewSubmitter returns the Submitter for mode. PIPE writes to out.
func NewSubmitter(mode string, out io.Writer) (Submitter, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(mode)))
	slog.Info("Initializing submitter", "mode", m)

	switch m {
	case ModePaper, "":
		return NewPaperSubmitter(), nil
	case ModePipe:
		if out == nil {
			return nil, fmt.Errorf("pipe mode needs an output")
		}
		return NewPipeSubmitter(out), nil
	default:
		return nil, fmt.Errorf("unknown submit mode: %s", mode)
	}
}

// PipeSubmitter writes each instruction as one JSON line for an external
// signer to pick up.
type PipeSubmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   uint64
}

type pipeLine struct {
	ProgramID  string `json:"program_id"`
	Tag        string `json:"tag"`
	DataBase64 string `json:"data_base64"`
}

func NewPipeSubmitter(w io.Writer) *PipeSubmitter {
	return &PipeSubmitter{enc: json.NewEncoder(w)}
}

func (p *PipeSubmitter) Submit(ctx context.Context, ix Instruction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	line := pipeLine{
		ProgramID:  ix.ProgramID,
		Tag:        ix.Tag.String(),
		DataBase64: base64.StdEncoding.EncodeToString(ix.Data),
	}
	if err := p.enc.Encode(line); err != nil {
		return "", fmt.Errorf("pipe write: %w", err)
	}
	p.n++
	return fmt.Sprintf("pipe-%d", p.n), nil
}
