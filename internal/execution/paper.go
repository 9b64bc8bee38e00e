package execution

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Submission is a record of one paper submission.
type Submission struct {
	ID           string
	Instruction  Instruction
	TsUnixMicros int64
}

// PaperSubmitter logs instructions instead of sending them. It is the
// default mode so a misconfigured keeper never touches the network.
type PaperSubmitter struct {
	mu          sync.Mutex
	submissions []Submission
	next        uint64
}

// NewPaperSubmitter creates an empty paper submitter.
func NewPaperSubmitter() *PaperSubmitter {
	return &PaperSubmitter{}
}

func (p *PaperSubmitter) Submit(ctx context.Context, ix Instruction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(ix.Data) == 0 {
		return "", fmt.Errorf("empty instruction data")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.next++
	id := fmt.Sprintf("paper-%d", p.next)
	data := make([]byte, len(ix.Data))
	copy(data, ix.Data)
	ix.Data = data

	p.submissions = append(p.submissions, Submission{
		ID:           id,
		Instruction:  ix,
		TsUnixMicros: time.Now().UnixMicro(),
	})

	slog.Info("PAPER SUBMIT",
		slog.String("id", id),
		slog.String("program", ix.ProgramID),
		slog.String("tag", ix.Tag.String()),
		slog.Int("len", len(ix.Data)),
		slog.String("data", hex.EncodeToString(ix.Data)))

	return id, nil
}

// GetSubmissions returns all recorded submissions.
func (p *PaperSubmitter) GetSubmissions() []Submission {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]Submission, len(p.submissions))
	copy(result, p.submissions)
	return result
}
