package execution

import (
	"context"

	"percolator_go/internal/instruction"
)

// Instruction is an encoded command addressed to a program. Signing and
// account metas are the submitter's concern.
type Instruction struct {
	ProgramID string
	Tag       instruction.Tag
	Data      []byte
}

// Submitter hands instructions to whatever signs and sends them.
type Submitter interface {
	// Submit returns an identifier for the submission: a transaction
	// signature for real submitters, a synthetic id otherwise.
	Submit(ctx context.Context, ix Instruction) (string, error)
}

// NewInstruction encodes cmd for programID.
func NewInstruction(programID string, cmd instruction.Command) (Instruction, error) {
	data, err := instruction.Encode(cmd)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{ProgramID: programID, Tag: cmd.Tag(), Data: data}, nil
}
