package dbsp

import (
	"fmt"
)

// OpError is returned when an operator is invoked with malformed inputs.
type OpError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("operator %s: %s", e.Op, e.Message)
}

// Base implementation for validation
type BaseOp struct {
	arity int
	name  string
}

func NewBaseOp(name string, arity int) BaseOp {
	return BaseOp{arity: arity, name: name}
}

func (n *BaseOp) Name() string { return n.name }

// validateInputs checks the number of inputs passed to Process.
func (n *BaseOp) validateInputs(count int) error {
	if count != n.arity {
		return &OpError{Op: n.name, Message: fmt.Sprintf("expects %d inputs, got %d", n.arity, count)}
	}
	return nil
}
