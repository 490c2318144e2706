package service

import (
	"fmt"

	"github.com/shelf-fs/shelf/internal/logger"
)

// sagaStep is one named state of a compensating-action protocol. run
// advances the state; undo reverses it when a later step fails. A nil undo
// marks a step with nothing to reverse.
type sagaStep struct {
	name string
	run  func() error
	undo func() error
}

// runSaga executes the steps in order. On failure it runs the undo of
// every completed step in reverse order, then returns the failing step's
// error. Undo failures are logged and never mask the original error; the
// protocol's promise is that compensation was attempted, not that it
// succeeded.
func runSaga(op string, steps []sagaStep) error {
	for i, step := range steps {
		err := step.run()
		if err == nil {
			continue
		}

		for j := i - 1; j >= 0; j-- {
			if steps[j].undo == nil {
				continue
			}
			if undoErr := steps[j].undo(); undoErr != nil {
				logger.Error("compensation failed",
					"op", op,
					"failed_step", step.name,
					"undo_step", steps[j].name,
					"error", undoErr)
			}
		}

		return fmt.Errorf("%s %s: %w", op, step.name, err)
	}
	return nil
}
