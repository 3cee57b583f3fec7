package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &NotFoundError{Entity: "faculty", ID: "f-1"}, CodeNotFound},
		{"wrapped policy", fmt.Errorf("step 2: %w", &PolicyRejectedError{SlotKey: "k"}), CodePolicyRejected},
		{"already processed", &AlreadyProcessedError{SwapID: "s"}, CodeAlreadyProcessed},
		{"expired", &RollbackExpiredError{SwapID: "s"}, CodeRollbackExpired},
		{"plain", errors.New("boom"), CodeInternal},
		{"optimistic lock", ErrOptimisticLock, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("期望 %s，实际 %s", tt.want, got)
			}
		})
	}
}
