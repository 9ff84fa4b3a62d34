package interfaces

import (
	"context"

	"liveroom/pkg/protocol"
)

// GradeRecorder reports final quiz results to the external REST backend.
// Calls are fire-and-forget from the coordinator's perspective: failures are
// logged by the implementation and never affect room state.
type GradeRecorder interface {
	RecordQuizResult(ctx context.Context, result *protocol.QuizResult) error
}
