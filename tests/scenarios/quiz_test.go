package scenarios

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroom/pkg/protocol"
	"liveroom/tests/fixtures"
)

// TestQuizLifecycle drives one quiz end to end: start fans out to students,
// submissions feed the teacher's live list, an individual reveal reaches one
// student, the final reveal goes room-wide and reports scored submissions to
// the gradebook backend, and stop returns the room to idle.
func TestQuizLifecycle(t *testing.T) {
	var mu sync.Mutex
	var reported []protocol.QuizResult
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var res protocol.QuizResult
		require.NoError(t, json.NewDecoder(r.Body).Decode(&res))
		mu.Lock()
		reported = append(reported, res)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	h := fixtures.NewHarness(t, fixtures.WithGradebook(backend.URL))

	teacher := fixtures.Connect(t, h)
	teacher.Join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	sam := fixtures.Connect(t, h)
	samAck := sam.Join("MATH101", "Sam", protocol.RoleStudent)
	lee := fixtures.Connect(t, h)
	lee.Join("MATH101", "Lee", protocol.RoleStudent)

	// Start: the opaque payload reaches students verbatim, never the teacher.
	quiz := json.RawMessage(`{"questions":[{"prompt":"2+2?","choices":["3","4"]}]}`)
	teacher.Send(protocol.EventQuizStart, protocol.QuizStartRequest{QuizID: "quiz-1", Quiz: quiz})
	var started protocol.QuizStartRequest
	sam.WaitForDecoded(protocol.EventQuizStart, &started)
	assert.Equal(t, "quiz-1", started.QuizID)
	assert.JSONEq(t, string(quiz), string(started.Quiz))
	lee.WaitFor(protocol.EventQuizStart)
	teacher.ExpectNone(protocol.EventQuizStart, 200*time.Millisecond)

	// Each submission refreshes the teacher's list.
	score := 0.75
	sam.Send(protocol.EventQuizSubmit, protocol.QuizSubmitRequest{SubmissionID: "sub-sam", Score: &score})
	var subs protocol.QuizSubmissions
	teacher.WaitForDecoded(protocol.EventQuizSubmissions, &subs)
	require.Len(t, subs.Submissions, 1)
	assert.Equal(t, samAck.ConnectionID, subs.Submissions[0].StudentID)
	assert.Equal(t, "Sam", subs.Submissions[0].Name)

	lee.Send(protocol.EventQuizSubmit, protocol.QuizSubmitRequest{SubmissionID: "sub-lee"})
	teacher.WaitForDecoded(protocol.EventQuizSubmissions, &subs)
	require.Len(t, subs.Submissions, 2)

	// Individual reveal reaches only the targeted submitter.
	teacher.Send(protocol.EventQuizReveal, protocol.QuizRevealRequest{
		Mode:         protocol.RevealIndividual,
		SubmissionID: "sub-sam",
		Data:         json.RawMessage(`{"correct":true}`),
	})
	var reveal protocol.QuizRevealEvent
	sam.WaitForDecoded(protocol.EventQuizReveal, &reveal)
	assert.Equal(t, protocol.RevealIndividual, reveal.Mode)
	assert.Equal(t, "sub-sam", reveal.SubmissionID)
	lee.ExpectNone(protocol.EventQuizReveal, 200*time.Millisecond)

	var revealed protocol.QuizRevealedIDs
	teacher.WaitForDecoded(protocol.EventQuizRevealedIDs, &revealed)
	assert.Equal(t, []string{samAck.ConnectionID}, revealed.StudentIDs)

	// Final reveal goes to everyone and reports the scored submission; Lee's
	// unscored one is skipped.
	teacher.Send(protocol.EventQuizReveal, protocol.QuizRevealRequest{Mode: protocol.RevealFinal})
	for _, c := range []*fixtures.Client{teacher, sam, lee} {
		c.WaitFor(protocol.EventQuizReveal)
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reported) == 1
	}, 3*time.Second, 50*time.Millisecond)
	mu.Lock()
	result := reported[0]
	mu.Unlock()
	assert.Equal(t, "quiz-1", result.QuizID)
	assert.Equal(t, samAck.ConnectionID, result.StudentID)
	assert.Equal(t, "sub-sam", result.SubmissionID)
	require.NotNil(t, result.Score)
	assert.Equal(t, 0.75, *result.Score)

	// Stop returns the room to idle; a fresh quiz can start.
	teacher.Send(protocol.EventQuizStop, nil)
	for _, c := range []*fixtures.Client{teacher, sam, lee} {
		c.WaitFor(protocol.EventQuizStop)
	}
	teacher.Send(protocol.EventQuizStart, protocol.QuizStartRequest{QuizID: "quiz-2", Quiz: quiz})
	sam.WaitFor(protocol.EventQuizStart)
}

func TestQuizSubmitAfterRevealRejected(t *testing.T) {
	h := fixtures.NewHarness(t)

	teacher := fixtures.Connect(t, h)
	teacher.Join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	sam := fixtures.Connect(t, h)
	sam.Join("MATH101", "Sam", protocol.RoleStudent)

	teacher.Send(protocol.EventQuizStart, protocol.QuizStartRequest{
		QuizID: "quiz-1", Quiz: json.RawMessage(`{}`),
	})
	sam.WaitFor(protocol.EventQuizStart)
	sam.Send(protocol.EventQuizSubmit, protocol.QuizSubmitRequest{SubmissionID: "sub-1"})
	teacher.WaitFor(protocol.EventQuizSubmissions)

	teacher.Send(protocol.EventQuizReveal, protocol.QuizRevealRequest{Mode: protocol.RevealClass, SubmissionID: "sub-1"})
	sam.WaitFor(protocol.EventQuizReveal)

	sam.Send(protocol.EventQuizSubmit, protocol.QuizSubmitRequest{SubmissionID: "sub-2"})
	var ev protocol.ErrorEvent
	sam.WaitForDecoded(protocol.EventError, &ev)
	assert.Equal(t, protocol.CodeQuizClosed, ev.Code)
}

func TestQuizStartIsTeacherOnly(t *testing.T) {
	h := fixtures.NewHarness(t)

	teacher := fixtures.Connect(t, h)
	teacher.Join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	sam := fixtures.Connect(t, h)
	sam.Join("MATH101", "Sam", protocol.RoleStudent)

	sam.Send(protocol.EventQuizStart, protocol.QuizStartRequest{
		QuizID: "quiz-1", Quiz: json.RawMessage(`{}`),
	})
	var ev protocol.ErrorEvent
	sam.WaitForDecoded(protocol.EventError, &ev)
	assert.Equal(t, protocol.CodeUnauthorized, ev.Code)
}
