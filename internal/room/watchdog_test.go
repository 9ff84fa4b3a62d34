package room

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveroom/pkg/interfaces"
	"liveroom/pkg/protocol"
)

func TestGraceStartsWhenLastTeacherLeaves(t *testing.T) {
	cfg := testConfig()
	cfg.Grace = time.Minute // long enough to never fire here
	env := newTestStore(cfg)

	teacher, ack, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	student, _, err := env.join("MATH101", "Sam", protocol.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, env.store.Leave(teacher))

	frame, ok := student.lastFrame(protocol.EventTeacherDisconnected)
	require.True(t, ok)
	td, ok := frame.Data.(protocol.TeacherDisconnected)
	require.True(t, ok)
	assert.Equal(t, 60, td.GraceSeconds)

	status, live := env.store.Status(ack.RoomID)
	require.True(t, live)
	assert.True(t, status.GraceActive)
	require.NotNil(t, status.GraceDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Minute), *status.GraceDeadline, 5*time.Second)
}

func TestGraceNotStartedWhileTeacherRemains(t *testing.T) {
	cfg := testConfig()
	cfg.Grace = time.Minute
	env := newTestStore(cfg)

	t1, _, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	_, _, err = env.join("MATH101", "Mr. Okafor", protocol.RoleTeacher)
	require.NoError(t, err)
	student, _, err := env.join("MATH101", "Sam", protocol.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, env.store.Leave(t1))
	assert.Equal(t, 0, student.eventCount(protocol.EventTeacherDisconnected))
}

func TestGraceExpiryEndsRoom(t *testing.T) {
	env := newTestStore(testConfig()) // 50ms grace

	teacher, ack, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	student, _, err := env.join("MATH101", "Sam", protocol.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, env.store.Leave(teacher))
	require.True(t, student.waitForEvent(protocol.EventRoomEnded, time.Second))

	_, live := env.store.Status(ack.RoomID)
	assert.False(t, live)

	// The lingering student connection is no longer room-bound.
	assert.ErrorIs(t, env.store.Chat(student, &protocol.ChatRequest{Message: "hi"}), interfaces.ErrRoomNotFound)
}

func TestTeacherRejoinCancelsGrace(t *testing.T) {
	env := newTestStore(testConfig()) // 50ms grace

	teacher, ack, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	student, _, err := env.join("MATH101", "Sam", protocol.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, env.store.Leave(teacher))
	require.Equal(t, 1, student.eventCount(protocol.EventTeacherDisconnected))

	_, rejoin, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, ack.RoomID, rejoin.RoomID)
	assert.Equal(t, 1, student.eventCount(protocol.EventTeacherJoined))

	// Well past the original deadline the room must still be alive.
	time.Sleep(150 * time.Millisecond)
	status, live := env.store.Status(ack.RoomID)
	require.True(t, live)
	assert.False(t, status.GraceActive)
	assert.Equal(t, 0, student.eventCount(protocol.EventRoomEnded))
}

func TestGraceRestartsAfterSecondDeparture(t *testing.T) {
	cfg := testConfig()
	cfg.Grace = time.Minute
	env := newTestStore(cfg)

	teacher, _, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	student, _, err := env.join("MATH101", "Sam", protocol.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, env.store.Leave(teacher))
	rejoined, _, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, env.store.Leave(rejoined))

	assert.Equal(t, 2, student.eventCount(protocol.EventTeacherDisconnected))
}

// TestGraceExpiryRacesTeacherRejoin lands a teacher rejoin right on the
// grace deadline, repeatedly. Exactly one outcome may hold per round: either
// the rejoin cancelled the timer (same room, no room-ended), or the expiry
// ended the room first and the rejoin opened a fresh one without the student.
func TestGraceExpiryRacesTeacherRejoin(t *testing.T) {
	for round := 0; round < 20; round++ {
		cfg := testConfig()
		cfg.Grace = time.Duration(round%5+1) * time.Millisecond
		env := newTestStore(cfg)

		teacher, ack, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
		require.NoError(t, err)
		student, _, err := env.join("MATH101", "Sam", protocol.RoleStudent)
		require.NoError(t, err)
		require.NoError(t, env.store.Leave(teacher))

		time.Sleep(cfg.Grace)
		_, rejoin, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			// Lost the race against teardown mid-join; the retry recreates.
			_, rejoin, err = env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
		}
		require.NoError(t, err)

		if len(rejoin.ExistingParticipants) == 1 {
			// Rejoin won: the student is still in the room and the timer is
			// cancelled for good.
			time.Sleep(5 * cfg.Grace)
			assert.Equal(t, 0, student.eventCount(protocol.EventRoomEnded))
			assert.Equal(t, 1, student.eventCount(protocol.EventTeacherJoined))
			_, live := env.store.Status(ack.RoomID)
			assert.True(t, live)
		} else {
			// Expiry won: the student saw the old room end and the rejoin
			// opened an empty replacement.
			require.Empty(t, rejoin.ExistingParticipants)
			require.True(t, student.waitForEvent(protocol.EventRoomEnded, time.Second))
		}
	}
}

func TestEndDuringGraceWinsOverExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.Grace = time.Minute
	env := newTestStore(cfg)

	teacher, ack, err := env.join("MATH101", "Ms. Rivera", protocol.RoleTeacher)
	require.NoError(t, err)
	student, _, err := env.join("MATH101", "Sam", protocol.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, env.store.Leave(teacher))
	require.NoError(t, env.store.EndRoomByID(ack.RoomID))

	assert.Equal(t, 1, student.eventCount(protocol.EventRoomEnded))
	_, live := env.store.Status(ack.RoomID)
	assert.False(t, live)
}
