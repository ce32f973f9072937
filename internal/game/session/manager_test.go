package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/nightfall/internal/game/player"
)

func TestEntity_Push(t *testing.T) {
	e := NewEntity("test", 4)
	require.NoError(t, e.Push([]byte("hello")))

	data := <-e.Events()
	assert.Equal(t, []byte("hello"), data)
}

func TestEntity_PushClosed(t *testing.T) {
	e := NewEntity("test", 4)
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())
	assert.Error(t, e.Push([]byte("fail")))
}

func TestEntity_PushFull(t *testing.T) {
	e := NewEntity("test", 1)
	require.NoError(t, e.Push([]byte("first")))
	err := e.Push([]byte("overflow"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
}

func TestEntity_CloseIdempotent(t *testing.T) {
	e := NewEntity("test", 4)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.True(t, e.IsClosed())
}

func TestManager_Join(t *testing.T) {
	m := NewManager(8)
	sess, e, err := m.Join("room_a", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.Name)
	assert.Equal(t, "room_a", sess.RoomID)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, sess.Token, e.Token())
	assert.False(t, sess.Seated)
	assert.Equal(t, 1, m.Count())
}

func TestManager_JoinDuplicateName(t *testing.T) {
	m := NewManager(8)
	_, _, err := m.Join("room_a", "Alice")
	require.NoError(t, err)
	_, _, err = m.Join("room_a", "Alice")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already taken")

	_, _, err = m.Join("room_b", "Alice")
	assert.NoError(t, err, "names are unique per room")
}

func TestManager_SeatAndPush(t *testing.T) {
	m := NewManager(8)
	sess, e, err := m.Join("room_a", "Alice")
	require.NoError(t, err)
	require.NoError(t, m.Seat(sess.Token, 2))

	require.NoError(t, m.Push("room_a", 2, []byte("phase")))
	assert.Equal(t, []byte("phase"), <-e.Events())

	assert.Error(t, m.Push("room_a", 3, []byte("nobody")))
}

func TestManager_SeatTaken(t *testing.T) {
	m := NewManager(8)
	a, _, err := m.Join("room_a", "Alice")
	require.NoError(t, err)
	b, _, err := m.Join("room_a", "Bob")
	require.NoError(t, err)

	require.NoError(t, m.Seat(a.Token, 0))
	assert.Error(t, m.Seat(b.Token, 0))
	assert.Error(t, m.Seat("missing", 1))
}

func TestManager_AttachReplacesEntity(t *testing.T) {
	m := NewManager(8)
	sess, first, err := m.Join("room_a", "Alice")
	require.NoError(t, err)
	require.NoError(t, m.Seat(sess.Token, 0))

	_, second, err := m.Attach(sess.Token)
	require.NoError(t, err)
	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())

	assert.False(t, m.Detach(sess.Token, first), "a stale connection does not detach the new one")
	require.NoError(t, m.Push("room_a", 0, []byte("still here")))
	assert.Equal(t, []byte("still here"), <-second.Events())

	assert.True(t, m.Detach(sess.Token, second))
	assert.NoError(t, m.Push("room_a", 0, []byte("dropped")), "detached seats drop silently")
}

func TestManager_SendByToken(t *testing.T) {
	m := NewManager(8)
	sess, e, err := m.Join("room_a", "Alice")
	require.NoError(t, err)

	require.NoError(t, m.Send(sess.Token, []byte("lobby")))
	assert.Equal(t, []byte("lobby"), <-e.Events())
	assert.Error(t, m.Send("missing", []byte("x")))
}

func TestManager_Attached(t *testing.T) {
	m := NewManager(8)
	a, ea, err := m.Join("room_a", "Alice")
	require.NoError(t, err)
	_, _, err = m.Join("room_a", "Bob")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Attached("room_a"))

	require.True(t, m.Detach(a.Token, ea))
	assert.Equal(t, 1, m.Attached("room_a"))
	assert.Equal(t, 0, m.Attached("room_b"))
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(8)
	sess, e, err := m.Join("room_a", "Alice")
	require.NoError(t, err)
	require.NoError(t, m.Seat(sess.Token, 0))

	require.NoError(t, m.Remove(sess.Token))
	assert.Equal(t, 0, m.Count())
	assert.True(t, e.IsClosed())
	assert.Empty(t, m.TokensInRoom("room_a"))
	assert.Error(t, m.Push("room_a", 0, []byte("gone")))
	assert.Error(t, m.Remove(sess.Token))
}

func TestManager_RemoveRoom(t *testing.T) {
	m := NewManager(8)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, _, err := m.Join("room_a", name)
		require.NoError(t, err)
	}
	_, _, err := m.Join("room_b", "Dave")
	require.NoError(t, err)

	m.RemoveRoom("room_a")
	assert.Equal(t, 1, m.Count())
	assert.ElementsMatch(t, []string{"Dave"}, m.NamesInRoom("room_b"))
}

func TestManager_ConcurrentJoins(t *testing.T) {
	m := NewManager(8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = m.Join("room_a", fmt.Sprintf("p%d", i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, m.Count())
	assert.Len(t, m.TokensInRoom("room_a"), 50)
}

func TestProperty_SeatedPlayersReceiveTheirOwnPackets(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(rt, "players")
		m := NewManager(4)
		entities := make([]*Entity, n)
		for i := 0; i < n; i++ {
			sess, e, err := m.Join("room", fmt.Sprintf("p%d", i))
			if err != nil {
				rt.Fatalf("join: %v", err)
			}
			if err := m.Seat(sess.Token, player.Ref(i)); err != nil {
				rt.Fatalf("seat: %v", err)
			}
			entities[i] = e
		}
		target := rapid.IntRange(0, n-1).Draw(rt, "target")
		if err := m.Push("room", player.Ref(target), []byte{byte(target)}); err != nil {
			rt.Fatalf("push: %v", err)
		}
		for i, e := range entities {
			got := len(e.Events())
			if i == target && got != 1 {
				rt.Fatalf("player %d got %d packets, want 1", i, got)
			}
			if i != target && got != 0 {
				rt.Fatalf("player %d got %d packets, want 0", i, got)
			}
		}
	})
}
