package lock

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLockSucceedsOnFreshDirectory(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	ok, err := l.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Unlock())
}

func TestTryLockFailsWhileAlreadyHeld(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file locking is a documented no-op fallback on windows")
	}
	dir := t.TempDir()

	first := New(dir)
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer first.Unlock()

	second := New(dir)
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok, "a second lock on the same directory must not succeed while the first is held")
}

func TestUnlockThenRelockSucceeds(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file locking is a documented no-op fallback on windows")
	}
	dir := t.TempDir()

	l := New(dir)
	ok, err := l.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l.Unlock())

	l2 := New(dir)
	ok, err = l2.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l2.Unlock())
}

func TestUnlockWithoutLockIsNoOp(t *testing.T) {
	l := New(t.TempDir())
	assert.NoError(t, l.Unlock())
}
