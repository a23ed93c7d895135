package system

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	pid, err := ReadPID(filepath.Join(dir, "missing.pid"))
	require.NoError(t, err)
	assert.Zero(t, pid)

	good := filepath.Join(dir, "good.pid")
	require.NoError(t, os.WriteFile(good, []byte("4242\n"), 0644))
	pid, err = ReadPID(good)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	bad := filepath.Join(dir, "bad.pid")
	require.NoError(t, os.WriteFile(bad, []byte("not-a-pid"), 0644))
	_, err = ReadPID(bad)
	assert.ErrorIs(t, err, ErrInvalidPID)
}

func TestAlive(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

type recorder struct {
	calls [][]string
}

func (r *recorder) run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil
}

func TestStartStopDaemon(t *testing.T) {
	dir := t.TempDir()
	pidfile := filepath.Join(dir, "vtun0.pid")
	rec := &recorder{}
	s := &StartStopDaemon{Binary: "/sbin/start-stop-daemon", Daemon: "/usr/sbin/openvpn", Run: rec.run}

	require.NoError(t, s.Stop(context.Background(), pidfile))
	assert.Empty(t, rec.calls, "nothing to stop without a pid file")

	require.NoError(t, os.WriteFile(pidfile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644))
	require.NoError(t, s.Stop(context.Background(), pidfile))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{"/sbin/start-stop-daemon", "--stop", "--quiet", "--pidfile", pidfile}, rec.calls[0])

	require.NoError(t, s.Start(context.Background(), pidfile, "openvpn-vtun0", "/etc/openvpn/openvpn-vtun0.conf"))
	assert.Equal(t, []string{
		"/sbin/start-stop-daemon", "--start", "--quiet", "--pidfile", pidfile,
		"--exec", "/usr/sbin/openvpn", "--",
		"--daemon", "openvpn-vtun0", "--config", "/etc/openvpn/openvpn-vtun0.conf",
	}, rec.calls[1])
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	f := &Files{}

	sub := filepath.Join(dir, "ccd", "vtun0")
	require.NoError(t, f.MkdirAll(sub))
	info, err := os.Stat(sub)
	require.NoError(t, err)
	assert.Equal(t, DirMode, info.Mode().Perm())

	conf := filepath.Join(dir, "openvpn-vtun0.conf")
	require.NoError(t, f.WriteConfig(conf, []byte("verb 3\n")))
	require.NoError(t, f.WriteConfig(conf, []byte("verb 4\n")))
	data, err := os.ReadFile(conf)
	require.NoError(t, err)
	assert.Equal(t, "verb 4\n", string(data))

	secret := filepath.Join(dir, "openvpn-vtun0-pw")
	require.NoError(t, f.WriteSecret(secret, []byte("alice\nsecret")))
	require.NoError(t, f.WriteSecret(secret, []byte("alice\nchanged")))
	info, err = os.Stat(secret)
	require.NoError(t, err)
	assert.Equal(t, SecretMode, info.Mode().Perm())

	key := filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(key, []byte("key"), 0644))
	require.NoError(t, f.Protect(key))
	info, err = os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, SecretMode, info.Mode().Perm())
	require.NoError(t, f.Protect(filepath.Join(dir, "missing.key")))
	require.NoError(t, f.Protect(""))

	require.NoError(t, f.WriteConfig(filepath.Join(sub, "alice"), []byte("x")))
	names, err := f.List(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)

	require.NoError(t, f.Remove(filepath.Join(sub, "alice")))
	require.NoError(t, f.Remove(filepath.Join(sub, "alice")))
	names, err = f.List(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
