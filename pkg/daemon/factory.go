package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/pkg/paths"
)

// New returns a Client that will use the daemon if available,
// otherwise falls back to LocalClient.
//
// This implements the "transparent daemon" pattern: callers don't need
// to know whether the daemon is running or not. The same API works
// in both modes.
func New() Client {
	if client, err := Connect(); err == nil {
		return client
	}
	return NewLocalClient()
}

// Connect returns a RemoteClient, or a DAEMON_NOT_RUNNING error when the
// socket does not accept connections. Use it where only the daemon can
// serve the request, such as streaming.
func Connect() (*RemoteClient, error) {
	return ConnectTo(paths.SocketPath())
}

// ConnectTo is Connect for an explicit socket path.
func ConnectTo(socketPath string) (*RemoteClient, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn.Close()
	return NewRemoteClient(socketPath)
}
