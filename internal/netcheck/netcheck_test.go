package netcheck

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectedDialsLocalListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	p := New(Config{Hosts: []string{l.Addr().String()}, SkipInterfaceCheck: true})
	assert.True(t, p.Connected(context.Background()))
}

func TestConnectedFalseWhenNothingAnswers(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	p := New(Config{Hosts: []string{addr}, SkipInterfaceCheck: true})
	assert.False(t, p.Connected(context.Background()))
}

func TestConnectedRequiresUsableInterface(t *testing.T) {
	p := New(Config{Hosts: []string{"example.invalid:1"}})
	dialed := false
	p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialed = true
		return nil, errors.New("unreachable")
	}
	p.interfaces = func(context.Context) (psnet.InterfaceStatList, error) {
		return psnet.InterfaceStatList{{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}}}, nil
	}
	assert.False(t, p.Connected(context.Background()))
	assert.False(t, dialed, "dial should be skipped without a usable interface")

	p.interfaces = func(context.Context) (psnet.InterfaceStatList, error) {
		return psnet.InterfaceStatList{{Name: "eth0", Flags: []string{"up", "broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "10.0.0.2/24"}}}}, nil
	}
	assert.False(t, p.Connected(context.Background()))
	assert.True(t, dialed)
}

func TestDiskOK(t *testing.T) {
	p := New(Config{MinFreeDiskMB: 100})
	p.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 50 * 1024 * 1024}, nil
	}
	assert.False(t, p.DiskOK(context.Background(), "/"))

	p.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 500 * 1024 * 1024}, nil
	}
	assert.True(t, p.DiskOK(context.Background(), "/"))

	p.usage = func(context.Context, string) (*disk.UsageStat, error) { return nil, errors.New("stat failed") }
	assert.True(t, p.DiskOK(context.Background(), "/"))

	assert.True(t, New(Config{}).DiskOK(context.Background(), "/"))
}

func TestFreeDiskMBOnTempDir(t *testing.T) {
	p := New(Config{})
	_, err := p.FreeDiskMB(context.Background(), t.TempDir())
	require.NoError(t, err)
}
