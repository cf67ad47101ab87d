// Package netcheck answers two questions for the updater: is the network
// usable, and is there room on disk for new skills.
package netcheck

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// DefaultHosts are dialed to confirm outside connectivity.
var DefaultHosts = []string{"1.1.1.1:53", "8.8.8.8:53"}

const defaultDialTimeout = 3 * time.Second

// Config tunes a Prober.
type Config struct {
	// Hosts are host:port pairs; the first successful TCP dial wins.
	Hosts []string
	// DialTimeout bounds each dial.
	DialTimeout time.Duration
	// MinFreeDiskMB is the free space required by DiskOK. Zero disables the check.
	MinFreeDiskMB uint64
	// SkipInterfaceCheck disables the "some non-loopback interface is up" precheck.
	SkipInterfaceCheck bool
	Logger             zerolog.Logger
}

// Prober implements connectivity and disk checks.
type Prober struct {
	hosts      []string
	timeout    time.Duration
	minFreeMB  uint64
	skipIfaces bool
	log        zerolog.Logger
	dial       func(ctx context.Context, network, addr string) (net.Conn, error)
	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// New builds a Prober, filling defaults for unset fields.
func New(cfg Config) *Prober {
	p := &Prober{
		hosts:      cfg.Hosts,
		timeout:    cfg.DialTimeout,
		minFreeMB:  cfg.MinFreeDiskMB,
		skipIfaces: cfg.SkipInterfaceCheck,
		log:        cfg.Logger,
		interfaces: psnet.InterfacesWithContext,
		usage:      disk.UsageWithContext,
	}
	if len(p.hosts) == 0 {
		p.hosts = DefaultHosts
	}
	if p.timeout <= 0 {
		p.timeout = defaultDialTimeout
	}
	d := &net.Dialer{}
	p.dial = d.DialContext
	return p
}

// Connected reports whether any probe host accepts a TCP connection.
func (p *Prober) Connected(ctx context.Context) bool {
	if !p.skipIfaces && !p.interfaceUp(ctx) {
		p.log.Debug().Msg("netcheck event=no_interface")
		return false
	}
	for _, h := range p.hosts {
		dctx, cancel := context.WithTimeout(ctx, p.timeout)
		conn, err := p.dial(dctx, "tcp", h)
		cancel()
		if err == nil {
			_ = conn.Close()
			return true
		}
		p.log.Debug().Str("host", h).Err(err).Msg("netcheck event=dial_failed")
	}
	return false
}

func (p *Prober) interfaceUp(ctx context.Context) bool {
	ifaces, err := p.interfaces(ctx)
	if err != nil {
		// unknown; let the dial decide
		return true
	}
	for _, iface := range ifaces {
		up, loopback := false, false
		for _, f := range iface.Flags {
			switch f {
			case "up":
				up = true
			case "loopback":
				loopback = true
			}
		}
		if up && !loopback && len(iface.Addrs) > 0 {
			return true
		}
	}
	return false
}

// FreeDiskMB returns the free space of the filesystem holding path.
func (p *Prober) FreeDiskMB(ctx context.Context, path string) (uint64, error) {
	u, err := p.usage(ctx, path)
	if err != nil {
		return 0, err
	}
	return u.Free / (1024 * 1024), nil
}

// DiskOK reports whether path has at least MinFreeDiskMB free. Probe errors
// are logged and treated as OK.
func (p *Prober) DiskOK(ctx context.Context, path string) bool {
	if p.minFreeMB == 0 {
		return true
	}
	free, err := p.FreeDiskMB(ctx, path)
	if err != nil {
		p.log.Warn().Str("path", path).Err(err).Msg("netcheck event=disk_probe_failed")
		return true
	}
	if free < p.minFreeMB {
		p.log.Warn().Uint64("free_mb", free).Uint64("min_mb", p.minFreeMB).Msg("netcheck event=low_disk")
		return false
	}
	return true
}
