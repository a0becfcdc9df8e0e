package monitor

import (
	"context"
	"time"

	pinglib "github.com/go-ping/ping"
	"github.com/pkg/errors"
)

// ErrNoReply is returned by a Prober when the echo request timed out.
var ErrNoReply = errors.New("no echo reply")

// Prober performs one reachability probe and returns its round-trip time.
type Prober interface {
	Probe(ctx context.Context, ip string, timeout time.Duration) (time.Duration, error)
}

// ICMPProber sends a single ICMP echo per probe with go-ping.
type ICMPProber struct {
	// Privileged selects raw ICMP sockets. Unprivileged mode uses UDP
	// datagram sockets and needs net.ipv4.ping_group_range on linux.
	Privileged bool
}

func NewICMPProber(privileged bool) *ICMPProber {
	return &ICMPProber{Privileged: privileged}
}

func (p *ICMPProber) Probe(ctx context.Context, ip string, timeout time.Duration) (time.Duration, error) {
	pinger, err := pinglib.NewPinger(ip)
	if err != nil {
		return 0, errors.Wrap(err, "new pinger")
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return 0, ctx.Err()
	case err = <-done:
	}
	if err != nil {
		return 0, errors.Wrap(err, "ping "+ip)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, ErrNoReply
	}
	// a single echo, so the average is its round-trip time
	return stats.AvgRtt, nil
}
