package ingress

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/ring"
)

// consecutiveErrorThreshold is how many consecutive non-timeout socket
// errors the receive loop tolerates before treating the socket as
// persistently broken (§7).
const consecutiveErrorThreshold = 3

// Receiver owns one multicast UDP socket and publishes every datagram it
// reads into an ingress->decoder SPSC ring, timestamping on arrival. All
// setup failures are fatal and reported to the caller (§7); steady
// state drops are counted, never fatal.
type Receiver struct {
	cfg   Config
	conn  net.PacketConn
	out   *ring.SPSC[model.RawPacket]
	stats *model.Stats

	running    atomic.Bool
	done       chan struct{}
	sequence   uint64
	scratch    model.RawPacket
	onDegraded func()
}

// SetOnDegraded installs fn to be called each time
// consecutiveErrorThreshold consecutive non-timeout socket errors
// accumulate; the count restarts after every call, so persistent errors
// invoke fn repeatedly. fn runs on the receive loop's own goroutine and
// must not block or call Stop synchronously.
func (r *Receiver) SetOnDegraded(fn func()) {
	r.onDegraded = fn
}

// New creates the multicast socket, tunes it, binds, and joins the group.
// Any failure here is fatal and no partial Receiver is returned; the socket
// created here is closed on every failure path before New returns.
func New(cfg Config, out *ring.SPSC[model.RawPacket], stats *model.Stats) (*Receiver, error) {
	groupIP := net.ParseIP(cfg.MulticastGroup).To4()
	if groupIP == nil {
		return nil, fmt.Errorf("ingress: invalid multicast group %q", cfg.MulticastGroup)
	}
	ifaceIP := net.IPv4zero.To4()
	if cfg.InterfaceIP != "" {
		ifaceIP = net.ParseIP(cfg.InterfaceIP).To4()
		if ifaceIP == nil {
			return nil, fmt.Errorf("ingress: invalid interface address %q", cfg.InterfaceIP)
		}
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("ingress: socket: %w", err)
	}
	closeFD := true
	defer func() {
		if closeFD {
			unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, fmt.Errorf("ingress: SO_REUSEADDR: %w", err)
	}
	if cfg.ReceiveBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.ReceiveBufferSize); err != nil {
			return nil, fmt.Errorf("ingress: SO_RCVBUF: %w", err)
		}
	}
	if cfg.EnableTimestamping {
		// Best effort: kernel timestamping support varies; absence of
		// it does not prevent the pipeline from running.
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPNS, 1)
	}

	var bindAddr unix.SockaddrInet4
	bindAddr.Port = int(cfg.Port)
	copy(bindAddr.Addr[:], ifaceIP)
	if err := unix.Bind(fd, &bindAddr); err != nil {
		return nil, fmt.Errorf("ingress: bind: %w", err)
	}

	mreq := &unix.IPMreq{}
	copy(mreq.Multiaddr[:], groupIP)
	copy(mreq.Interface[:], ifaceIP)
	if err := unix.SetsockoptIPMreq(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq); err != nil {
		return nil, fmt.Errorf("ingress: join multicast group: %w", err)
	}

	file := os.NewFile(uintptr(fd), "itchmd-ingress")
	conn, err := net.FilePacketConn(file)
	file.Close() // FilePacketConn dups the descriptor; the original is ours to close.
	if err != nil {
		return nil, fmt.Errorf("ingress: wrap socket: %w", err)
	}
	closeFD = false

	return &Receiver{
		cfg:   cfg,
		conn:  conn,
		out:   out,
		stats: stats,
		done:  make(chan struct{}),
	}, nil
}

// Start begins the receive loop on its own goroutine. It is not safe to
// call Start twice.
func (r *Receiver) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("ingress: already running")
	}
	go r.receiveLoop()
	return nil
}

// Stop requests the receive loop to exit, closes the socket, and waits up
// to four read-timeout cycles for the loop to join.
func (r *Receiver) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	r.conn.Close()
	select {
	case <-r.done:
	case <-time.After(r.cfg.readTimeout() * 4):
	}
}

func (r *Receiver) receiveLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	if r.cfg.CPUAffinity >= 0 {
		_ = pinToCPU(r.cfg.CPUAffinity) // best effort at runtime; startup pinning failures are not fatal here
	}

	timeout := r.cfg.readTimeout()
	consecutiveErrors := 0

	for r.running.Load() {
		_ = r.conn.SetReadDeadline(time.Now().Add(timeout))
		n, _, err := r.conn.ReadFrom(r.scratch.Data[:])
		if err != nil {
			if !r.running.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				consecutiveErrors = 0
				continue
			}
			r.stats.PacketsDropped.Add(1)
			consecutiveErrors++
			if consecutiveErrors >= consecutiveErrorThreshold {
				if r.onDegraded != nil {
					r.onDegraded()
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0
		r.stats.PacketsReceived.Add(1)
		r.sequence++
		r.scratch.Length = n
		r.scratch.LocalTimestamp = uint64(time.Now().UnixNano())
		r.scratch.Sequence = r.sequence

		if !r.out.TryPush(r.scratch) {
			r.stats.PacketsDropped.Add(1)
		}
	}
}

// pinToCPU pins the calling OS thread's scheduling affinity to a single
// core.
func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
