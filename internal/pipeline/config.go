// Package pipeline orchestrates the three stages — ingress, decoder,
// dispatcher — behind a single Start/Stop lifecycle and a read-only
// Statistics snapshot, with one ingress feeding one decoder feeding N
// dynamically registered subscribers.
package pipeline

import (
	"fmt"
	"net"
	"time"

	"github.com/flowmd/itchmd/internal/decoder"
	"github.com/flowmd/itchmd/internal/dispatcher"
	"github.com/flowmd/itchmd/internal/ingress"
)

// Config is the pipeline's full configuration surface: the union of
// §6's enumerated ingress/decoder/dispatcher options plus ring
// sizing, loaded via viper in cmd/itchmd.
type Config struct {
	MulticastGroup       string        `mapstructure:"multicast_group"`
	InterfaceIP          string        `mapstructure:"interface_ip"`
	Port                 uint16        `mapstructure:"port"`
	ReceiveBufferSize    int           `mapstructure:"receive_buffer_size"`
	EnableTimestamping   bool          `mapstructure:"enable_timestamping"`
	IngressCPU           int           `mapstructure:"ingress_cpu"`
	DecoderCPU           int           `mapstructure:"decoder_cpu"`
	DispatcherCPU        int           `mapstructure:"dispatcher_cpu"`
	MaxMessagesPerPacket int           `mapstructure:"max_messages_per_packet"`
	IngressRingCapacity  uint64        `mapstructure:"ingress_ring_capacity"`
	DecoderRingCapacity  uint64        `mapstructure:"decoder_ring_capacity"`
	SubscriberRingCapacity uint64      `mapstructure:"subscriber_ring_capacity"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	ParserName           string        `mapstructure:"parser"`
}

// DefaultConfig mirrors §6's configuration surface with
// unpinned affinity and modestly sized rings, suitable for local testing.
func DefaultConfig() Config {
	return Config{
		MulticastGroup:         "239.1.1.1",
		InterfaceIP:            "",
		Port:                   9001,
		ReceiveBufferSize:      4 * 1024 * 1024,
		EnableTimestamping:     false,
		IngressCPU:             -1,
		DecoderCPU:             -1,
		DispatcherCPU:          -1,
		MaxMessagesPerPacket:   64,
		IngressRingCapacity:    4096,
		DecoderRingCapacity:    4096,
		SubscriberRingCapacity: 1024,
		ReadTimeout:            100 * time.Millisecond,
		ParserName:             "itch5.0",
	}
}

// Validate reports a configuration error (bad address, bad port, a ring
// capacity that isn't a power of two) before any socket or ring is
// constructed, so a bad config fails fast at load time rather than
// panicking inside New (§7).
func (c Config) Validate() error {
	if net.ParseIP(c.MulticastGroup).To4() == nil {
		return fmt.Errorf("invalid multicast group %q", c.MulticastGroup)
	}
	if c.InterfaceIP != "" && net.ParseIP(c.InterfaceIP).To4() == nil {
		return fmt.Errorf("invalid interface address %q", c.InterfaceIP)
	}
	if c.Port == 0 {
		return fmt.Errorf("port must be in 1-65535, got %d", c.Port)
	}
	if err := validatePowerOfTwoCapacity("ingress_ring_capacity", c.IngressRingCapacity); err != nil {
		return err
	}
	if err := validatePowerOfTwoCapacity("decoder_ring_capacity", c.DecoderRingCapacity); err != nil {
		return err
	}
	if err := validatePowerOfTwoCapacity("subscriber_ring_capacity", c.SubscriberRingCapacity); err != nil {
		return err
	}
	return nil
}

// validatePowerOfTwoCapacity accepts 0 (meaning "unset, fall back to the
// default") alongside any power of two >= 2, matching ring.NewSPSC's own
// requirement.
func validatePowerOfTwoCapacity(name string, capacity uint64) error {
	if capacity == 0 {
		return nil
	}
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return fmt.Errorf("%s must be a power of two >= 2, got %d", name, capacity)
	}
	return nil
}

func (c Config) ingressConfig() ingress.Config {
	return ingress.Config{
		MulticastGroup:     c.MulticastGroup,
		InterfaceIP:        c.InterfaceIP,
		Port:               c.Port,
		ReceiveBufferSize:  c.ReceiveBufferSize,
		EnableTimestamping: c.EnableTimestamping,
		CPUAffinity:        c.IngressCPU,
		RingCapacity:       c.IngressRingCapacity,
		ReadTimeout:        c.ReadTimeout,
	}
}

func (c Config) decoderConfig() decoder.Config {
	return decoder.Config{
		MaxMessagesPerPacket: c.MaxMessagesPerPacket,
		CPUAffinity:          c.DecoderCPU,
	}
}

func (c Config) dispatcherConfig() dispatcher.Config {
	return dispatcher.Config{
		SubscriberRingCapacity: c.SubscriberRingCapacity,
		CPUAffinity:            c.DispatcherCPU,
	}
}
