package node

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/arkenstone-tel/diameter/transport"
)

const (
	DefaultSendQueueDepth = 64
	defaultPort           = 3868
	defaultSecurePort     = 5868
)

// Config is the top-level TOML configuration for a Node: this node's
// own identity plus the set of peers it knows about up front. Peers
// discovered later (inbound connections from hosts not listed here)
// are governed by AllowUnknownPeers.
type Config struct {
	OriginHost         string   `toml:"origin_host"`
	OriginRealm        string   `toml:"origin_realm"`
	VendorID           uint32   `toml:"vendor_id"`
	ProductName        string   `toml:"product_name"`
	AuthApplicationIDs []uint32 `toml:"auth_application_ids"`
	AcctApplicationIDs []uint32 `toml:"acct_application_ids"`
	HostAddressStrings []string `toml:"host_addresses"`
	ListenAddr         string   `toml:"listen_addr"`
	Protocol           string   `toml:"protocol"` // "tcp" or "sctp"
	AllowUnknownPeers  bool     `toml:"allow_unknown_peers"`

	Peers map[string]PeerConfig `toml:"peer"`
}

// hostAddresses parses HostAddressStrings into the Host-IP-Address AVPs
// this node's CER/CEA must carry (RFC 6733 §5.3.1, mandatory and
// required at least once).
func (c *Config) hostAddresses() []net.IP {
	out := make([]net.IP, 0, len(c.HostAddressStrings))
	for _, s := range c.HostAddressStrings {
		if ip := net.ParseIP(s); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

// PeerConfig describes one statically configured peer.
type PeerConfig struct {
	URI            string `toml:"uri"`
	Persistent     bool   `toml:"persistent"`
	SendQueueDepth int    `toml:"send_queue_depth"`
	FailFast       bool   `toml:"fail_fast"`

	// Populated by ParsePeerURI, not read directly from TOML: aaas://
	// records the peer as requiring TLS. Enforcement is left to the
	// transport the operator configures outside this package.
	RequireTLS bool `toml:"-"`
	Host       string `toml:"-"`
	Port       int    `toml:"-"`
}

// LoadConfig parses a Node configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("node: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses Node configuration from raw TOML bytes.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{Protocol: "tcp"}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("node: parse config: %w", err)
	}
	for name, peer := range cfg.Peers {
		parsed, err := ParsePeerURI(peer.URI)
		if err != nil {
			return nil, fmt.Errorf("node: peer %q: %w", name, err)
		}
		parsed.Persistent = peer.Persistent
		parsed.FailFast = peer.FailFast
		if peer.SendQueueDepth > 0 {
			parsed.SendQueueDepth = peer.SendQueueDepth
		}
		cfg.Peers[name] = parsed
	}
	return cfg, nil
}

// protocol resolves the configured transport, defaulting to TCP.
func (c *Config) protocol() transport.Protocol {
	if c.Protocol == "sctp" {
		return transport.ProtoSCTP
	}
	return transport.ProtoTCP
}

// ParsePeerURI parses a Diameter peer identifier per RFC 6733 §2.7,
// e.g. "aaa://peer.example.com:3868" or "aaas://peer.example.com"
// (secure variant, default port 5868).
func ParsePeerURI(raw string) (PeerConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PeerConfig{}, fmt.Errorf("node: invalid peer uri %q: %w", raw, err)
	}
	cfg := PeerConfig{URI: raw, SendQueueDepth: DefaultSendQueueDepth}
	switch u.Scheme {
	case "aaa":
		cfg.RequireTLS = false
	case "aaas":
		cfg.RequireTLS = true
	default:
		return PeerConfig{}, fmt.Errorf("node: unsupported peer uri scheme %q", u.Scheme)
	}
	cfg.Host = u.Hostname()
	if cfg.Host == "" {
		return PeerConfig{}, fmt.Errorf("node: peer uri %q has no host", raw)
	}
	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return PeerConfig{}, fmt.Errorf("node: peer uri %q has invalid port: %w", raw, err)
		}
		cfg.Port = port
	} else if cfg.RequireTLS {
		cfg.Port = defaultSecurePort
	} else {
		cfg.Port = defaultPort
	}
	return cfg, nil
}

func (p PeerConfig) addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

const defaultDialTimeout = 5 * time.Second
