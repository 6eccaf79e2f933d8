// Package pcap builds retrieval links for full packet capture appliances.
// Each supported appliance is a Plugin selected by the packet_capture_type setting.
package pcap

import (
	"errors"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
)

// DefaultWindow is how far either side of the alert timestamp to search
const DefaultWindow = 5 * time.Minute

var (
	ErrNotConfigured = errors.New("packet capture is not configured")
	ErrNoIPHeader    = errors.New("event has no IP header")
)

// Plugin implementations:
//   - OpenFPC (openfpc)
//   - Solera DeepSee (solera)
type Plugin interface {
	Name() string
	URL(event *models.Event, opts Options) (string, error)
}

// Options come from the packet_capture_* settings plus per-request overrides
type Options struct {
	BaseURL  string
	User     string
	Password string
	// Window widens the time range around the alert; zero uses DefaultWindow
	Window time.Duration
}

func (o Options) window() time.Duration {
	if o.Window <= 0 {
		return DefaultWindow
	}
	return o.Window
}

// Resolve returns the plugin named by the setting value, nil when unset or unknown
func Resolve(name string) Plugin {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openfpc":
		return OpenFPC{}
	case "solera":
		return Solera{}
	default:
		return nil
	}
}

// flow is the 5-tuple both appliances filter on
type flow struct {
	src, dst         string
	srcPort, dstPort int
	proto            string
	protoNumber      int
	start, end       time.Time
	at               time.Time
}

func flowOf(event *models.Event, window time.Duration) (flow, error) {
	if event.IP == nil {
		return flow{}, ErrNoIPHeader
	}
	f := flow{
		src:     event.SourceIP(),
		dst:     event.DestinationIP(),
		srcPort: event.SourcePort(),
		dstPort: event.DestinationPort(),
		proto:   event.Protocol(),
		at:      event.Timestamp.UTC(),
		start:   event.Timestamp.UTC().Add(-window),
		end:     event.Timestamp.UTC().Add(window),
	}
	switch f.proto {
	case models.ProtocolTCP:
		f.protoNumber = 6
	case models.ProtocolUDP:
		f.protoNumber = 17
	case models.ProtocolICMP:
		f.protoNumber = 1
	}
	return f, nil
}
