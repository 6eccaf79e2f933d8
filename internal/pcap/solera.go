package pcap

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/eventdesk/eventdesk/internal/models"
)

const soleraTimeLayout = "01.02.2006.15.04.05"

// Solera links to a DeepSee path query on a Solera appliance
type Solera struct{}

func (Solera) Name() string { return "solera" }

func (Solera) URL(event *models.Event, opts Options) (string, error) {
	if opts.BaseURL == "" {
		return "", ErrNotConfigured
	}
	f, err := flowOf(event, opts.window())
	if err != nil {
		return "", err
	}

	segments := []string{
		"timespan", f.start.Format(soleraTimeLayout) + "." + f.end.Format(soleraTimeLayout),
		"ipv4_address", f.src + "_and_" + f.dst,
	}
	if f.proto == models.ProtocolTCP || f.proto == models.ProtocolUDP {
		segments = append(segments, f.proto+"_port", fmt.Sprintf("%d_and_%d", f.srcPort, f.dstPort))
	}
	path := "/" + strings.Join(segments, "/") + "/data.pcap"

	q := url.Values{}
	q.Set("method", "deepsee")
	q.Set("path", path)
	if opts.User != "" {
		q.Set("user", opts.User)
		q.Set("password", opts.Password)
	}
	return strings.TrimRight(opts.BaseURL, "/") + "/ws/pcap?" + q.Encode(), nil
}
