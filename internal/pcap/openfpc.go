package pcap

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/eventdesk/eventdesk/internal/models"
)

// OpenFPC links to the OpenFPC CGI fetch action
type OpenFPC struct{}

func (OpenFPC) Name() string { return "openfpc" }

func (OpenFPC) URL(event *models.Event, opts Options) (string, error) {
	if opts.BaseURL == "" {
		return "", ErrNotConfigured
	}
	f, err := flowOf(event, opts.window())
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("action", "fetch")
	q.Set("filetype", "pcap")
	if opts.User != "" {
		q.Set("user", opts.User)
		q.Set("password", opts.Password)
	}
	q.Set("srcip", f.src)
	q.Set("dstip", f.dst)
	if f.srcPort != 0 {
		q.Set("srcport", strconv.Itoa(f.srcPort))
	}
	if f.dstPort != 0 {
		q.Set("dstport", strconv.Itoa(f.dstPort))
	}
	if f.protoNumber != 0 {
		q.Set("proto", strconv.Itoa(f.protoNumber))
	}
	q.Set("timestamp", strconv.FormatInt(f.at.Unix(), 10))
	q.Set("stime", strconv.FormatInt(f.start.Unix(), 10))
	q.Set("etime", strconv.FormatInt(f.end.Unix(), 10))

	sep := "?"
	if strings.Contains(opts.BaseURL, "?") {
		sep = "&"
	}
	return opts.BaseURL + sep + q.Encode(), nil
}
