package model

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Transport is the pluggable-transport family of a bridge line. It decides
// which extraction rule applies to the line.
type Transport string

const (
	TransportObfs4     Transport = "obfs4"
	TransportWebtunnel Transport = "webtunnel"
	TransportVanilla   Transport = "vanilla"

	// TransportAuto means "infer per line from the first field".
	TransportAuto Transport = "auto"
)

// ParseTransport normalizes a user supplied transport name.
// The empty string maps to TransportAuto.
func ParseTransport(s string) (Transport, bool) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case TransportObfs4:
		return TransportObfs4, true
	case TransportWebtunnel:
		return TransportWebtunnel, true
	case TransportVanilla:
		return TransportVanilla, true
	case TransportAuto, "":
		return TransportAuto, true
	default:
		return "", false
	}
}

// Endpoint is the connectable address extracted from a bridge line.
// Port is taken as parsed, so it may be outside 1-65535; such endpoints
// simply fail to connect.
type Endpoint struct {
	Host string
	Port int
}

// Address returns host:port in a form accepted by net.Dial.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Verdict is the outcome of one bridge line in one run.
type Verdict struct {
	Line      string
	Transport Transport
	Endpoint  Endpoint
	Parsed    bool // false when no endpoint could be extracted
	Alive     bool
	Attempts  int
	LatencyMs int64 // latency of the successful attempt
	Error     string
}

// SourceResult aggregates one source's scan. Working has no guaranteed order.
type SourceResult struct {
	Name         string
	Transport    Transport
	OutputFile   string
	Total        int
	Working      int
	WorkingLines []string
	AvgLatencyMs float64
	Countries    map[string]int // working bridges per ISO country, when geo lookup is enabled
	FetchError   string
}

// RunReport is the collection of per-source results for one run.
type RunReport struct {
	Sources     []SourceResult
	TotalAll    int
	WorkingAll  int
	HealthPct   float64
	Duration    time.Duration
	ArchivePath string
	StartedAt   time.Time
}
