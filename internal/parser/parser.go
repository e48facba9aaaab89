package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/August26/bridgecheck-go/internal/model"
)

// ErrNoEndpoint is returned when a bridge line carries no connectable address.
var ErrNoEndpoint = errors.New("no endpoint in bridge line")

// minLineLength is the shortest line worth looking at ("1.2.3.4:80").
const minLineLength = 10

const defaultWebtunnelPort = 443

var (
	// obfs4: first IPv4:port anywhere in the line.
	obfs4AddrRe = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,3}){3}):(\d+)`)
	// webtunnel: https://host[:port] inside the second field.
	webtunnelURLRe = regexp.MustCompile(`https://([^/:]+)(?::(\d+))?`)
	// vanilla: the first field must be exactly IPv4:port.
	vanillaAddrRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3}){3}):(\d+)$`)
)

// LoadFromFile reads a local bridge list.
func LoadFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("scan input file: %w", err)
	}
	return lines, nil
}

// ReadLines returns the trimmed bridge lines of r. Lines have no length
// limit. Empty lines and lines whose first byte is '#' are ignored.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" && !strings.HasPrefix(raw, "#") {
			if line := strings.TrimSpace(raw); line != "" {
				out = append(out, line)
			}
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// InferTransport guesses the transport of a line from its first field.
// Anything that is not obfs4 or webtunnel is treated as vanilla.
func InferTransport(line string) model.Transport {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return model.TransportVanilla
	}
	switch model.Transport(strings.ToLower(fields[0])) {
	case model.TransportObfs4:
		return model.TransportObfs4
	case model.TransportWebtunnel:
		return model.TransportWebtunnel
	default:
		return model.TransportVanilla
	}
}

// Extract pulls the connectable endpoint out of a bridge line.
//
// The hint is authoritative; TransportAuto (or "") falls back to
// InferTransport. Ports are not range checked.
func Extract(line string, hint model.Transport) (model.Endpoint, error) {
	line = strings.TrimSpace(line)
	if len(line) < minLineLength {
		return model.Endpoint{}, fmt.Errorf("%w: line too short", ErrNoEndpoint)
	}

	t := hint
	if t == "" || t == model.TransportAuto {
		t = InferTransport(line)
	}

	switch t {
	case model.TransportObfs4:
		return extractObfs4(line)
	case model.TransportWebtunnel:
		return extractWebtunnel(line)
	default:
		return extractVanilla(line)
	}
}

func extractObfs4(line string) (model.Endpoint, error) {
	m := obfs4AddrRe.FindStringSubmatch(line)
	if m == nil {
		return model.Endpoint{}, fmt.Errorf("%w: no ipv4:port", ErrNoEndpoint)
	}
	return endpointFrom(m[1], m[2])
}

func extractWebtunnel(line string) (model.Endpoint, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return model.Endpoint{}, fmt.Errorf("%w: missing url field", ErrNoEndpoint)
	}
	m := webtunnelURLRe.FindStringSubmatch(fields[1])
	if m == nil {
		return model.Endpoint{}, fmt.Errorf("%w: no https url", ErrNoEndpoint)
	}
	if m[2] == "" {
		return model.Endpoint{Host: m[1], Port: defaultWebtunnelPort}, nil
	}
	return endpointFrom(m[1], m[2])
}

func extractVanilla(line string) (model.Endpoint, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return model.Endpoint{}, fmt.Errorf("%w: empty line", ErrNoEndpoint)
	}
	m := vanillaAddrRe.FindStringSubmatch(fields[0])
	if m == nil {
		return model.Endpoint{}, fmt.Errorf("%w: first field is not ipv4:port", ErrNoEndpoint)
	}
	return endpointFrom(m[1], m[2])
}

func endpointFrom(host, portStr string) (model.Endpoint, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return model.Endpoint{}, fmt.Errorf("%w: invalid port %q", ErrNoEndpoint, portStr)
	}
	return model.Endpoint{Host: host, Port: port}, nil
}
