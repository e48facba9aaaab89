package geo

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/August26/bridgecheck-go/internal/model"
)

var (
	ErrNotIP   = errors.New("host is not an ip address")
	ErrPrivate = errors.New("private or loopback address")
)

// MaxMind resolves IPs against a local GeoLite2/GeoIP2 City or Country
// database. Safe for concurrent use.
type MaxMind struct {
	db *geoip2.Reader
}

func Open(path string) (*MaxMind, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return &MaxMind{db: db}, nil
}

func (m *MaxMind) Close() error {
	return m.db.Close()
}

// Lookup accepts only literal public IPs; webtunnel hostnames are not resolved.
func (m *MaxMind) Lookup(host string) (model.GeoInfo, error) {
	ip, err := publicIP(host)
	if err != nil {
		return model.GeoInfo{}, err
	}

	// City databases answer both queries, Country databases only the second.
	if city, err := m.db.City(ip); err == nil {
		return model.GeoInfo{
			Country: city.Country.IsoCode,
			City:    city.City.Names["en"],
		}, nil
	}
	country, err := m.db.Country(ip)
	if err != nil {
		return model.GeoInfo{}, fmt.Errorf("lookup %s: %w", host, err)
	}
	return model.GeoInfo{Country: country.Country.IsoCode}, nil
}

func publicIP(host string) (net.IP, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, ErrNotIP
	}
	if isPrivateIP(ip) {
		return nil, ErrPrivate
	}
	return ip, nil
}

func isPrivateIP(ip net.IP) bool {
	// 10/8, 172.16/12, 192.168/16, link-local, loopback, unspecified
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
