package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
)

var (
	ErrLookupDisabled = errors.New("This feature has been disabled")
	ErrInvalidAddress = errors.New("invalid IP address")
)

// Resolver is the subset of net.Resolver used for lookups
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// LookupResult describes one address for the analyst
type LookupResult struct {
	Address   string   `json:"address"`
	Version   int      `json:"version"`
	Private   bool     `json:"private"`
	Loopback  bool     `json:"loopback"`
	Multicast bool     `json:"multicast"`
	Hostnames []string `json:"hostnames"`
	Error     string   `json:"error,omitempty"`
}

// LookupService answers reverse DNS queries when the lookups setting is on
type LookupService struct {
	settings *SettingsService
	resolver Resolver
	timeout  time.Duration
}

func NewLookupService(settings *SettingsService, resolver Resolver) *LookupService {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &LookupService{settings: settings, resolver: resolver, timeout: 5 * time.Second}
}

// Lookup accepts dotted or integer IPv4 as well as IPv6 text
func (s *LookupService) Lookup(ctx context.Context, address string) (*LookupResult, error) {
	if !s.settings.Enabled(ctx, models.SettingLookups) {
		return nil, ErrLookupDisabled
	}

	addr, err := parseLookupAddress(address)
	if err != nil {
		return nil, err
	}

	result := &LookupResult{
		Address:   addr.String(),
		Version:   4,
		Private:   addr.IsPrivate(),
		Loopback:  addr.IsLoopback(),
		Multicast: addr.IsMulticast(),
		Hostnames: []string{},
	}
	if addr.Is6() {
		result.Version = 6
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	names, err := s.resolver.LookupAddr(lookupCtx, addr.String())
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	for _, n := range names {
		result.Hostnames = append(result.Hostnames, strings.TrimSuffix(n, "."))
	}
	return result, nil
}

func parseLookupAddress(s string) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap(), nil
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return models.Uint32ToAddr(uint32(n)), nil
	}
	return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
}
