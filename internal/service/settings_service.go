package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/pcap"
	"github.com/eventdesk/eventdesk/internal/repository"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSignatureURL is used when signature_lookup is not configured
const DefaultSignatureURL = "http://rootedyour.com/snortsid?sid=$$gid$$-$$sid$$"

type cachedSetting struct {
	value string
	ok    bool
}

// SettingsService reads administrator settings through a short-lived cache
type SettingsService struct {
	repo  *repository.SettingRepository
	cache *expirable.LRU[string, cachedSetting]
}

func NewSettingsService(repo *repository.SettingRepository, ttl time.Duration) *SettingsService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SettingsService{
		repo:  repo,
		cache: expirable.NewLRU[string, cachedSetting](256, nil, ttl),
	}
}

// Get returns a setting value and whether it is set
func (s *SettingsService) Get(ctx context.Context, name string) (string, bool, error) {
	if c, ok := s.cache.Get(name); ok {
		return c.value, c.ok, nil
	}
	value, ok, err := s.repo.Get(ctx, name)
	if err != nil {
		return "", false, err
	}
	s.cache.Add(name, cachedSetting{value: value, ok: ok})
	return value, ok, nil
}

// Set stores a value and drops the cached copy
func (s *SettingsService) Set(ctx context.Context, name, value string) error {
	if err := s.repo.Set(ctx, name, value); err != nil {
		return err
	}
	s.cache.Remove(name)
	return nil
}

func (s *SettingsService) All(ctx context.Context) ([]models.Setting, error) {
	return s.repo.All(ctx)
}

// Enabled treats true/1/yes/on as set; lookup errors read as disabled
func (s *SettingsService) Enabled(ctx context.Context, name string) bool {
	value, ok, err := s.Get(ctx, name)
	if err != nil || !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SignatureURL fills $$sid$$ and $$gid$$ into the configured reference URL
func (s *SettingsService) SignatureURL(ctx context.Context, sig *models.Signature) string {
	tmpl := DefaultSignatureURL
	if value, ok, err := s.Get(ctx, models.SettingSignatureLookup); err == nil && ok && strings.TrimSpace(value) != "" {
		tmpl = strings.TrimSpace(value)
	}
	url := strings.Replace(tmpl, "$$sid$$", strconv.FormatUint(uint64(sig.SigSID), 10), 1)
	return strings.Replace(url, "$$gid$$", strconv.FormatUint(uint64(sig.SigGID), 10), 1)
}

// PacketCapture returns the configured plugin and its options; the plugin is
// nil when packet capture is not set up.
func (s *SettingsService) PacketCapture(ctx context.Context) (pcap.Plugin, pcap.Options, error) {
	var opts pcap.Options
	kind, _, err := s.Get(ctx, models.SettingPacketCaptureType)
	if err != nil {
		return nil, opts, err
	}
	plugin := pcap.Resolve(kind)
	if plugin == nil {
		return nil, opts, nil
	}
	for name, dst := range map[string]*string{
		models.SettingPacketCaptureURL:      &opts.BaseURL,
		models.SettingPacketCaptureUser:     &opts.User,
		models.SettingPacketCapturePassword: &opts.Password,
	} {
		value, _, err := s.Get(ctx, name)
		if err != nil {
			return nil, opts, err
		}
		*dst = value
	}
	return plugin, opts, nil
}
