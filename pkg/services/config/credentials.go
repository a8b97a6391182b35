package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"gopkg.in/ini.v1"
)

var ErrProfileNotFound = errors.New("profile not found")

// Registry reads upstream credentials from an ini file shaped like
//
//	[DEFAULT]
//	host       = https://apis.biodataweb.net/ImagemCor544/biodata
//	sac_id     = 544
//	session_id = ...
//	auth_token = ...
//
// A literal `cookie` key takes precedence over session_id/auth_token.
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetCredentials(ctx context.Context, profile string) (*domain.Credentials, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials file %s: %w", path, err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetCredentials(_ context.Context, profile string) (*domain.Credentials, error) {
	section, err := cr.cfg.GetSection(profile)
	if err != nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}

	host := strings.TrimRight(section.Key("host").String(), "/")
	if host == "" {
		return nil, fmt.Errorf("profile %s: host is required", profile)
	}

	cookie := section.Key("cookie").String()
	if cookie == "" {
		cookie = buildCookie(section.Key("session_id").String(), section.Key("auth_token").String())
	}

	return &domain.Credentials{
		Profile: section.Name(),
		Host:    host,
		SacID:   section.Key("sac_id").String(),
		Cookie:  cookie,
	}, nil
}

func buildCookie(sessionID, authToken string) string {
	var parts []string
	if sessionID != "" {
		parts = append(parts, "ASP.NET_SessionId="+sessionID)
	}
	if authToken != "" {
		parts = append(parts, ".ASPXAUTH="+authToken)
	}
	return strings.Join(parts, "; ")
}
