package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"salonledger/internal/config"
)

func TestValidateSecurityConfig(t *testing.T) {
	strong := "0123456789abcdef0123456789abcdef"

	cases := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "short secret", cfg: config.Config{AuthSecret: "short"}, wantErr: true},
		{name: "missing secret in production", cfg: config.Config{Environment: "production", AllowedOrigin: "https://salon.example"}, wantErr: true},
		{name: "wildcard origin in production", cfg: config.Config{Environment: "production", AuthSecret: strong, AllowedOrigin: "*"}, wantErr: true},
		{name: "tax above 100", cfg: config.Config{AuthSecret: strong, DefaultTaxPercent: 150}, wantErr: true},
		{name: "missing secret in development", cfg: config.Config{Environment: "development"}},
		{name: "strong production config", cfg: config.Config{Environment: "production", AuthSecret: strong, AllowedOrigin: "https://salon.example", DefaultTaxPercent: 15}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSecurityConfig(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
