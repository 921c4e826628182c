package main

import (
	"testing"

	"github.com/verger/graphset/internal/config"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"netset-url", "netset-url"},
		{"netset_url", "netset-url"},
		{"NETSET-URL", "netset-url"},
		{"Rate_Limit", "rate-limit"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeKey(tt.input); got != tt.want {
				t.Errorf("normalizeKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfigValue(t *testing.T) {
	cfg := &config.Config{
		DataHome:  "/data",
		NetSetURL: "https://example.org",
		Timeout:   30,
		RateLimit: 2.5,
	}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"data-home", "/data", true},
		{"netset-url", "https://example.org", true},
		{"konect-url", "", true},
		{"timeout", "30", true},
		{"rate-limit", "2.5", true},
		{"nonsense", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := configValue(cfg, tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("configValue(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(*config.Config) bool
	}{
		{
			name:  "endpoint",
			key:   "netset-url",
			value: "https://mirror.example.org",
			check: func(c *config.Config) bool { return c.NetSetURL == "https://mirror.example.org" },
		},
		{
			name:    "bad endpoint",
			key:     "konect-url",
			value:   "not-a-url",
			wantErr: true,
		},
		{
			name:  "timeout",
			key:   "timeout",
			value: "45",
			check: func(c *config.Config) bool { return c.Timeout == 45 },
		},
		{
			name:    "non-numeric timeout",
			key:     "timeout",
			value:   "soon",
			wantErr: true,
		},
		{
			name:    "negative timeout",
			key:     "timeout",
			value:   "-5",
			wantErr: true,
		},
		{
			name:  "rate limit",
			key:   "rate-limit",
			value: "0.5",
			check: func(c *config.Config) bool { return c.RateLimit == 0.5 },
		},
		{
			name:    "negative rate limit",
			key:     "rate-limit",
			value:   "-1",
			wantErr: true,
		},
		{
			name:    "unknown key",
			key:     "nonsense",
			value:   "x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			err := setConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("setConfigValue(%q, %q) error = %v, wantErr = %v", tt.key, tt.value, err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("value not applied: %+v", cfg)
			}
		})
	}
}
