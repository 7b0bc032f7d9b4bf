package config

import (
	"reflect"
	"testing"
)

func testConfig() *CostfleetConfig {
	return &CostfleetConfig{
		DefaultSubscription: "prod",
		Subscriptions: map[string]SubscriptionConfig{
			"prod": {
				ID:      "11111111-1111-1111-1111-111111111111",
				Alias:   "production",
				Enabled: true,
				Labels:  map[string]string{"env": "prod", "team": "platform"},
			},
			"dev": {
				ID:      "22222222-2222-2222-2222-222222222222",
				Alias:   "dev",
				Enabled: true,
				Labels:  map[string]string{"env": "dev", "team": "platform"},
			},
			"sandbox": {
				ID:      "33333333-3333-3333-3333-333333333333",
				Alias:   "sandbox",
				Enabled: false,
			},
		},
	}
}

func TestIsSubscriptionID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"11111111-1111-1111-1111-111111111111", true},
		{"ABCDEF01-2345-6789-abcd-ef0123456789", true},
		{"prod", false},
		{"11111111-1111-1111-1111", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSubscriptionID(tt.in); got != tt.want {
			t.Errorf("IsSubscriptionID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveSubscriptionsExplicit(t *testing.T) {
	c := testConfig()

	tests := []struct {
		name      string
		selection []string
		want      []string
		wantErr   bool
	}{
		{
			name:      "raw guid passes through",
			selection: []string{"99999999-9999-9999-9999-999999999999"},
			want:      []string{"99999999-9999-9999-9999-999999999999"},
		},
		{
			name:      "config name resolves",
			selection: []string{"dev"},
			want:      []string{"22222222-2222-2222-2222-222222222222"},
		},
		{
			name:      "alias resolves case-insensitively",
			selection: []string{"PRODUCTION"},
			want:      []string{"11111111-1111-1111-1111-111111111111"},
		},
		{
			name:      "disabled subscriptions still resolve when named",
			selection: []string{"sandbox"},
			want:      []string{"33333333-3333-3333-3333-333333333333"},
		},
		{
			name:      "mixed guid and name",
			selection: []string{"dev", "99999999-9999-9999-9999-999999999999"},
			want: []string{
				"22222222-2222-2222-2222-222222222222",
				"99999999-9999-9999-9999-999999999999",
			},
		},
		{
			name:      "unknown name fails",
			selection: []string{"nope"},
			wantErr:   true,
		},
		{
			name:      "whitespace only fails",
			selection: []string{"  "},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ResolveSubscriptions(tt.selection)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveSubscriptionsFallsBackToEnabled(t *testing.T) {
	c := testConfig()

	got, err := c.ResolveSubscriptions(nil)
	if err != nil {
		t.Fatalf("ResolveSubscriptions(nil) error: %v", err)
	}
	// Enabled subs in stable name order: dev, prod
	want := []string{
		"22222222-2222-2222-2222-222222222222",
		"11111111-1111-1111-1111-111111111111",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveSubscriptionsDefaultFallback(t *testing.T) {
	c := &CostfleetConfig{
		DefaultSubscription: "11111111-1111-1111-1111-111111111111",
	}
	got, err := c.ResolveSubscriptions(nil)
	if err != nil {
		t.Fatalf("ResolveSubscriptions(nil) error: %v", err)
	}
	if len(got) != 1 || got[0] != c.DefaultSubscription {
		t.Errorf("got %v, want the default subscription", got)
	}
}

func TestResolveSubscriptionsNothingConfigured(t *testing.T) {
	c := &CostfleetConfig{}
	if _, err := c.ResolveSubscriptions(nil); err == nil {
		t.Error("expected an error with nothing configured and nothing selected")
	}
}

func TestSubscriptionsByLabel(t *testing.T) {
	c := testConfig()

	tests := []struct {
		name   string
		labels map[string]string
		want   int
	}{
		{"team platform matches both enabled", map[string]string{"team": "platform"}, 2},
		{"env narrows to one", map[string]string{"env": "prod"}, 1},
		{"no labels matches all enabled", nil, 2},
		{"impossible combination", map[string]string{"env": "prod", "team": "data"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.SubscriptionsByLabel(tt.labels); len(got) != tt.want {
				t.Errorf("got %d subscriptions, want %d: %v", len(got), tt.want, got)
			}
		})
	}
}

func TestListSubscriptions(t *testing.T) {
	c := testConfig()

	infos := c.ListSubscriptions()
	if len(infos) != 3 {
		t.Fatalf("got %d infos, want 3", len(infos))
	}
	// Stable name order
	if infos[0].Name != "dev" || infos[1].Name != "prod" || infos[2].Name != "sandbox" {
		t.Errorf("unexpected order: %v", infos)
	}
	for _, info := range infos {
		if info.Name == "prod" {
			if !info.Default {
				t.Error("prod should be marked default")
			}
			if info.Alias != "production" {
				t.Errorf("prod alias = %q", info.Alias)
			}
		}
		if info.Name == "sandbox" && info.Enabled {
			t.Error("sandbox should be disabled")
		}
	}
}
