package util

import "testing"

func TestResourceGroupFromID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{
			name:     "vm resource id",
			id:       "/subscriptions/sub-1/resourceGroups/rg-prod/providers/Microsoft.Compute/virtualMachines/vm-1",
			expected: "rg-prod",
		},
		{
			name:     "case insensitive segment",
			id:       "/subscriptions/sub-1/resourcegroups/RG-Dev/providers/Microsoft.Network/publicIPAddresses/ip-1",
			expected: "RG-Dev",
		},
		{
			name:     "no resource group",
			id:       "/subscriptions/sub-1/providers/Microsoft.Consumption/budgets/b1",
			expected: "",
		},
		{
			name:     "empty",
			id:       "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResourceGroupFromID(tt.id); got != tt.expected {
				t.Errorf("ResourceGroupFromID(%q) = %q, want %q", tt.id, got, tt.expected)
			}
		})
	}
}

func TestShortResourceName(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{
			name:     "full resource id",
			id:       "/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.Compute/disks/data-disk-3",
			expected: "data-disk-3",
		},
		{
			name:     "bare name unchanged",
			id:       "vm-web-01",
			expected: "vm-web-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortResourceName(tt.id); got != tt.expected {
				t.Errorf("ShortResourceName(%q) = %q, want %q", tt.id, got, tt.expected)
			}
		})
	}
}

func TestShortSubscriptionID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected string
	}{
		{
			name:     "guid truncated",
			id:       "12345678-abcd-ef01-2345-67890abcdef0",
			expected: "12345678",
		},
		{
			name:     "alias unchanged",
			id:       "prod-main",
			expected: "prod-main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortSubscriptionID(tt.id); got != tt.expected {
				t.Errorf("ShortSubscriptionID(%q) = %q, want %q", tt.id, got, tt.expected)
			}
		})
	}
}
