package azure

import "time"

// VM is a virtual machine as seen by the audit, flattened from the ARM
// representation.
type VM struct {
	// ID is the full ARM resource ID
	ID string `json:"id" yaml:"id"`

	// Name is the resource name
	Name string `json:"name" yaml:"name"`

	// ResourceGroup is derived from the resource ID
	ResourceGroup string `json:"resourceGroup" yaml:"resourceGroup"`

	// Location is the Azure region
	Location string `json:"location" yaml:"location"`

	// Size is the VM size SKU, for example Standard_D4s_v3
	Size string `json:"size" yaml:"size"`

	// PowerState is the instance power state, for example "running",
	// "stopped", or "deallocated". Empty when the instance view was
	// unavailable.
	PowerState string `json:"powerState" yaml:"powerState"`

	// OSType is "Linux" or "Windows"
	OSType string `json:"osType,omitempty" yaml:"osType,omitempty"`
}

// Stopped reports whether the VM is stopped or deallocated. A stopped
// (not deallocated) VM still accrues compute charges.
func (v VM) Stopped() bool {
	return v.PowerState == "stopped" || v.PowerState == "deallocated"
}

// Disk is a managed disk
type Disk struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	ResourceGroup string `json:"resourceGroup" yaml:"resourceGroup"`
	Location      string `json:"location" yaml:"location"`

	// SizeGB is the provisioned disk size
	SizeGB int `json:"sizeGB" yaml:"sizeGB"`

	// SKU is the storage SKU, for example Premium_LRS
	SKU string `json:"sku" yaml:"sku"`

	// State is the disk state, for example "Attached" or "Unattached"
	State string `json:"state" yaml:"state"`

	// ManagedBy is the ARM ID of the owning VM, empty when unattached
	ManagedBy string `json:"managedBy,omitempty" yaml:"managedBy,omitempty"`
}

// Unattached reports whether the disk is provisioned but not bound to any VM
func (d Disk) Unattached() bool {
	return d.ManagedBy == "" && d.State != "Attached" && d.State != "Reserved"
}

// PublicIP is a public IP address resource
type PublicIP struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	ResourceGroup string `json:"resourceGroup" yaml:"resourceGroup"`
	Location      string `json:"location" yaml:"location"`

	// Address is the allocated IP, empty for dynamic IPs not yet bound
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// AllocationMethod is "Static" or "Dynamic"
	AllocationMethod string `json:"allocationMethod" yaml:"allocationMethod"`

	// AttachedTo is the ARM ID of the IP configuration using this address,
	// empty when the IP is orphaned
	AttachedTo string `json:"attachedTo,omitempty" yaml:"attachedTo,omitempty"`
}

// Orphaned reports whether the IP is allocated but not attached to anything.
// Only static orphans bill; dynamic ones release their address.
func (p PublicIP) Orphaned() bool {
	return p.AttachedTo == ""
}

// Subscription is the subset of subscription metadata the CLI surfaces
type Subscription struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
}

// CostSummary is actual spend for one subscription over a period, broken
// down by service.
type CostSummary struct {
	SubscriptionID string    `json:"subscription" yaml:"subscription"`
	From           time.Time `json:"from" yaml:"from"`
	To             time.Time `json:"to" yaml:"to"`

	// Currency is the billing currency reported by Cost Management
	Currency string `json:"currency" yaml:"currency"`

	// TotalSpend is the summed cost over the period
	TotalSpend float64 `json:"totalSpend" yaml:"totalSpend"`

	// ByService maps service name to its spend over the period
	ByService map[string]float64 `json:"byService,omitempty" yaml:"byService,omitempty"`
}

// Total lets spend summaries contribute to the engine's merged roll-up
func (s *CostSummary) Total() float64 { return s.TotalSpend }
