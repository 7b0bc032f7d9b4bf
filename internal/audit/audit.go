// Package audit turns raw Azure inventory into waste findings: stopped VMs
// that still bill, managed disks nothing owns, and public IPs attached to
// nothing. Each report carries monthly and annual USD estimates and
// implements the engine's Totaler so per-subscription waste merges into one
// fleet-wide number.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/aryankumar/costfleet/internal/azure"
)

// Options narrows what an audit looks at
type Options struct {
	// Regions restricts findings to these locations; empty means all
	Regions []string

	// IncludePVC counts Kubernetes persistent-volume disks (name pvc-*)
	// as waste. Off by default: a PVC disk is usually released on purpose
	// and reclaimed by its claim.
	IncludePVC bool

	// IncludeAKSManaged counts disks in MC_* resource groups as waste.
	// Off by default: AKS owns those groups.
	IncludeAKSManaged bool
}

func (o Options) wantRegion(location string) bool {
	if len(o.Regions) == 0 {
		return true
	}
	for _, r := range o.Regions {
		if strings.EqualFold(r, location) {
			return true
		}
	}
	return false
}

// VMFinding is one stopped VM with its cost estimate
type VMFinding struct {
	azure.VM    `yaml:",inline"`
	MonthlyCost float64 `json:"monthlyCost" yaml:"monthlyCost"`
}

// VMReport is the stopped-VM audit for one subscription
type VMReport struct {
	SubscriptionID string      `json:"subscription" yaml:"subscription"`
	StoppedVMs     []VMFinding `json:"stoppedVMs" yaml:"stoppedVMs"`
	MonthlyWaste   float64     `json:"monthlyWaste" yaml:"monthlyWaste"`
	AnnualWaste    float64     `json:"annualWaste" yaml:"annualWaste"`
}

// Total implements the engine's merged-summary contract
func (r *VMReport) Total() float64 { return r.MonthlyWaste }

// DiskCategory labels why an unattached disk was or was not counted
type DiskCategory string

const (
	// DiskOrphaned disks have no owner and no excuse
	DiskOrphaned DiskCategory = "orphaned"
	// DiskPVC disks belong to a Kubernetes persistent volume claim
	DiskPVC DiskCategory = "pvc"
	// DiskAKSManaged disks live in an AKS-managed resource group
	DiskAKSManaged DiskCategory = "aks_managed"
)

// DiskFinding is one unattached disk with its cost estimate
type DiskFinding struct {
	azure.Disk  `yaml:",inline"`
	Category    DiskCategory `json:"category" yaml:"category"`
	MonthlyCost float64      `json:"monthlyCost" yaml:"monthlyCost"`
}

// DiskReport is the unattached-disk audit for one subscription. Counted
// findings contribute to the waste totals; excluded ones are listed so the
// reader can see what the filters hid.
type DiskReport struct {
	SubscriptionID  string        `json:"subscription" yaml:"subscription"`
	Unattached      []DiskFinding `json:"unattached" yaml:"unattached"`
	Excluded        []DiskFinding `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	MonthlyWaste    float64       `json:"monthlyWaste" yaml:"monthlyWaste"`
	AnnualWaste     float64       `json:"annualWaste" yaml:"annualWaste"`
	Recommendations []string      `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// Total implements the engine's merged-summary contract
func (r *DiskReport) Total() float64 { return r.MonthlyWaste }

// IPFinding is one orphaned public IP with its cost estimate
type IPFinding struct {
	azure.PublicIP `yaml:",inline"`
	MonthlyCost    float64 `json:"monthlyCost" yaml:"monthlyCost"`
}

// IPReport is the orphaned-IP audit for one subscription
type IPReport struct {
	SubscriptionID string      `json:"subscription" yaml:"subscription"`
	Orphaned       []IPFinding `json:"orphaned" yaml:"orphaned"`
	MonthlyWaste   float64     `json:"monthlyWaste" yaml:"monthlyWaste"`
	AnnualWaste    float64     `json:"annualWaste" yaml:"annualWaste"`
}

// Total implements the engine's merged-summary contract
func (r *IPReport) Total() float64 { return r.MonthlyWaste }

// FullReport combines all three audits for one subscription
type FullReport struct {
	SubscriptionID string      `json:"subscription" yaml:"subscription"`
	VMs            *VMReport   `json:"vms" yaml:"vms"`
	Disks          *DiskReport `json:"disks" yaml:"disks"`
	IPs            *IPReport   `json:"ips" yaml:"ips"`
	MonthlyWaste   float64     `json:"monthlyWaste" yaml:"monthlyWaste"`
	AnnualWaste    float64     `json:"annualWaste" yaml:"annualWaste"`
}

// Total implements the engine's merged-summary contract
func (r *FullReport) Total() float64 { return r.MonthlyWaste }

// Auditor runs waste audits against one API client. It is stateless and safe
// for concurrent use across subscriptions.
type Auditor struct {
	api    azure.API
	logger *slog.Logger
}

// New creates an auditor over the given API
func New(api azure.API, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{api: api, logger: logger}
}

// StoppedVMs finds VMs that are stopped or deallocated. Stopped-but-not-
// deallocated VMs still accrue compute charges, which makes them the
// highest-value finding.
func (a *Auditor) StoppedVMs(ctx context.Context, subscriptionID string, opts Options) (*VMReport, error) {
	vms, err := a.api.ListVMs(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	report := &VMReport{
		SubscriptionID: subscriptionID,
		StoppedVMs:     []VMFinding{},
	}
	for _, vm := range vms {
		if !vm.Stopped() || !opts.wantRegion(vm.Location) {
			continue
		}
		cost := EstimateVMMonthlyCost(vm.Size)
		report.StoppedVMs = append(report.StoppedVMs, VMFinding{VM: vm, MonthlyCost: cost})
		report.MonthlyWaste += cost
	}
	report.MonthlyWaste = round2(report.MonthlyWaste)
	report.AnnualWaste = round2(report.MonthlyWaste * 12)

	a.logger.Debug("stopped vm audit done",
		"subscription", subscriptionID,
		"total_vms", len(vms),
		"stopped", len(report.StoppedVMs),
		"monthly_waste", report.MonthlyWaste)

	return report, nil
}

// UnattachedDisks finds managed disks no VM owns. PVC and AKS-managed disks
// are categorized separately and excluded from the totals unless opted in.
func (a *Auditor) UnattachedDisks(ctx context.Context, subscriptionID string, opts Options) (*DiskReport, error) {
	disks, err := a.api.ListDisks(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	report := &DiskReport{
		SubscriptionID: subscriptionID,
		Unattached:     []DiskFinding{},
	}
	for _, d := range disks {
		if !d.Unattached() || !opts.wantRegion(d.Location) {
			continue
		}

		f := DiskFinding{
			Disk:        d,
			Category:    categorizeDisk(d),
			MonthlyCost: round2(EstimateDiskMonthlyCost(d.SizeGB, d.SKU)),
		}

		counted := f.Category == DiskOrphaned ||
			(f.Category == DiskPVC && opts.IncludePVC) ||
			(f.Category == DiskAKSManaged && opts.IncludeAKSManaged)
		if counted {
			report.Unattached = append(report.Unattached, f)
			report.MonthlyWaste += f.MonthlyCost
		} else {
			report.Excluded = append(report.Excluded, f)
		}
	}
	report.MonthlyWaste = round2(report.MonthlyWaste)
	report.AnnualWaste = round2(report.MonthlyWaste * 12)
	report.Recommendations = diskRecommendations(report)

	a.logger.Debug("unattached disk audit done",
		"subscription", subscriptionID,
		"total_disks", len(disks),
		"counted", len(report.Unattached),
		"excluded", len(report.Excluded),
		"monthly_waste", report.MonthlyWaste)

	return report, nil
}

// OrphanedIPs finds public IPs attached to no IP configuration
func (a *Auditor) OrphanedIPs(ctx context.Context, subscriptionID string, opts Options) (*IPReport, error) {
	ips, err := a.api.ListPublicIPs(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	report := &IPReport{
		SubscriptionID: subscriptionID,
		Orphaned:       []IPFinding{},
	}
	for _, ip := range ips {
		if !ip.Orphaned() || !opts.wantRegion(ip.Location) {
			continue
		}
		cost := EstimatePublicIPMonthlyCost(ip.AllocationMethod, ip.Address != "")
		report.Orphaned = append(report.Orphaned, IPFinding{PublicIP: ip, MonthlyCost: cost})
		report.MonthlyWaste += cost
	}
	report.MonthlyWaste = round2(report.MonthlyWaste)
	report.AnnualWaste = round2(report.MonthlyWaste * 12)

	a.logger.Debug("orphaned ip audit done",
		"subscription", subscriptionID,
		"total_ips", len(ips),
		"orphaned", len(report.Orphaned),
		"monthly_waste", report.MonthlyWaste)

	return report, nil
}

// Everything runs all three audits against one subscription. The first
// upstream failure aborts the whole audit so the engine can classify it.
func (a *Auditor) Everything(ctx context.Context, subscriptionID string, opts Options) (*FullReport, error) {
	vms, err := a.StoppedVMs(ctx, subscriptionID, opts)
	if err != nil {
		return nil, err
	}
	disks, err := a.UnattachedDisks(ctx, subscriptionID, opts)
	if err != nil {
		return nil, err
	}
	ips, err := a.OrphanedIPs(ctx, subscriptionID, opts)
	if err != nil {
		return nil, err
	}

	monthly := round2(vms.MonthlyWaste + disks.MonthlyWaste + ips.MonthlyWaste)
	return &FullReport{
		SubscriptionID: subscriptionID,
		VMs:            vms,
		Disks:          disks,
		IPs:            ips,
		MonthlyWaste:   monthly,
		AnnualWaste:    round2(monthly * 12),
	}, nil
}

func categorizeDisk(d azure.Disk) DiskCategory {
	switch {
	case strings.HasPrefix(d.Name, "pvc-"):
		return DiskPVC
	case strings.HasPrefix(d.ResourceGroup, "MC_"):
		return DiskAKSManaged
	default:
		return DiskOrphaned
	}
}

func diskRecommendations(r *DiskReport) []string {
	var recs []string

	orphanCount := 0
	orphanCost := 0.0
	for _, f := range r.Unattached {
		if f.Category == DiskOrphaned {
			orphanCount++
			orphanCost += f.MonthlyCost
		}
	}
	if orphanCount > 0 {
		recs = append(recs, fmt.Sprintf("Delete %d orphaned disks to save $%.2f/month", orphanCount, orphanCost))
	}

	pvc, aks := 0, 0
	for _, f := range r.Excluded {
		switch f.Category {
		case DiskPVC:
			pvc++
		case DiskAKSManaged:
			aks++
		}
	}
	if pvc > 0 {
		recs = append(recs, fmt.Sprintf("Review %d PVC disks for potential cleanup", pvc))
	}
	if aks > 0 {
		recs = append(recs, fmt.Sprintf("Verify %d AKS-managed disks are still needed", aks))
	}

	for _, f := range r.Unattached {
		if f.SizeGB > 500 {
			recs = append(recs, fmt.Sprintf("Large disk %q (%dGB) - verify if needed", f.Name, f.SizeGB))
		}
	}

	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
