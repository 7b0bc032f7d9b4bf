package audit

import "strings"

// Rough monthly list prices in USD. Actual rates vary by region and
// reservation; these exist to rank findings, not to bill anyone.
var vmMonthlyCost = map[string]float64{
	// B-series (burstable)
	"Standard_B1s":  7.59,
	"Standard_B1ms": 15.18,
	"Standard_B2s":  30.37,
	"Standard_B2ms": 60.74,
	"Standard_B4ms": 121.47,
	"Standard_B8ms": 242.94,

	// D-series (general purpose)
	"Standard_D2s_v3":  96.36,
	"Standard_D4s_v3":  192.72,
	"Standard_D8s_v3":  385.44,
	"Standard_D16s_v3": 770.88,
	"Standard_D32s_v3": 1541.76,

	// E-series (memory optimized)
	"Standard_E2s_v3":  126.29,
	"Standard_E4s_v3":  252.58,
	"Standard_E8s_v3":  505.15,
	"Standard_E16s_v3": 1010.30,

	// F-series (compute optimized)
	"Standard_F2s_v2":  85.41,
	"Standard_F4s_v2":  170.82,
	"Standard_F8s_v2":  341.64,
	"Standard_F16s_v2": 683.28,
}

// sizePattern estimates for SKUs not in the table, matched in order
var sizePatterns = []struct {
	substr string
	cost   float64
}{
	{"B1", 15.0},
	{"B2", 30.0},
	{"B4", 120.0},
	{"D2", 100.0}, {"E2", 100.0}, {"F2", 100.0},
	{"D4", 200.0}, {"E4", 200.0}, {"F4", 200.0},
	{"D8", 400.0}, {"E8", 400.0}, {"F8", 400.0},
	{"D16", 800.0}, {"E16", 800.0}, {"F16", 800.0},
}

const defaultVMMonthlyCost = 150.0

// EstimateVMMonthlyCost returns a rough monthly USD cost for a VM size.
// Unknown sizes fall back to a family-pattern estimate, then a flat default.
func EstimateVMMonthlyCost(size string) float64 {
	if cost, ok := vmMonthlyCost[size]; ok {
		return cost
	}
	for _, p := range sizePatterns {
		if strings.Contains(size, p.substr) {
			return p.cost
		}
	}
	return defaultVMMonthlyCost
}

// Monthly USD per provisioned GB by storage SKU
var diskCostPerGB = map[string]float64{
	"Standard_LRS":    0.05,
	"StandardSSD_LRS": 0.08,
	"Premium_LRS":     0.15,
	"UltraSSD_LRS":    0.30,
}

const defaultDiskCostPerGB = 0.05

// EstimateDiskMonthlyCost returns a rough monthly USD cost for a managed disk
func EstimateDiskMonthlyCost(sizeGB int, sku string) float64 {
	rate, ok := diskCostPerGB[sku]
	if !ok {
		rate = defaultDiskCostPerGB
	}
	return float64(sizeGB) * rate
}

// Public IP hourly list prices extended to a 730-hour month. A dynamic IP
// that is unattached holds no address and costs nothing.
const (
	staticIPMonthlyCost  = 3.65
	dynamicIPMonthlyCost = 2.92
)

// EstimatePublicIPMonthlyCost returns a rough monthly USD cost for an
// allocated public IP.
func EstimatePublicIPMonthlyCost(allocationMethod string, hasAddress bool) float64 {
	switch {
	case strings.EqualFold(allocationMethod, "Static"):
		return staticIPMonthlyCost
	case hasAddress:
		return dynamicIPMonthlyCost
	default:
		return 0
	}
}
