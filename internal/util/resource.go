package util

import "strings"

// ResourceGroupFromID extracts the resource group name from a fully qualified
// Azure resource ID. IDs have the format:
// /subscriptions/<sub>/resourceGroups/<rg>/providers/<ns>/<type>/<name>
// Returns "" if the ID does not carry a resource group segment.
func ResourceGroupFromID(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], "resourceGroups") {
			return parts[i+1]
		}
	}
	return ""
}

// ShortResourceName extracts the resource name from a fully qualified Azure
// resource ID, or returns the input unchanged when it is already a bare name.
func ShortResourceName(id string) string {
	if !strings.HasPrefix(id, "/subscriptions/") {
		return id
	}
	if idx := strings.LastIndex(id, "/"); idx != -1 {
		return id[idx+1:]
	}
	return id
}

// ShortSubscriptionID truncates a subscription GUID for display. Anything
// that does not look like a GUID is returned unchanged.
func ShortSubscriptionID(id string) string {
	if len(id) == 36 && strings.Count(id, "-") == 4 {
		return id[:8]
	}
	return id
}
