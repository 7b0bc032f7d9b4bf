package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var subscriptionIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsSubscriptionID reports whether s looks like an Azure subscription GUID
func IsSubscriptionID(s string) bool {
	return subscriptionIDPattern.MatchString(s)
}

// ResolveSubscriptions turns a user selection into subscription IDs.
// Selection entries may be raw GUIDs or names/aliases from the config file.
// An empty selection falls back to the enabled configured subscriptions, then
// to the default subscription.
func (c *CostfleetConfig) ResolveSubscriptions(selection []string) ([]string, error) {
	if len(selection) > 0 {
		ids := make([]string, 0, len(selection))
		for _, s := range selection {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if IsSubscriptionID(s) {
				ids = append(ids, s)
				continue
			}
			id, ok := c.lookup(s)
			if !ok {
				return nil, fmt.Errorf("subscription %q is neither a GUID nor a configured name", s)
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("subscription selection is empty")
		}
		return ids, nil
	}

	if enabled := c.EnabledSubscriptions(); len(enabled) > 0 {
		return enabled, nil
	}

	if c.DefaultSubscription != "" {
		if IsSubscriptionID(c.DefaultSubscription) {
			return []string{c.DefaultSubscription}, nil
		}
		if id, ok := c.lookup(c.DefaultSubscription); ok {
			return []string{id}, nil
		}
		return nil, fmt.Errorf("default subscription %q is neither a GUID nor a configured name", c.DefaultSubscription)
	}

	return nil, fmt.Errorf("no subscriptions selected: pass --subscriptions or configure some")
}

// lookup finds a subscription ID by config name or alias
func (c *CostfleetConfig) lookup(name string) (string, bool) {
	if sub, ok := c.Subscriptions[name]; ok && sub.ID != "" {
		return sub.ID, true
	}
	for _, sub := range c.Subscriptions {
		if strings.EqualFold(sub.Alias, name) && sub.ID != "" {
			return sub.ID, true
		}
	}
	return "", false
}

// EnabledSubscriptions returns the IDs of enabled subscriptions in stable
// name order.
func (c *CostfleetConfig) EnabledSubscriptions() []string {
	if len(c.Subscriptions) == 0 {
		return nil
	}

	names := make([]string, 0, len(c.Subscriptions))
	for name, sub := range c.Subscriptions {
		if sub.Enabled && sub.ID != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = c.Subscriptions[name].ID
	}
	return ids
}

// SubscriptionsByLabel returns the IDs of enabled subscriptions matching all
// the required labels, in stable name order.
func (c *CostfleetConfig) SubscriptionsByLabel(labels map[string]string) []string {
	if len(c.Subscriptions) == 0 {
		return nil
	}

	names := make([]string, 0, len(c.Subscriptions))
	for name, sub := range c.Subscriptions {
		if sub.Enabled && sub.ID != "" && matchesLabels(sub.Labels, labels) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = c.Subscriptions[name].ID
	}
	return ids
}

// ListSubscriptions returns every configured subscription in stable name
// order, for the subscription list command.
func (c *CostfleetConfig) ListSubscriptions() []SubscriptionInfo {
	names := make([]string, 0, len(c.Subscriptions))
	for name := range c.Subscriptions {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]SubscriptionInfo, 0, len(names))
	for _, name := range names {
		sub := c.Subscriptions[name]
		alias := sub.Alias
		if alias == "" {
			alias = name
		}
		infos = append(infos, SubscriptionInfo{
			Name:    name,
			ID:      sub.ID,
			Alias:   alias,
			Labels:  sub.Labels,
			Enabled: sub.Enabled,
			Default: name == c.DefaultSubscription || sub.ID == c.DefaultSubscription,
		})
	}
	return infos
}

// matchesLabels checks if subscription labels satisfy the required labels
func matchesLabels(subLabels, requiredLabels map[string]string) bool {
	if len(requiredLabels) == 0 {
		return true
	}

	for key, value := range requiredLabels {
		got, exists := subLabels[key]
		if !exists || got != value {
			return false
		}
	}

	return true
}
