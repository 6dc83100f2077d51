package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

type credentialCandidate struct {
	mode   string
	source string
	field  string
}

// selectSingleCredential refuses ambiguous setups instead of picking one.
func selectSingleCredential(candidates []credentialCandidate, missingMessage, multiPrefix string) (mode string, source string, err error) {
	switch len(candidates) {
	case 0:
		return "", "", fmt.Errorf("%s", strings.TrimSpace(missingMessage))
	case 1:
		return candidates[0].mode, candidates[0].source, nil
	}
	fields := make([]string, 0, len(candidates))
	for _, c := range candidates {
		fields = append(fields, c.field)
	}
	sort.Strings(fields)
	return "", "", fmt.Errorf("%s (%s); set exactly one", strings.TrimSpace(multiPrefix), strings.Join(fields, ", "))
}

func validateTokenFileSource(mode, source, providerLabel string) error {
	if mode != authModeTokenFile {
		return nil
	}
	resolved := expandHome(source)
	if _, err := os.Stat(resolved); err != nil {
		return fmt.Errorf("%s token file not accessible at %s: %w", providerLabel, resolved, err)
	}
	return nil
}
