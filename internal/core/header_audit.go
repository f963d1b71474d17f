package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// auditedHeaders are checked in order; all three must be present and
// correct. No partial-success threshold applies here.
var auditedHeaders = []string{"Sender", "From", "Reply-To"}

// HeaderAuditor validates that the retrieved message's sending-identity
// headers match the delivery server under test.
type HeaderAuditor struct {
	logger *zap.Logger
}

// NewHeaderAuditor creates a new header auditor.
func NewHeaderAuditor(logger *zap.Logger) *HeaderAuditor {
	return &HeaderAuditor{logger: logger}
}

// Validate checks Sender, From, and Reply-To against the server's
// sending identity. Fails with HeaderValidationFailure listing every
// missing or mismatched header.
func (h *HeaderAuditor) Validate(msg *RetrievedMessage, server *DeliveryServer) error {
	expectedEmail := server.FromEmail
	expectedNames := expectedDisplayNames(server.Domain())

	var problems []string
	for _, name := range auditedHeaders {
		addr, ok := msg.Address(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s header missing or unparseable", name))
			continue
		}
		if matchesIdentity(addr.Address, addr.Name, expectedEmail, expectedNames) {
			continue
		}
		problems = append(problems, fmt.Sprintf("%s header %q does not match sending identity %s",
			name, msg.Header(name), expectedEmail))
	}

	if len(problems) > 0 {
		return &HeaderValidationFailure{Problems: problems}
	}
	h.logger.Debug("Headers validated",
		zap.Int64("server_id", server.ID),
		zap.String("from_email", expectedEmail))
	return nil
}

// expectedDisplayNames returns the acceptable display names for a
// sending domain: the domain itself and its TLD-stripped variant, to
// tolerate inconsistent naming conventions upstream.
func expectedDisplayNames(domain string) []string {
	if domain == "" {
		return nil
	}
	names := []string{domain}
	if idx := strings.LastIndex(domain, "."); idx > 0 {
		names = append(names, domain[:idx])
	}
	return names
}

// matchesIdentity accepts a header when either its address equals the
// expected email (case-insensitively) or its display name equals one of
// the expected domain variants.
func matchesIdentity(address, displayName, expectedEmail string, expectedNames []string) bool {
	if strings.EqualFold(address, expectedEmail) {
		return true
	}
	for _, name := range expectedNames {
		if strings.EqualFold(displayName, name) {
			return true
		}
	}
	return false
}
