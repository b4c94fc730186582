package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// ValidateDisease checks if the disease name is in the allowed list
func ValidateDisease(disease string) error {
	allowed := map[string]bool{
		"malaria":       true,
		"leptospirosis": true,
	}

	if !allowed[strings.ToLower(disease)] {
		return fmt.Errorf("invalid disease: %s (allowed: malaria, leptospirosis)", disease)
	}
	return nil
}

// ValidateID validates report/analysis ID format (UUID)
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, strings.ToLower(id))
	if !matched {
		return fmt.Errorf("invalid id format")
	}

	return nil
}

// ValidateDecision checks the review decision field
func ValidateDecision(decision string) error {
	if decision != "approve" && decision != "reject" {
		return fmt.Errorf("invalid decision: %s (allowed: approve, reject)", decision)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
