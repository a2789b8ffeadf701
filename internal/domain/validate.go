package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError marks a project field that violates the construction rules.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var translationFamily = map[string]bool{
	TypeHumanTranslation:    true,
	TypePostEditing:         true,
	TypeLiteraryTranslation: true,
	TypeTranslationRating:   true,
}

var classificationFamily = map[string]bool{
	TypeTextClassification: true,
	TypeSequenceTagging:    true,
	TypeErrorMarking:       true,
}

// ValidateProject enforces the type-specific configuration rules before a
// project is persisted. Violations are rejected with field-level errors.
func ValidateProject(p Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if p.AgentID == "" {
		return ValidationError{Field: "agent_id", Message: "agent_id is required"}
	}
	switch p.Type {
	case TypeHumanTranslation, TypePostEditing, TypeTextClassification,
		TypeSequenceTagging, TypeLiteraryTranslation, TypeErrorMarking, TypeTranslationRating:
	default:
		return ValidationError{Field: "type", Message: fmt.Sprintf("unknown project type %q", p.Type)}
	}
	if !ValidProjectStatus(p.Status) {
		return ValidationError{Field: "status", Message: fmt.Sprintf("unknown project status %q", p.Status)}
	}
	if strings.TrimSpace(p.SourceLanguage) == "" {
		return ValidationError{Field: "source_language", Message: "source language is required"}
	}
	start, err := time.Parse(time.RFC3339, p.StartDate)
	if err != nil {
		return ValidationError{Field: "start_date", Message: "start date must be RFC 3339"}
	}
	due, err := time.Parse(time.RFC3339, p.DueDate)
	if err != nil {
		return ValidationError{Field: "due_date", Message: "due date must be RFC 3339"}
	}
	if due.Before(start) {
		return ValidationError{Field: "due_date", Message: "due date must not be before start date"}
	}

	if translationFamily[p.Type] && p.TargetLanguage == "" {
		return ValidationError{Field: "target_language", Message: "target language is required for translation projects"}
	}
	if classificationFamily[p.Type] && p.TargetLanguage != "" {
		return ValidationError{Field: "target_language", Message: "target language must not be set for classification projects"}
	}

	if p.Type == TypeTextClassification || p.Type == TypeSequenceTagging {
		if !hasNonEmpty(p.Labels) {
			return ValidationError{Field: "labels", Message: "at least one non-empty label is required"}
		}
	}
	if p.Type == TypeErrorMarking {
		if !hasNonEmpty(p.ErrorCategories) {
			return ValidationError{Field: "error_categories", Message: "at least one non-empty error category is required"}
		}
	}
	if p.Type == TypeTranslationRating {
		switch p.RatingFramework {
		case FrameworkFluency, FrameworkAdequacy, FrameworkDA, FrameworkSQM:
		case FrameworkCustom:
			if len(p.CustomCategories) == 0 {
				return ValidationError{Field: "custom_categories", Message: "at least one category is required for a custom rating framework"}
			}
			for _, c := range p.CustomCategories {
				if strings.TrimSpace(c.Label) == "" {
					return ValidationError{Field: "custom_categories", Message: "category labels must not be empty"}
				}
			}
		case "":
			return ValidationError{Field: "rating_framework", Message: "rating framework is required for translation rating projects"}
		default:
			return ValidationError{Field: "rating_framework", Message: fmt.Sprintf("unknown rating framework %q", p.RatingFramework)}
		}
	}
	if p.ConfidenceThreshold != nil && (*p.ConfidenceThreshold < 0 || *p.ConfidenceThreshold > 100) {
		return ValidationError{Field: "confidence_threshold", Message: "confidence threshold must be between 0 and 100"}
	}
	if p.RatePerTask != nil && *p.RatePerTask < 0 {
		return ValidationError{Field: "rate_per_task", Message: "rate per task must not be negative"}
	}
	return nil
}

func hasNonEmpty(items []string) bool {
	if len(items) == 0 {
		return false
	}
	for _, s := range items {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}
