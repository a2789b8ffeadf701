package domain_test

import (
	"errors"
	"testing"

	"github.com/patelaryan0914/posteditme/internal/domain"
)

func baseProject(projectType string) domain.Project {
	p := domain.Project{
		ID:             "p-1",
		AgentID:        "a-1",
		Name:           "News batch",
		Type:           projectType,
		Status:         domain.ProjectDraft,
		StartDate:      "2024-01-01T00:00:00Z",
		DueDate:        "2024-02-01T00:00:00Z",
		SourceLanguage: "en",
	}
	switch {
	case projectType == domain.TypeTextClassification || projectType == domain.TypeSequenceTagging:
		p.Labels = []string{"positive", "negative"}
	case projectType == domain.TypeErrorMarking:
		p.ErrorCategories = []string{"mistranslation"}
	case projectType == domain.TypeTranslationRating:
		p.TargetLanguage = "de"
		p.RatingFramework = domain.FrameworkFluency
	default:
		p.TargetLanguage = "de"
	}
	return p
}

func expectField(t *testing.T, err error, field string) {
	t.Helper()
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != field {
		t.Fatalf("expected field %q, got %q (%v)", field, ve.Field, err)
	}
}

func TestValidateProjectHappyPaths(t *testing.T) {
	for _, typ := range []string{
		domain.TypeHumanTranslation,
		domain.TypePostEditing,
		domain.TypeTextClassification,
		domain.TypeSequenceTagging,
		domain.TypeLiteraryTranslation,
		domain.TypeErrorMarking,
		domain.TypeTranslationRating,
	} {
		if err := domain.ValidateProject(baseProject(typ)); err != nil {
			t.Fatalf("%s: unexpected error %v", typ, err)
		}
	}
}

func TestValidateProjectTargetLanguageRules(t *testing.T) {
	p := baseProject(domain.TypeHumanTranslation)
	p.TargetLanguage = ""
	expectField(t, domain.ValidateProject(p), "target_language")

	p = baseProject(domain.TypeTextClassification)
	p.TargetLanguage = "de"
	expectField(t, domain.ValidateProject(p), "target_language")
}

func TestValidateProjectLabels(t *testing.T) {
	p := baseProject(domain.TypeTextClassification)
	p.Labels = nil
	expectField(t, domain.ValidateProject(p), "labels")

	p.Labels = []string{"good", "  "}
	expectField(t, domain.ValidateProject(p), "labels")
}

func TestValidateProjectErrorCategories(t *testing.T) {
	p := baseProject(domain.TypeErrorMarking)
	p.ErrorCategories = []string{}
	expectField(t, domain.ValidateProject(p), "error_categories")
}

func TestValidateProjectRatingFramework(t *testing.T) {
	p := baseProject(domain.TypeTranslationRating)
	p.RatingFramework = ""
	expectField(t, domain.ValidateProject(p), "rating_framework")

	p.RatingFramework = "stars"
	expectField(t, domain.ValidateProject(p), "rating_framework")

	p.RatingFramework = domain.FrameworkCustom
	p.CustomCategories = nil
	expectField(t, domain.ValidateProject(p), "custom_categories")

	p.CustomCategories = []domain.RatingCategory{{ID: "c1", Label: " "}}
	expectField(t, domain.ValidateProject(p), "custom_categories")

	p.CustomCategories = []domain.RatingCategory{{ID: "c1", Label: "Fluency"}}
	if err := domain.ValidateProject(p); err != nil {
		t.Fatalf("custom framework with categories: %v", err)
	}
}

func TestValidateProjectDates(t *testing.T) {
	p := baseProject(domain.TypeHumanTranslation)
	p.DueDate = "2023-12-31T00:00:00Z"
	expectField(t, domain.ValidateProject(p), "due_date")

	p = baseProject(domain.TypeHumanTranslation)
	p.StartDate = "yesterday"
	expectField(t, domain.ValidateProject(p), "start_date")
}

func TestValidateProjectNumericBounds(t *testing.T) {
	p := baseProject(domain.TypeTextClassification)
	bad := 120.0
	p.ConfidenceThreshold = &bad
	expectField(t, domain.ValidateProject(p), "confidence_threshold")

	p = baseProject(domain.TypeHumanTranslation)
	neg := -1.0
	p.RatePerTask = &neg
	expectField(t, domain.ValidateProject(p), "rate_per_task")
}
