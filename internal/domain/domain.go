package domain

// Roles.
const (
	RoleUser        = "user"
	RoleAgentAdmin  = "agent_admin"
	RoleSystemAdmin = "system_admin"
)

// User account statuses.
const (
	UserActive    = "active"
	UserSuspended = "suspended"
)

// Agent statuses.
const (
	AgentActive    = "active"
	AgentInactive  = "inactive"
	AgentSuspended = "suspended"
)

// Project types.
const (
	TypeHumanTranslation    = "human_translation"
	TypePostEditing         = "post_editing"
	TypeTextClassification  = "text_classification"
	TypeSequenceTagging     = "sequence_tagging"
	TypeLiteraryTranslation = "literary_translation"
	TypeErrorMarking        = "error_marking"
	TypeTranslationRating   = "translation_rating"
)

// Project statuses.
const (
	ProjectDraft      = "draft"
	ProjectInProgress = "in_progress"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

// Task statuses. The canonical set includes rejected; it is accepted by the
// schema and by every status mutation alike.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskCompleted  = "completed"
	TaskRejected   = "rejected"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Rating frameworks for translation_rating projects.
const (
	FrameworkFluency  = "fluency"
	FrameworkAdequacy = "adequacy"
	FrameworkDA       = "da"
	FrameworkSQM      = "sqm"
	FrameworkCustom   = "custom"
)

type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         string   `json:"role" enum:"user,agent_admin,system_admin"`
	Approved     bool     `json:"approved"`
	Status       string   `json:"status" enum:"active,suspended"`
	Languages    []string `json:"languages"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
}

type Agent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status" enum:"active,inactive,suspended"`
	AdminIDs    []string `json:"admin_ids"`
	UserIDs     []string `json:"user_ids"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
}

// RatingCategory is one category of a custom rating framework.
type RatingCategory struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type Project struct {
	ID                  string           `json:"id"`
	AgentID             string           `json:"agent_id"`
	Name                string           `json:"name"`
	Description         string           `json:"description,omitempty"`
	Type                string           `json:"type" enum:"human_translation,post_editing,text_classification,sequence_tagging,literary_translation,error_marking,translation_rating"`
	Status              string           `json:"status" enum:"draft,in_progress,completed,cancelled"`
	StartDate           string           `json:"start_date" format:"date-time"`
	DueDate             string           `json:"due_date" format:"date-time"`
	SourceLanguage      string           `json:"source_language"`
	TargetLanguage      string           `json:"target_language,omitempty"`
	Labels              []string         `json:"labels,omitempty"`
	ConfidenceThreshold *float64         `json:"confidence_threshold,omitempty"`
	ErrorCategories     []string         `json:"error_categories,omitempty"`
	RatingFramework     string           `json:"rating_framework,omitempty"`
	CustomCategories    []RatingCategory `json:"custom_categories,omitempty"`
	RatePerTask         *float64         `json:"rate_per_task,omitempty"`
	AssignedUsers       []string         `json:"assigned_users"`
	CreatedAt           string           `json:"created_at" format:"date-time"`
	UpdatedAt           string           `json:"updated_at" format:"date-time"`
}

// Task payload shapes. Exactly one is populated, matching the owning
// project's type.

type TranslationSegment struct {
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text,omitempty"`
	Comments       string `json:"comments,omitempty"`
	ReviewNotes    string `json:"review_notes,omitempty"`
}

type ClassificationData struct {
	Text           string   `json:"text"`
	SelectedLabels []string `json:"selected_labels,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

type PostEditingData struct {
	SourceText         string   `json:"source_text"`
	MachineTranslation string   `json:"machine_translation,omitempty"`
	EditedTranslation  string   `json:"edited_translation,omitempty"`
	EditDistance       *int     `json:"edit_distance,omitempty"`
	QualityScore       *float64 `json:"quality_score,omitempty"`
}

type SequenceTag struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

type SequenceTaggingData struct {
	Text  string        `json:"text"`
	Tags  []SequenceTag `json:"tags,omitempty"`
	Notes string        `json:"notes,omitempty"`
}

type MarkedError struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Category string `json:"category"`
	Severity string `json:"severity" enum:"minor,major,critical"`
	Comment  string `json:"comment,omitempty"`
}

type ErrorMarkingData struct {
	SourceText     string        `json:"source_text"`
	TranslatedText string        `json:"translated_text,omitempty"`
	Errors         []MarkedError `json:"errors,omitempty"`
	QualityScore   *float64      `json:"quality_score,omitempty"`
	ReviewNotes    string        `json:"review_notes,omitempty"`
}

type TranslationRatingData struct {
	SourceText     string             `json:"source_text"`
	TranslatedText string             `json:"translated_text,omitempty"`
	Rating         *float64           `json:"rating,omitempty"`
	Categories     map[string]float64 `json:"categories,omitempty"`
	ReviewNotes    string             `json:"review_notes,omitempty"`
	Justification  string             `json:"justification,omitempty"`
}

type Task struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	Status      string  `json:"status" enum:"pending,in_progress,review,completed,rejected"`
	Priority    string  `json:"priority" enum:"low,medium,high"`
	DueDate     string  `json:"due_date,omitempty" format:"date-time"`

	TranslationData       []TranslationSegment   `json:"translation_data,omitempty"`
	PostEditingData       *PostEditingData       `json:"post_editing_data,omitempty"`
	ClassificationData    *ClassificationData    `json:"classification_data,omitempty"`
	SequenceTaggingData   *SequenceTaggingData   `json:"sequence_tagging_data,omitempty"`
	ErrorMarkingData      *ErrorMarkingData      `json:"error_marking_data,omitempty"`
	TranslationRatingData *TranslationRatingData `json:"translation_rating_data,omitempty"`

	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAgentAdmin, RoleSystemAdmin:
		return true
	}
	return false
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskReview, TaskCompleted, TaskRejected:
		return true
	}
	return false
}

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectDraft, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known task priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// IsAdmin reports whether role may perform project and task mutations.
func IsAdmin(role string) bool {
	return role == RoleSystemAdmin || role == RoleAgentAdmin
}
