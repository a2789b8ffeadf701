package server

import (
	"github.com/patelaryan0914/posteditme/internal/domain"
)

// Requests.

type SignupRequest struct {
	Email     string   `json:"email" format:"email"`
	Password  string   `json:"password"`
	Languages []string `json:"languages,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type ApproveUserRequest struct {
	Approved bool `json:"approved"`
}

type SetUserStatusRequest struct {
	Status string `json:"status" enum:"active,suspended"`
}

type SetUserRoleRequest struct {
	Role string `json:"role" enum:"user,agent_admin,system_admin"`
}

type CreateAgentRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty" enum:"active,inactive,suspended"`
	AdminIDs    []string `json:"admin_ids,omitempty"`
	UserIDs     []string `json:"user_ids,omitempty"`
}

type UpdateAgentRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"active,inactive,suspended"`
}

type AgentMemberRequest struct {
	UserID string `json:"user_id"`
}

type CreateProjectRequest struct {
	AgentID             string                  `json:"agent_id"`
	Name                string                  `json:"name"`
	Description         string                  `json:"description,omitempty"`
	Type                string                  `json:"type" enum:"human_translation,post_editing,text_classification,sequence_tagging,literary_translation,error_marking,translation_rating"`
	Status              string                  `json:"status,omitempty" enum:"draft,in_progress,completed,cancelled"`
	StartDate           string                  `json:"start_date" format:"date-time"`
	DueDate             string                  `json:"due_date" format:"date-time"`
	SourceLanguage      string                  `json:"source_language"`
	TargetLanguage      string                  `json:"target_language,omitempty"`
	Labels              []string                `json:"labels,omitempty"`
	ConfidenceThreshold *float64                `json:"confidence_threshold,omitempty"`
	ErrorCategories     []string                `json:"error_categories,omitempty"`
	RatingFramework     string                  `json:"rating_framework,omitempty"`
	CustomCategories    []domain.RatingCategory `json:"custom_categories,omitempty"`
	RatePerTask         *float64                `json:"rate_per_task,omitempty"`
	AssignedUsers       []string                `json:"assigned_users,omitempty"`
}

type UpdateProjectRequest struct {
	Name                *string                 `json:"name,omitempty"`
	Description         *string                 `json:"description,omitempty"`
	Status              *string                 `json:"status,omitempty" enum:"draft,in_progress,completed,cancelled"`
	TargetLanguage      *string                 `json:"target_language,omitempty"`
	Labels              []string                `json:"labels,omitempty"`
	ConfidenceThreshold *float64                `json:"confidence_threshold,omitempty"`
	ErrorCategories     []string                `json:"error_categories,omitempty"`
	RatingFramework     *string                 `json:"rating_framework,omitempty"`
	CustomCategories    []domain.RatingCategory `json:"custom_categories,omitempty"`
	RatePerTask         *float64                `json:"rate_per_task,omitempty"`
	AssignedUsers       []string                `json:"assigned_users,omitempty"`
}

type CreateTasksRequest struct {
	ProjectID   string   `json:"project_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     string   `json:"due_date,omitempty" format:"date-time"`
	FileContent []string `json:"file_content"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" enum:"pending,in_progress,review,completed,rejected"`
}

type AssignTaskRequest struct {
	UserID string `json:"user_id"`
}

type BulkAssignRequest struct {
	TaskIDs []string `json:"task_ids"`
	UserID  string   `json:"user_id"`
}

type BulkUnassignRequest struct {
	TaskIDs []string `json:"task_ids"`
}

type ClassificationUpdateRequest struct {
	SelectedLabels []string `json:"selected_labels,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Status         string   `json:"status,omitempty" enum:"pending,in_progress,review,completed,rejected"`
}

type TranslationUpdateRequest struct {
	Segments []domain.TranslationSegment `json:"segments"`
	Status   string                      `json:"status,omitempty" enum:"pending,in_progress,review,completed,rejected"`
}

type SegmentUpdateRequest struct {
	Segment domain.TranslationSegment `json:"segment"`
	Status  string                    `json:"status,omitempty" enum:"pending,in_progress,review,completed,rejected"`
}

type PostEditingUpdateRequest struct {
	EditedTranslation string   `json:"edited_translation,omitempty"`
	EditDistance      *int     `json:"edit_distance,omitempty"`
	QualityScore      *float64 `json:"quality_score,omitempty"`
	Status            string   `json:"status,omitempty" enum:"pending,in_progress,review,completed,rejected"`
}

type SequenceTaggingUpdateRequest struct {
	Tags   []domain.SequenceTag `json:"tags,omitempty"`
	Notes  string               `json:"notes,omitempty"`
	Status string               `json:"status,omitempty" enum:"pending,in_progress,review,completed,rejected"`
}

type ErrorMarkingUpdateRequest struct {
	TranslatedText string               `json:"translated_text,omitempty"`
	Errors         []domain.MarkedError `json:"errors,omitempty"`
	QualityScore   *float64             `json:"quality_score,omitempty"`
	ReviewNotes    string               `json:"review_notes,omitempty"`
	Status         string               `json:"status,omitempty" enum:"pending,in_progress,review,completed,rejected"`
}

type TranslationRatingUpdateRequest struct {
	TranslatedText string             `json:"translated_text,omitempty"`
	Rating         *float64           `json:"rating,omitempty"`
	Categories     map[string]float64 `json:"categories,omitempty"`
	ReviewNotes    string             `json:"review_notes,omitempty"`
	Justification  string             `json:"justification,omitempty"`
	Status         string             `json:"status,omitempty" enum:"pending,in_progress,review,completed,rejected"`
}

// Responses.

type TokenResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type AgentStatsResponse struct {
	ProjectCount int `json:"project_count"`
	MemberCount  int `json:"member_count"`
}

type BulkResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}

type paginatedProjects struct {
	Items      []domain.Project `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type paginatedTasks struct {
	Items      []domain.Task `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// userResponse normalizes nil slices so clients always see arrays.
func userResponse(u domain.User) domain.User {
	u.Languages = nonNilSlice(u.Languages)
	return u
}

func agentResponse(a domain.Agent) domain.Agent {
	a.AdminIDs = nonNilSlice(a.AdminIDs)
	a.UserIDs = nonNilSlice(a.UserIDs)
	return a
}

func projectResponse(p domain.Project) domain.Project {
	p.AssignedUsers = nonNilSlice(p.AssignedUsers)
	return p
}

func mapUsers(items []domain.User) []domain.User {
	res := make([]domain.User, 0, len(items))
	for _, u := range items {
		res = append(res, userResponse(u))
	}
	return res
}

func mapAgents(items []domain.Agent) []domain.Agent {
	res := make([]domain.Agent, 0, len(items))
	for _, a := range items {
		res = append(res, agentResponse(a))
	}
	return res
}

func mapProjects(items []domain.Project) []domain.Project {
	res := make([]domain.Project, 0, len(items))
	for _, p := range items {
		res = append(res, projectResponse(p))
	}
	return res
}

func mapTasks(items []domain.Task) []domain.Task {
	if items == nil {
		return []domain.Task{}
	}
	return items
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
