package server

import (
	"fmt"

	"bizdesk/internal/domain"
)

// Request payloads

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation,omitempty"`
}

type ChallengeRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

// TaskRequest dates use the wall-clock layout 2006-01-02T15:04:05.
type TaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty" enum:"call,meeting,email,note,todo"`
	Status      *string `json:"status,omitempty" enum:"not_started,in_progress,completed,deferred,waiting"`
	Priority    *string `json:"priority,omitempty" enum:"low,normal,high,urgent"`
	StartDate   *string `json:"start_date,omitempty" nullable:"true"`
	EndDate     *string `json:"end_date,omitempty" nullable:"true"`
	AllDay      *bool   `json:"all_day,omitempty"`
	AssignedTo  *int64  `json:"assigned_to,omitempty" nullable:"true"`
	ProjectID   *int64  `json:"project_id,omitempty" nullable:"true"`
}

type TaskStatusRequest struct {
	Status string `json:"status" enum:"not_started,in_progress,completed,deferred,waiting"`
}

type ProjectRequest struct {
	Title            *string  `json:"title,omitempty"`
	CompanyName      *string  `json:"company_name,omitempty"`
	SectorID         *int64   `json:"sector_id,omitempty" nullable:"true"`
	GovernorateID    *int64   `json:"governorate_id,omitempty" nullable:"true"`
	PipelineTypeID   *int64   `json:"pipeline_type_id,omitempty" nullable:"true"`
	PipelineStageID  *int64   `json:"pipeline_stage_id,omitempty" nullable:"true"`
	Status           *string  `json:"status,omitempty" enum:"idea,in_progress,in_production"`
	InvestmentAmount *float64 `json:"investment_amount,omitempty"`
	Description      *string  `json:"description,omitempty"`
}

type ProjectStatusRequest struct {
	Status string `json:"status" enum:"idea,in_progress,in_production"`
}

type ProjectStageRequest struct {
	PipelineStageID int64 `json:"pipeline_stage_id"`
}

type BlockageRequest struct {
	Title                  *string `json:"title,omitempty"`
	Description            *string `json:"description,omitempty"`
	Priority               *string `json:"priority,omitempty" enum:"low,medium,high,critical"`
	Status                 *string `json:"status,omitempty" enum:"active,in_progress,resolved"`
	BlocksProgress         *bool   `json:"blocks_progress,omitempty"`
	AssignedTo             *int64  `json:"assigned_to,omitempty" nullable:"true"`
	ExpectedResolutionDate *string `json:"expected_resolution_date,omitempty"`
}

type ContactRequest struct {
	Name       *string `json:"name,omitempty"`
	Title      *string `json:"title,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	IsPrimary  *bool   `json:"is_primary,omitempty"`
	IsExternal *bool   `json:"is_external,omitempty"`
}

// Response payloads

type UserResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

type LoginResponse struct {
	Token             string        `json:"token,omitempty"`
	User              *UserResponse `json:"user,omitempty"`
	RequiresTwoFactor bool          `json:"requires_two_factor"`
	TempToken         string        `json:"temp_token,omitempty"`
	Email             string        `json:"email,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TwoFactorStatusResponse struct {
	Enabled bool `json:"enabled"`
}

type TwoFactorSetupResponse struct {
	QRCode string `json:"qr_code"`
	Secret string `json:"secret"`
}

type TaskResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type" enum:"call,meeting,email,note,todo"`
	Status      string  `json:"status" enum:"not_started,in_progress,completed,deferred,waiting"`
	Priority    string  `json:"priority" enum:"low,normal,high,urgent"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
	AllDay      bool    `json:"all_day"`
	CreatedBy   int64   `json:"created_by"`
	AssignedTo  *int64  `json:"assigned_to,omitempty"`
	ProjectID   *int64  `json:"project_id,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type ProjectResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	CompanyName      string  `json:"company_name"`
	SectorID         *int64  `json:"sector_id,omitempty"`
	GovernorateID    *int64  `json:"governorate_id,omitempty"`
	PipelineTypeID   *int64  `json:"pipeline_type_id,omitempty"`
	PipelineStageID  *int64  `json:"pipeline_stage_id,omitempty"`
	IsIdea           bool    `json:"is_idea"`
	IsInProgress     bool    `json:"is_in_progress"`
	IsInProduction   bool    `json:"is_in_production"`
	InvestmentAmount float64 `json:"investment_amount"`
	Description      string  `json:"description,omitempty"`
	CreatedBy        int64   `json:"created_by"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

type ActivityResponse struct {
	ID        int64          `json:"id"`
	ProjectID int64          `json:"project_id"`
	Type      string         `json:"type"`
	ActorID   int64          `json:"actor_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	TS        string         `json:"ts" format:"date-time"`
}

type TaskStatsResponse struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByType     map[string]int `json:"by_type"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
	DueToday   int            `json:"due_today"`
	Upcoming   []TaskResponse `json:"upcoming"`
}

type ProjectStatsResponse struct {
	Total           int            `json:"total"`
	ByStatus        map[string]int `json:"by_status"`
	ByStage         map[string]int `json:"by_stage"`
	BySector        map[string]int `json:"by_sector"`
	TotalInvestment float64        `json:"total_investment"`
	OpenBlockages   int            `json:"open_blockages"`
}

type PageMeta struct {
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

type paginatedTasks struct {
	Items []TaskResponse `json:"items"`
	PageMeta
}

type paginatedProjects struct {
	Items []ProjectResponse `json:"items"`
	PageMeta
}

type itemsBody[T any] struct {
	Items []T `json:"items"`
}

// Conversions

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, TwoFactorEnabled: u.TwoFactorEnabled}
}

func toTaskResponse(t domain.Task) TaskResponse {
	res := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Type:        string(t.Type),
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		StartDate:   t.Start.String(),
		AllDay:      t.AllDay,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  t.AssignedTo,
		ProjectID:   t.ProjectID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if !t.End.IsZero() {
		end := t.End.String()
		res.EndDate = &end
	}
	return res
}

func toTaskResponses(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func toProjectResponse(p domain.Project) ProjectResponse {
	idea, inProgress, inProduction := p.Status.Flags()
	return ProjectResponse{
		ID:               p.ID,
		Title:            p.Title,
		CompanyName:      p.CompanyName,
		SectorID:         p.SectorID,
		GovernorateID:    p.GovernorateID,
		PipelineTypeID:   p.PipelineTypeID,
		PipelineStageID:  p.PipelineStageID,
		IsIdea:           idea,
		IsInProgress:     inProgress,
		IsInProduction:   inProduction,
		InvestmentAmount: p.InvestmentAmount,
		Description:      p.Description,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toActivityResponses(acts []domain.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(acts))
	for _, a := range acts {
		out = append(out, ActivityResponse(a))
	}
	return out
}

func countsOf[K ~string](in map[K]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

func toTaskStatsResponse(s domain.TaskStats) TaskStatsResponse {
	return TaskStatsResponse{
		Total:      s.Total,
		ByStatus:   countsOf(s.ByStatus),
		ByType:     countsOf(s.ByType),
		ByPriority: countsOf(s.ByPriority),
		Overdue:    s.Overdue,
		DueToday:   s.DueToday,
		Upcoming:   toTaskResponses(s.Upcoming),
	}
}

func toProjectStatsResponse(s domain.ProjectStats) ProjectStatsResponse {
	return ProjectStatsResponse{
		Total:           s.Total,
		ByStatus:        countsOf(s.ByStatus),
		ByStage:         s.ByStage,
		BySector:        s.BySector,
		TotalInvestment: s.TotalInvestment,
		OpenBlockages:   s.OpenBlockages,
	}
}

// fieldError is returned for a malformed value the schema cannot catch.
type fieldError struct {
	field, msg string
}

func (e fieldError) Error() string { return fmt.Sprintf("%s: %s", e.field, e.msg) }

func parseWall(field string, s *string) (*domain.WallTime, error) {
	if s == nil {
		return nil, nil
	}
	w, err := domain.ParseWallTime(*s)
	if err != nil {
		return nil, fieldError{field: field, msg: "The " + field + " is not a valid date."}
	}
	return &w, nil
}

func (r TaskRequest) toInput() (domain.TaskInput, error) {
	start, err := parseWall("start_date", r.StartDate)
	if err != nil {
		return domain.TaskInput{}, err
	}
	end, err := parseWall("end_date", r.EndDate)
	if err != nil {
		return domain.TaskInput{}, err
	}
	in := domain.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Start:       start,
		End:         end,
		AllDay:      r.AllDay,
		AssignedTo:  r.AssignedTo,
		ProjectID:   r.ProjectID,
	}
	if r.Type != nil {
		in.Type = domain.Ptr(domain.TaskType(*r.Type))
	}
	if r.Status != nil {
		in.Status = domain.Ptr(domain.TaskStatus(*r.Status))
	}
	if r.Priority != nil {
		in.Priority = domain.Ptr(domain.TaskPriority(*r.Priority))
	}
	return in, nil
}

func (r ProjectRequest) toInput() domain.ProjectInput {
	in := domain.ProjectInput{
		Title:            r.Title,
		CompanyName:      r.CompanyName,
		SectorID:         r.SectorID,
		GovernorateID:    r.GovernorateID,
		PipelineTypeID:   r.PipelineTypeID,
		PipelineStageID:  r.PipelineStageID,
		InvestmentAmount: r.InvestmentAmount,
		Description:      r.Description,
	}
	if r.Status != nil {
		in.Status = domain.Ptr(domain.ProjectStatus(*r.Status))
	}
	return in
}

func (r BlockageRequest) toInput() domain.BlockageInput {
	in := domain.BlockageInput{
		Title:                  r.Title,
		Description:            r.Description,
		BlocksProgress:         r.BlocksProgress,
		AssignedTo:             r.AssignedTo,
		ExpectedResolutionDate: r.ExpectedResolutionDate,
	}
	if r.Priority != nil {
		in.Priority = domain.Ptr(domain.BlockagePriority(*r.Priority))
	}
	if r.Status != nil {
		in.Status = domain.Ptr(domain.BlockageStatus(*r.Status))
	}
	return in
}

func (r ContactRequest) toInput() domain.ContactInput {
	return domain.ContactInput(r)
}
