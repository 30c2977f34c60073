package domain

// User is the authenticated account as returned by the auth endpoints.
type User struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        TaskType     `json:"type"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Start       WallTime     `json:"start_date"`
	End         WallTime     `json:"end_date"`
	AllDay      bool         `json:"all_day"`
	CreatedBy   int64        `json:"created_by"`
	AssignedTo  *int64       `json:"assigned_to,omitempty"`
	ProjectID   *int64       `json:"project_id,omitempty"`
	CreatedAt   string       `json:"created_at,omitempty"`
	UpdatedAt   string       `json:"updated_at,omitempty"`
}

// Key implements the store entity contract.
func (t Task) Key() int64 { return t.ID }

// TaskInput is the create/update payload. Nil fields are left untouched on update.
type TaskInput struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Type        *TaskType     `json:"type,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Start       *WallTime     `json:"start_date,omitempty"`
	End         *WallTime     `json:"end_date,omitempty"`
	AllDay      *bool         `json:"all_day,omitempty"`
	AssignedTo  *int64        `json:"assigned_to,omitempty"`
	ProjectID   *int64        `json:"project_id,omitempty"`
}

type PipelineStage struct {
	ID             int64  `json:"id"`
	PipelineTypeID int64  `json:"pipeline_type_id"`
	Name           string `json:"name"`
	Order          int    `json:"order"`
	Color          string `json:"color,omitempty"`
}

type PipelineType struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Stages []PipelineStage `json:"stages"`
}

type Sector struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Governorate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProjectInput is the create/update payload for projects.
type ProjectInput struct {
	Title            *string        `json:"title,omitempty"`
	CompanyName      *string        `json:"company_name,omitempty"`
	SectorID         *int64         `json:"sector_id,omitempty"`
	GovernorateID    *int64         `json:"governorate_id,omitempty"`
	PipelineTypeID   *int64         `json:"pipeline_type_id,omitempty"`
	PipelineStageID  *int64         `json:"pipeline_stage_id,omitempty"`
	Status           *ProjectStatus `json:"status,omitempty"`
	InvestmentAmount *float64       `json:"investment_amount,omitempty"`
	Description      *string        `json:"description,omitempty"`
}

type Blockage struct {
	ID                     int64            `json:"id"`
	ProjectID              int64            `json:"project_id"`
	Title                  string           `json:"title"`
	Description            string           `json:"description,omitempty"`
	Priority               BlockagePriority `json:"priority"`
	Status                 BlockageStatus   `json:"status"`
	BlocksProgress         bool             `json:"blocks_progress"`
	AssignedTo             *int64           `json:"assigned_to,omitempty"`
	ExpectedResolutionDate string           `json:"expected_resolution_date,omitempty"`
	ResolvedAt             string           `json:"resolved_at,omitempty"`
	CreatedAt              string           `json:"created_at,omitempty"`
}

func (b Blockage) Key() int64 { return b.ID }

type BlockageInput struct {
	Title                  *string           `json:"title,omitempty"`
	Description            *string           `json:"description,omitempty"`
	Priority               *BlockagePriority `json:"priority,omitempty"`
	Status                 *BlockageStatus   `json:"status,omitempty"`
	BlocksProgress         *bool             `json:"blocks_progress,omitempty"`
	AssignedTo             *int64            `json:"assigned_to,omitempty"`
	ExpectedResolutionDate *string           `json:"expected_resolution_date,omitempty"`
}

type Contact struct {
	ID         int64  `json:"id"`
	ProjectID  int64  `json:"project_id"`
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Notes      string `json:"notes,omitempty"`
	IsPrimary  bool   `json:"is_primary"`
	IsExternal bool   `json:"is_external"`
}

func (c Contact) Key() int64 { return c.ID }

type ContactInput struct {
	Name       *string `json:"name,omitempty"`
	Title      *string `json:"title,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	IsPrimary  *bool   `json:"is_primary,omitempty"`
	IsExternal *bool   `json:"is_external,omitempty"`
}

// Activity is an entry of a project's change log.
type Activity struct {
	ID        int64          `json:"id"`
	ProjectID int64          `json:"project_id"`
	Type      string         `json:"type"`
	ActorID   int64          `json:"actor_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	TS        string         `json:"ts"`
}

// Page is one page of a paginated list response.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

type TaskStats struct {
	Total      int                  `json:"total"`
	ByStatus   map[TaskStatus]int   `json:"by_status"`
	ByType     map[TaskType]int     `json:"by_type"`
	ByPriority map[TaskPriority]int `json:"by_priority"`
	Overdue    int                  `json:"overdue"`
	DueToday   int                  `json:"due_today"`
	Upcoming   []Task               `json:"upcoming"`
}

type ProjectStats struct {
	Total           int                   `json:"total"`
	ByStatus        map[ProjectStatus]int `json:"by_status"`
	ByStage         map[string]int        `json:"by_stage"`
	BySector        map[string]int        `json:"by_sector"`
	TotalInvestment float64               `json:"total_investment"`
	OpenBlockages   int                   `json:"open_blockages"`
}

// TwoFactorProvisioning is the result of a setup call: the otpauth payload
// rendered as a QR code and the secret for manual entry.
type TwoFactorProvisioning struct {
	QRPayload string `json:"qr_code"`
	Secret    string `json:"secret"`
}

func Ptr[T any](v T) *T { return &v }
