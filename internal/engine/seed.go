package engine

import (
	"context"
	"errors"
	"time"

	"bizdesk/internal/domain"
)

// Demo account created by Seed.
const (
	DemoEmail    = "demo@bizdesk.local"
	DemoPassword = "demo-password"
)

var (
	seedSectors      = []string{"Agriculture", "Energy", "Manufacturing", "Tourism", "Technology"}
	seedGovernorates = []string{"Amman", "Irbid", "Zarqa", "Aqaba"}
	// stages are listed out of display order on purpose; the order column
	// decides how they are shown
	seedPipelines = []struct {
		name   string
		stages []domain.PipelineStage
	}{
		{"Investment", []domain.PipelineStage{
			{Name: "Negotiation", Order: 3, Color: "warning"},
			{Name: "Lead", Order: 1, Color: "secondary"},
			{Name: "Qualified", Order: 2, Color: "info"},
			{Name: "Signed", Order: 4, Color: "success"},
		}},
		{"Expansion", []domain.PipelineStage{
			{Name: "Assessment", Order: 1, Color: "info"},
			{Name: "Planning", Order: 2, Color: "primary"},
			{Name: "Execution", Order: 3, Color: "success"},
		}},
	}
)

// Seed fills an empty sandbox with reference data, a demo user and a few
// projects and tasks. It is a no-op once reference data exists.
func (e Engine) Seed(ctx context.Context) error {
	n, err := e.Repo.CountReference(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var sectorIDs, govIDs, typeIDs []int64
	for _, name := range seedSectors {
		id, err := e.Repo.InsertSector(ctx, name)
		if err != nil {
			return err
		}
		sectorIDs = append(sectorIDs, id)
	}
	for _, name := range seedGovernorates {
		id, err := e.Repo.InsertGovernorate(ctx, name)
		if err != nil {
			return err
		}
		govIDs = append(govIDs, id)
	}
	for _, p := range seedPipelines {
		typeID, err := e.Repo.InsertPipelineType(ctx, p.name)
		if err != nil {
			return err
		}
		typeIDs = append(typeIDs, typeID)
		for _, s := range p.stages {
			s.PipelineTypeID = typeID
			if _, err := e.Repo.InsertPipelineStage(ctx, s); err != nil {
				return err
			}
		}
	}

	user, err := e.Register(ctx, RegisterOptions{Name: "Demo User", Email: DemoEmail, Password: DemoPassword})
	if err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		existing, err := e.Repo.GetUserByEmail(ctx, DemoEmail)
		if err != nil {
			return err
		}
		user = existing.User
	}

	projects := []domain.ProjectInput{
		{Title: domain.Ptr("Solar farm"), CompanyName: domain.Ptr("Sun Power Co"), SectorID: &sectorIDs[1], GovernorateID: &govIDs[3],
			PipelineTypeID: &typeIDs[0], Status: domain.Ptr(domain.ProjectInProgress), InvestmentAmount: domain.Ptr(2500000.0)},
		{Title: domain.Ptr("Olive press upgrade"), CompanyName: domain.Ptr("Irbid Mills"), SectorID: &sectorIDs[0], GovernorateID: &govIDs[1],
			PipelineTypeID: &typeIDs[1], InvestmentAmount: domain.Ptr(180000.0)},
	}
	var firstProject int64
	for _, in := range projects {
		p, err := e.CreateProject(ctx, in, user.ID)
		if err != nil {
			return err
		}
		if firstProject == 0 {
			firstProject = p.ID
		}
	}
	if _, err := e.AddContact(ctx, firstProject, domain.ContactInput{Name: domain.Ptr("Rana Haddad"), Title: domain.Ptr("CFO"), Email: domain.Ptr("rana@sunpower.example"), IsPrimary: domain.Ptr(true), IsExternal: domain.Ptr(true)}, user.ID); err != nil {
		return err
	}
	if _, err := e.AddBlockage(ctx, firstProject, domain.BlockageInput{Title: domain.Ptr("Land permit pending"), Priority: domain.Ptr(domain.BlockageHigh), BlocksProgress: domain.Ptr(true)}, user.ID); err != nil {
		return err
	}

	today := domain.NewWallTime(e.now()).Date()
	tasks := []domain.TaskInput{
		{Title: domain.Ptr("Kick-off call"), Type: domain.Ptr(domain.TaskTypeCall), Start: domain.Ptr(today.Add(9 * time.Hour)), End: domain.Ptr(today.Add(10 * time.Hour)), ProjectID: &firstProject},
		{Title: domain.Ptr("Site visit"), Type: domain.Ptr(domain.TaskTypeMeeting), Priority: domain.Ptr(domain.PriorityHigh), Start: domain.Ptr(today.Add(48 * time.Hour)), AllDay: domain.Ptr(true)},
		{Title: domain.Ptr("Send term sheet"), Type: domain.Ptr(domain.TaskTypeEmail), Status: domain.Ptr(domain.TaskInProgress), Start: domain.Ptr(today.Add(-24*time.Hour + 14*time.Hour))},
	}
	for _, in := range tasks {
		in.AssignedTo = &user.ID
		if _, err := e.CreateTask(ctx, in, user.ID); err != nil {
			return err
		}
	}
	return nil
}

