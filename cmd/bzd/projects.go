package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bizdesk/internal/app"
	"bizdesk/internal/classify"
	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/pipeline"
	"bizdesk/internal/store"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage investment projects",
	}
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectGetCmd())
	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectUpdateCmd())
	cmd.AddCommand(projectStatusCmd())
	cmd.AddCommand(projectStageCmd())
	cmd.AddCommand(projectDeleteCmd())
	cmd.AddCommand(projectStatsCmd())
	cmd.AddCommand(projectActivityCmd())
	return cmd
}

func projectListCmd() *cobra.Command {
	var q gateway.ProjectQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				page, err := rt.Projects.Fetch(ctx, q)
				if err != nil {
					return err
				}
				return printJSONOrDetail(page, func() {
					renderProjects(page.Items)
					fmt.Println(mutedStyle.Render(fmt.Sprintf("page %d of %d, %d projects", page.Page, page.LastPage, page.Total)))
				})
			})
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "idea, in_progress or in_production")
	cmd.Flags().Int64Var(&q.SectorID, "sector", 0, "filter by sector id")
	cmd.Flags().Int64Var(&q.GovernorateID, "governorate", 0, "filter by governorate id")
	cmd.Flags().Int64Var(&q.PipelineTypeID, "pipeline", 0, "filter by pipeline type id")
	cmd.Flags().StringVar(&q.Search, "search", "", "search title and company")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 15, "projects per page")
	return cmd
}

func projectGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a project with its pipeline progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := rt.Projects.Load(ctx, id)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				progress, err := projectProgress(ctx, rt, p)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"project": p, "progress": progress})
				}
				renderProject(p, progress)
				return nil
			})
		},
	}
}

// projectProgress is nil for a project without a pipeline type.
func projectProgress(ctx context.Context, rt *app.Runtime, p domain.Project) (*pipeline.View, error) {
	v, err := rt.Projects.Progress(ctx, p)
	if errors.Is(err, store.ErrNoPipelineType) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type projectFlags struct {
	title, company, description    string
	sector, governorate            int64
	pipelineType, stage            int64
	investment                     float64
	idea, inProgress, inProduction bool
}

func (f *projectFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "project title")
	cmd.Flags().StringVar(&f.company, "company", "", "company name")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().Int64Var(&f.sector, "sector", 0, "sector id (0 clears)")
	cmd.Flags().Int64Var(&f.governorate, "governorate", 0, "governorate id (0 clears)")
	cmd.Flags().Int64Var(&f.pipelineType, "pipeline", 0, "pipeline type id; starts at its first stage unless --stage is set")
	cmd.Flags().Int64Var(&f.stage, "stage", 0, "pipeline stage id")
	cmd.Flags().Float64Var(&f.investment, "investment", 0, "investment amount")
	cmd.Flags().BoolVar(&f.idea, "idea", false, "status: idea")
	cmd.Flags().BoolVar(&f.inProgress, "in-progress", false, "status: in progress")
	cmd.Flags().BoolVar(&f.inProduction, "in-production", false, "status: in production")
}

func (f *projectFlags) input(cmd *cobra.Command) (domain.ProjectInput, error) {
	in := domain.ProjectInput{
		Title:           optionalString(cmd, "title", f.title),
		CompanyName:     optionalString(cmd, "company", f.company),
		Description:     optionalString(cmd, "description", f.description),
		SectorID:        optionalID(cmd, "sector", f.sector),
		GovernorateID:   optionalID(cmd, "governorate", f.governorate),
		PipelineTypeID:  optionalID(cmd, "pipeline", f.pipelineType),
		PipelineStageID: optionalID(cmd, "stage", f.stage),
	}
	if cmd.Flags().Changed("investment") {
		in.InvestmentAmount = &f.investment
	}
	status, err := domain.ProjectStatusFromFlags(f.idea, f.inProgress, f.inProduction)
	if err != nil {
		return domain.ProjectInput{}, err
	}
	if status != domain.ProjectStatusUnset {
		in.Status = &status
	}
	return in, nil
}

func projectCreateCmd() *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			if in.Title == nil {
				title, err := valueOrPrompt("", "Title", false)
				if err != nil {
					return err
				}
				in.Title = &title
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := rt.Projects.Create(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrDetail(p, func() {
					fmt.Printf("Created project #%d\n", p.ID)
					renderProject(p, nil)
				})
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := rt.Projects.Update(ctx, id, in)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				return printJSONOrDetail(p, func() { renderProject(p, nil) })
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func projectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <idea|in_progress|in_production>",
		Short: "Change a project's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status := domain.ProjectStatus(args[1])
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				p, err := rt.Projects.ChangeStatus(ctx, id, status)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				return printJSONOrDetail(p, func() {
					fmt.Printf("Project #%d is now %s\n", p.ID, badge(classify.ProjectStatus(p.Status)))
				})
			})
		},
	}
}

func projectStageCmd() *cobra.Command {
	var next bool
	cmd := &cobra.Command{
		Use:   "stage <id> [stage-id]",
		Short: "Move a project to another stage of its pipeline",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if next == (len(args) == 2) {
				return fmt.Errorf("give either a stage id or --next")
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				var stageID int64
				if next {
					p, err := rt.Projects.Load(ctx, id)
					if err != nil {
						return withHint(err, "bzd project list")
					}
					if p.PipelineTypeID == nil {
						return store.ErrNoPipelineType
					}
					stages, err := rt.Projects.Stages(ctx, *p.PipelineTypeID)
					if err != nil {
						return err
					}
					s, ok := pipeline.Next(stages, p.PipelineStageID)
					if !ok {
						return fmt.Errorf("project #%d is already at the last stage", id)
					}
					stageID = s.ID
				} else if stageID, err = parseID(args[1]); err != nil {
					return err
				}
				p, err := rt.Projects.ChangeStage(ctx, id, stageID)
				if err != nil {
					return withHint(err, "bzd pipeline list")
				}
				progress, err := projectProgress(ctx, rt, p)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"project": p, "progress": progress})
				}
				if progress != nil {
					fmt.Println(stageBar(*progress))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&next, "next", false, "advance to the next stage")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project with its blockages and contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes && isInteractive() {
				ok, err := promptConfirm(fmt.Sprintf("Delete project #%d?", id))
				if err != nil || !ok {
					return err
				}
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.Projects.Delete(ctx, id); err != nil {
					return withHint(err, "bzd project list")
				}
				fmt.Printf("Deleted project #%d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func projectStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Project statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				stats, err := rt.Projects.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrDetail(stats, func() {
					fmt.Println(titleStyle.Render(fmt.Sprintf("%d projects, %.2f invested, %d open blockages", stats.Total, stats.TotalInvestment, stats.OpenBlockages)))
					renderCounts("Status", stats.ByStatus, classify.ProjectStatus)
					renderCounts[string]("Stage", stats.ByStage, nil)
					renderCounts[string]("Sector", stats.BySector, nil)
				})
			})
		},
	}
}

func projectActivityCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity <id>",
		Short: "Show a project's change log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Projects.Activities(ctx, id, limit)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				return printJSONOrDetail(items, func() {
					tw := newTable(table.Row{"When", "Event", "Actor", "Details"})
					for _, a := range items {
						tw.AppendRow(table.Row{a.TS, a.Type, a.ActorID, fmt.Sprint(a.Payload)})
					}
					tw.Render()
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of entries (max 200)")
	return cmd
}

func pipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Pipeline types and reference data",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pipeline types with their stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				types, err := rt.Projects.PipelineTypes(ctx)
				if err != nil {
					return err
				}
				return printJSONOrDetail(types, func() {
					tw := newTable(table.Row{"Type", "Order", "Stage ID", "Stage"})
					for _, t := range types {
						label := fmt.Sprintf("#%d %s", t.ID, t.Name)
						for _, s := range pipeline.Sorted(t.Stages) {
							tw.AppendRow(table.Row{label, s.Order, s.ID, s.Name})
							label = ""
						}
					}
					tw.Render()
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sectors",
		Short: "List sectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Client.Sectors(ctx)
				if err != nil {
					return err
				}
				return printJSONOrDetail(items, func() {
					tw := newTable(table.Row{"ID", "Sector"})
					for _, s := range items {
						tw.AppendRow(table.Row{s.ID, s.Name})
					}
					tw.Render()
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "governorates",
		Short: "List governorates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Client.Governorates(ctx)
				if err != nil {
					return err
				}
				return printJSONOrDetail(items, func() {
					tw := newTable(table.Row{"ID", "Governorate"})
					for _, g := range items {
						tw.AppendRow(table.Row{g.ID, g.Name})
					}
					tw.Render()
				})
			})
		},
	})
	return cmd
}

func blockageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "blockage",
		Aliases: []string{"blockages"},
		Short:   "Manage the blockages of a project",
	}
	cmd.AddCommand(blockageListCmd())
	cmd.AddCommand(blockageAddCmd())
	cmd.AddCommand(blockageUpdateCmd())
	cmd.AddCommand(blockageResolveCmd())
	cmd.AddCommand(blockageDeleteCmd())
	return cmd
}

func projectAndItem(args []string) (int64, int64, error) {
	projectID, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	id, err := parseID(args[1])
	return projectID, id, err
}

func blockageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List blockages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Projects.FetchBlockages(ctx, projectID)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				return printJSONOrDetail(items, func() { renderBlockages(items) })
			})
		},
	}
}

type blockageFlags struct {
	title, description, priority, status, expected string
	blocks                                         bool
	assigned                                       int64
}

func (f *blockageFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "blockage title")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium, high or critical")
	cmd.Flags().StringVar(&f.status, "status", "", "active, in_progress or resolved")
	cmd.Flags().StringVar(&f.expected, "expected", "", "expected resolution date, e.g. 2024-06-01")
	cmd.Flags().BoolVar(&f.blocks, "blocks-progress", false, "stops the project from advancing")
	cmd.Flags().Int64Var(&f.assigned, "assigned", 0, "assignee user id (0 clears)")
}

func (f *blockageFlags) input(cmd *cobra.Command) domain.BlockageInput {
	in := domain.BlockageInput{
		Title:                  optionalString(cmd, "title", f.title),
		Description:            optionalString(cmd, "description", f.description),
		ExpectedResolutionDate: optionalString(cmd, "expected", f.expected),
		BlocksProgress:         optionalBool(cmd, "blocks-progress", f.blocks),
		AssignedTo:             optionalID(cmd, "assigned", f.assigned),
	}
	if cmd.Flags().Changed("priority") {
		in.Priority = domain.Ptr(domain.BlockagePriority(f.priority))
	}
	if cmd.Flags().Changed("status") {
		in.Status = domain.Ptr(domain.BlockageStatus(f.status))
	}
	return in
}

func blockageAddCmd() *cobra.Command {
	var f blockageFlags
	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Record a blockage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := f.input(cmd)
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				b, err := rt.Projects.AddBlockage(ctx, projectID, in)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				return printJSONOrDetail(b, func() { renderBlockages([]domain.Blockage{b}) })
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func blockageUpdateCmd() *cobra.Command {
	var f blockageFlags
	cmd := &cobra.Command{
		Use:   "update <project-id> <blockage-id>",
		Short: "Update a blockage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, id, err := projectAndItem(args)
			if err != nil {
				return err
			}
			in := f.input(cmd)
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				b, err := rt.Projects.EditBlockage(ctx, projectID, id, in)
				if err != nil {
					return withHint(err, fmt.Sprintf("bzd blockage list %d", projectID))
				}
				return printJSONOrDetail(b, func() { renderBlockages([]domain.Blockage{b}) })
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func blockageResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <project-id> <blockage-id>",
		Short: "Mark a blockage resolved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, id, err := projectAndItem(args)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if _, err := rt.Projects.FetchBlockages(ctx, projectID); err != nil {
					return withHint(err, "bzd project list")
				}
				b, err := rt.Projects.ResolveBlockage(ctx, projectID, id)
				if err != nil {
					return withHint(err, fmt.Sprintf("bzd blockage list %d", projectID))
				}
				return printJSONOrDetail(b, func() {
					fmt.Printf("Blockage #%d resolved at %s\n", b.ID, b.ResolvedAt)
				})
			})
		},
	}
}

func blockageDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <blockage-id>",
		Short: "Delete a blockage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, id, err := projectAndItem(args)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.Projects.DeleteBlockage(ctx, projectID, id); err != nil {
					return withHint(err, fmt.Sprintf("bzd blockage list %d", projectID))
				}
				fmt.Printf("Deleted blockage #%d\n", id)
				return nil
			})
		},
	}
}

func contactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contact",
		Aliases: []string{"contacts"},
		Short:   "Manage the contacts of a project",
	}
	cmd.AddCommand(contactListCmd())
	cmd.AddCommand(contactAddCmd())
	cmd.AddCommand(contactUpdateCmd())
	cmd.AddCommand(contactPrimaryCmd())
	cmd.AddCommand(contactDeleteCmd())
	return cmd
}

func contactListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Projects.FetchContacts(ctx, projectID)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				return printJSONOrDetail(items, func() { renderContacts(items) })
			})
		},
	}
}

type contactFlags struct {
	name, title, email, phone, notes string
	primary, external                bool
}

func (f *contactFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "contact name")
	cmd.Flags().StringVar(&f.title, "title", "", "job title")
	cmd.Flags().StringVar(&f.email, "email", "", "e-mail")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone")
	cmd.Flags().StringVar(&f.notes, "notes", "", "notes")
	cmd.Flags().BoolVar(&f.primary, "primary", false, "primary contact of the project")
	cmd.Flags().BoolVar(&f.external, "external", false, "external to the company")
}

func (f *contactFlags) input(cmd *cobra.Command) domain.ContactInput {
	return domain.ContactInput{
		Name:       optionalString(cmd, "name", f.name),
		Title:      optionalString(cmd, "title", f.title),
		Email:      optionalString(cmd, "email", f.email),
		Phone:      optionalString(cmd, "phone", f.phone),
		Notes:      optionalString(cmd, "notes", f.notes),
		IsPrimary:  optionalBool(cmd, "primary", f.primary),
		IsExternal: optionalBool(cmd, "external", f.external),
	}
}

func contactAddCmd() *cobra.Command {
	var f contactFlags
	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := f.input(cmd)
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Projects.AddContact(ctx, projectID, in)
				if err != nil {
					return withHint(err, "bzd project list")
				}
				return printJSONOrDetail(c, func() { renderContacts([]domain.Contact{c}) })
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func contactUpdateCmd() *cobra.Command {
	var f contactFlags
	cmd := &cobra.Command{
		Use:   "update <project-id> <contact-id>",
		Short: "Update a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, id, err := projectAndItem(args)
			if err != nil {
				return err
			}
			in := f.input(cmd)
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Projects.EditContact(ctx, projectID, id, in)
				if err != nil {
					return withHint(err, fmt.Sprintf("bzd contact list %d", projectID))
				}
				return printJSONOrDetail(c, func() { renderContacts([]domain.Contact{c}) })
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func contactPrimaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "primary <project-id> <contact-id>",
		Short: "Make a contact the project's only primary contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, id, err := projectAndItem(args)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Projects.SetPrimaryContact(ctx, projectID, id)
				if err != nil {
					return withHint(err, fmt.Sprintf("bzd contact list %d", projectID))
				}
				return printJSONOrDetail(c, func() {
					fmt.Printf("%s is now the primary contact of project #%d\n", c.Name, projectID)
				})
			})
		},
	}
}

func contactDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id> <contact-id>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, id, err := projectAndItem(args)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.Projects.DeleteContact(ctx, projectID, id); err != nil {
					return withHint(err, fmt.Sprintf("bzd contact list %d", projectID))
				}
				fmt.Printf("Deleted contact #%d\n", id)
				return nil
			})
		},
	}
}
