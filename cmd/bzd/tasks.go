package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bizdesk/internal/app"
	"bizdesk/internal/calendar"
	"bizdesk/internal/classify"
	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks and the calendar",
	}
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskGetCmd())
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskDeleteCmd())
	cmd.AddCommand(taskCalendarCmd())
	cmd.AddCommand(taskRescheduleCmd())
	cmd.AddCommand(taskDashboardCmd())
	return cmd
}

func parseWall(flag, value string) (domain.WallTime, error) {
	w, err := domain.ParseWallTime(value)
	if err != nil {
		return domain.WallTime{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return w, nil
}

// wallDay is the calendar day of w in loc.
func wallDay(w domain.WallTime, loc *time.Location) time.Time {
	t := w.Time()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func taskListCmd() *cobra.Command {
	var q gateway.TaskQuery
	var from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if q.From, err = parseWall("from", from); err != nil {
				return err
			}
			if q.To, err = parseWall("to", to); err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				page, err := rt.Tasks.Fetch(ctx, q)
				if err != nil {
					return err
				}
				return printJSONOrDetail(page, func() {
					renderTasks(page.Items)
					fmt.Println(mutedStyle.Render(fmt.Sprintf("page %d of %d, %d tasks", page.Page, page.LastPage, page.Total)))
				})
			})
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&q.Type, "type", "", "filter by type")
	cmd.Flags().StringVar(&q.Priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&q.AssignedTo, "assigned", "", "filter by assignee: me or a user id")
	cmd.Flags().Int64Var(&q.ProjectID, "project", 0, "filter by project id")
	cmd.Flags().StringVar(&q.Search, "search", "", "search title and description")
	cmd.Flags().StringVar(&from, "from", "", "earliest start (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "latest start (exclusive)")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 15, "tasks per page")
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				t, err := rt.Tasks.Load(ctx, id)
				if err != nil {
					return withHint(err, "bzd task list")
				}
				return printJSONOrDetail(t, func() { renderTask(t) })
			})
		},
	}
}

type taskFlags struct {
	title, description, typ, status, priority string
	start, end                                string
	allDay                                    bool
	assigned, project                         int64
}

func (f *taskFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "task title")
	cmd.Flags().StringVar(&f.description, "description", "", "task description")
	cmd.Flags().StringVar(&f.typ, "type", "", "call, meeting, email, note or todo")
	cmd.Flags().StringVar(&f.status, "status", "", "not_started, in_progress, completed, deferred or waiting")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, normal, high or urgent")
	cmd.Flags().StringVar(&f.start, "start", "", "start, e.g. 2024-05-15T09:00")
	cmd.Flags().StringVar(&f.end, "end", "", "end, e.g. 2024-05-15T10:00")
	cmd.Flags().BoolVar(&f.allDay, "all-day", false, "all-day task")
	cmd.Flags().Int64Var(&f.assigned, "assigned", 0, "assignee user id (0 clears)")
	cmd.Flags().Int64Var(&f.project, "project", 0, "linked project id (0 clears)")
}

// input collects only the flags that were set.
func (f *taskFlags) input(cmd *cobra.Command) (domain.TaskInput, error) {
	in := domain.TaskInput{
		Title:       optionalString(cmd, "title", f.title),
		Description: optionalString(cmd, "description", f.description),
		AllDay:      optionalBool(cmd, "all-day", f.allDay),
		AssignedTo:  optionalID(cmd, "assigned", f.assigned),
		ProjectID:   optionalID(cmd, "project", f.project),
	}
	if cmd.Flags().Changed("type") {
		in.Type = domain.Ptr(domain.TaskType(f.typ))
	}
	if cmd.Flags().Changed("status") {
		in.Status = domain.Ptr(domain.TaskStatus(f.status))
	}
	if cmd.Flags().Changed("priority") {
		in.Priority = domain.Ptr(domain.TaskPriority(f.priority))
	}
	for _, w := range []struct {
		flag, value string
		dst         **domain.WallTime
	}{{"start", f.start, &in.Start}, {"end", f.end, &in.End}} {
		if !cmd.Flags().Changed(w.flag) {
			continue
		}
		v, err := parseWall(w.flag, w.value)
		if err != nil {
			return domain.TaskInput{}, err
		}
		*w.dst = &v
	}
	return in, nil
}

func taskCreateCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Long:  "Creates a task. The start defaults to the next full hour and may not fall on a past day.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				loc, err := rt.Config.Location()
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
				if in.Start == nil {
					next := time.Now().In(loc).Truncate(time.Hour).Add(time.Hour)
					in.Start = domain.Ptr(domain.NewWallTime(next))
				}
				sched, err := rt.Scheduler(nil)
				if err != nil {
					return err
				}
				if err := sched.CanCreateAt(wallDay(*in.Start, loc)); err != nil {
					return err
				}
				t, err := rt.Tasks.Create(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrDetail(t, func() {
					fmt.Printf("Created task #%d\n", t.ID)
					renderTask(t)
				})
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
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
				t, err := rt.Tasks.Update(ctx, id, in)
				if err != nil {
					return withHint(err, "bzd task list")
				}
				return printJSONOrDetail(t, func() { renderTask(t) })
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status := domain.TaskStatus(args[1])
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				t, err := rt.Tasks.ChangeStatus(ctx, id, status)
				if err != nil {
					return withHint(err, "bzd task list")
				}
				return printJSONOrDetail(t, func() {
					fmt.Printf("Task #%d is now %s\n", t.ID, badge(classify.TaskStatus(t.Status)))
				})
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if !yes && isInteractive() {
				ok, err := promptConfirm(fmt.Sprintf("Delete %d task(s)?", len(ids)))
				if err != nil || !ok {
					return err
				}
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				for _, id := range ids {
					if err := rt.Tasks.Delete(ctx, id); err != nil {
						return withHint(err, "bzd task list")
					}
					fmt.Printf("Deleted task #%d\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func taskCalendarCmd() *cobra.Command {
	var view, date string
	var nav int
	var filters calendar.Filters
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show tasks on a day, week or month calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				sched, err := rt.Scheduler(stderrNotifier())
				if err != nil {
					return err
				}
				if view != "" {
					v, err := calendar.ParseView(view)
					if err != nil {
						return err
					}
					if err := sched.SetView(ctx, v); err != nil {
						return err
					}
				}
				if err := sched.SetFilters(ctx, filters); err != nil {
					return err
				}
				if date != "" {
					day, err := parseWall("date", date)
					if err != nil {
						return err
					}
					if err := sched.GoTo(ctx, day.Time()); err != nil {
						return err
					}
				}
				if nav != 0 {
					if err := sched.Navigate(ctx, nav); err != nil {
						return err
					}
				}
				events := sched.Events()
				if viper.GetBool("json") {
					return printJSON(map[string]any{"window": sched.Window(), "view": sched.View(), "events": events})
				}
				renderCalendar(sched.View(), sched.Window(), events)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "day, week or month (defaults to calendar.default_view)")
	cmd.Flags().StringVar(&date, "date", "", "show the window containing this date")
	cmd.Flags().IntVar(&nav, "move", 0, "move the window by this many views (negative goes back)")
	cmd.Flags().StringVar(&filters.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&filters.Type, "type", "", "filter by type")
	cmd.Flags().StringVar(&filters.AssignedTo, "assigned", "", "filter by assignee: me or a user id")
	return cmd
}

func stderrNotifier() calendar.Notifier {
	return calendar.NotifierFunc(func(level, message string) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", level, message)
	})
}

func renderCalendar(view calendar.View, w calendar.Window, events []calendar.Event) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s view %s", view, w)))
	byDay := map[string][]calendar.Event{}
	for _, ev := range events {
		day := ev.Start[:len("2006-01-02")]
		byDay[day] = append(byDay[day], ev)
	}
	tw := newTable(table.Row{"Day", "Time", "Task", "Status"})
	for _, d := range w.Days() {
		key := d.Time().Format("2006-01-02")
		label := d.Time().Format("Mon 02 Jan")
		for _, ev := range byDay[key] {
			when := "all day"
			if !ev.AllDay {
				when = ev.Start[len("2006-01-02T"):len("2006-01-02T15:04")] + "-" + ev.End[len("2006-01-02T"):len("2006-01-02T15:04")]
			}
			tw.AppendRow(table.Row{label, when, fmt.Sprintf("#%d %s", ev.ID, ev.Title), badge(classify.TaskStatus(ev.Status))})
			label = ""
		}
	}
	tw.Render()
}

func taskRescheduleCmd() *cobra.Command {
	var start, end string
	var allDay bool
	cmd := &cobra.Command{
		Use:   "reschedule <id>",
		Short: "Move a task to a new time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			newStart, err := parseWall("start", start)
			if err != nil {
				return err
			}
			if newStart.IsZero() {
				return fmt.Errorf("--start is required")
			}
			newEnd, err := parseWall("end", end)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				t, err := rt.Tasks.Load(ctx, id)
				if err != nil {
					return withHint(err, "bzd task list")
				}
				sched, err := rt.Scheduler(stderrNotifier())
				if err != nil {
					return err
				}
				if err := sched.SetView(ctx, calendar.ViewDay); err != nil {
					return err
				}
				if err := sched.GoTo(ctx, t.Start.Time()); err != nil {
					return err
				}
				if !cmd.Flags().Changed("all-day") {
					allDay = t.AllDay
				}
				if err := sched.Reschedule(ctx, id, newStart, newEnd, allDay); err != nil {
					return err
				}
				fmt.Printf("Moved task #%d to %s\n", id, newStart)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "new start")
	cmd.Flags().StringVar(&end, "end", "", "new end; omitted keeps the duration")
	cmd.Flags().BoolVar(&allDay, "all-day", false, "make the task all-day")
	return cmd
}

func taskDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Task statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				stats, err := rt.Tasks.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrDetail(stats, func() {
					fmt.Println(titleStyle.Render(fmt.Sprintf("%d tasks, %d overdue, %d due today", stats.Total, stats.Overdue, stats.DueToday)))
					renderCounts("Status", stats.ByStatus, classify.TaskStatus)
					renderCounts("Type", stats.ByType, classify.TaskType)
					renderCounts("Priority", stats.ByPriority, classify.TaskPriority)
					if len(stats.Upcoming) > 0 {
						fmt.Println(titleStyle.Render("Upcoming"))
						renderTasks(stats.Upcoming)
					}
				})
			})
		},
	}
}
