package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mini-task-manager/internal/client"
	"mini-task-manager/internal/model"
	"mini-task-manager/internal/taskquery"
)

var listFlags struct {
	status   string
	priority string
	search   string
	sortBy   string
	order    string
	page     int
	limit    int
	deleted  bool
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		limit := listFlags.limit
		if limit == 0 {
			limit = s.cfg.PageSize
		}
		p := taskquery.Params{
			Status:         model.Status(listFlags.status),
			Priority:       model.Priority(listFlags.priority),
			Search:         listFlags.search,
			SortBy:         taskquery.SortField(listFlags.sortBy),
			SortOrder:      taskquery.SortOrder(listFlags.order),
			Page:           listFlags.page,
			Limit:          limit,
			IncludeDeleted: listFlags.deleted,
		}
		pg, err := s.api.ListTasks(cmd.Context(), p)
		if err != nil {
			return s.check(err)
		}
		printPage(cmd.OutOrStdout(), pg)
		return nil
	},
}

var taskFlags struct {
	title         string
	description   string
	noDescription bool
	status        string
	priority      string
	due           string
	noDue         bool
}

var addCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		in := model.CreateTaskInput{
			Title:    args[0],
			Status:   model.Status(taskFlags.status),
			Priority: model.Priority(taskFlags.priority),
		}
		if cmd.Flags().Changed("description") {
			d := taskFlags.description
			in.Description = &d
		}
		if taskFlags.due != "" {
			due, err := parseDue(taskFlags.due)
			if err != nil {
				return err
			}
			in.DueDate = &due
		}
		t, err := s.api.CreateTask(cmd.Context(), in)
		if err != nil {
			return s.check(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %q\n", t.ID, t.Title)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		in, err := updateInput(cmd.Flags())
		if err != nil {
			return err
		}
		t, err := s.api.UpdateTask(cmd.Context(), args[0], in)
		if err != nil {
			return s.check(err)
		}
		printTask(cmd.OutOrStdout(), t)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		t, err := s.api.DeleteTask(cmd.Context(), args[0])
		if err != nil {
			return s.check(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %q\n", t.ID, t.Title)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore a deleted task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		t, err := s.api.RestoreTask(cmd.Context(), args[0])
		if err != nil {
			return s.check(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s %q\n", t.ID, t.Title)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		t, err := s.api.GetTask(cmd.Context(), args[0])
		if err != nil {
			return s.check(err)
		}
		printTask(cmd.OutOrStdout(), t)
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity ID",
	Short: "Show the activity log of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loggedIn()
		if err != nil {
			return err
		}
		events, err := s.api.TaskActivity(cmd.Context(), args[0])
		if err != nil {
			return s.check(err)
		}
		printEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.status, "status", "", "filter by status (todo, doing, done)")
	f.StringVar(&listFlags.priority, "priority", "", "filter by priority (low, medium, high)")
	f.StringVarP(&listFlags.search, "search", "s", "", "search title and description")
	f.StringVar(&listFlags.sortBy, "sort", "", "sort field (createdAt, dueDate, title, priority, status)")
	f.StringVar(&listFlags.order, "order", "", "sort order (asc, desc)")
	f.IntVar(&listFlags.page, "page", 1, "page number")
	f.IntVar(&listFlags.limit, "limit", 0, "page size (default from config)")
	f.BoolVar(&listFlags.deleted, "deleted", false, "include deleted tasks (admin only)")

	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		f := c.Flags()
		f.StringVarP(&taskFlags.description, "description", "d", "", "task description")
		f.StringVar(&taskFlags.status, "status", "", "status (todo, doing, done)")
		f.StringVar(&taskFlags.priority, "priority", "", "priority (low, medium, high)")
		f.StringVar(&taskFlags.due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	}
	u := updateCmd.Flags()
	u.StringVarP(&taskFlags.title, "title", "t", "", "new title")
	u.BoolVar(&taskFlags.noDescription, "no-description", false, "clear the description")
	u.BoolVar(&taskFlags.noDue, "no-due", false, "clear the due date")
	updateCmd.MarkFlagsMutuallyExclusive("description", "no-description")
	updateCmd.MarkFlagsMutuallyExclusive("due", "no-due")

	rootCmd.AddCommand(listCmd, addCmd, updateCmd, removeCmd, restoreCmd, showCmd, activityCmd)
}

func loggedIn() (*session, error) {
	s, err := loadSession()
	if err != nil {
		return nil, err
	}
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	return s, nil
}

// updateInput sends only the flags that were given. The --no-* flags send
// an explicit null.
func updateInput(f *pflag.FlagSet) (model.UpdateTaskInput, error) {
	var in model.UpdateTaskInput
	if f.Changed("title") {
		t := taskFlags.title
		in.Title = &t
	}
	switch {
	case taskFlags.noDescription:
		in.Description = model.Null[string]()
	case f.Changed("description"):
		in.Description = model.Some(taskFlags.description)
	}
	if f.Changed("status") {
		st := model.Status(taskFlags.status)
		in.Status = &st
	}
	if f.Changed("priority") {
		pr := model.Priority(taskFlags.priority)
		in.Priority = &pr
	}
	switch {
	case taskFlags.noDue:
		in.DueDate = model.Null[time.Time]()
	case f.Changed("due"):
		due, err := parseDue(taskFlags.due)
		if err != nil {
			return in, err
		}
		in.DueDate = model.Some(due)
	}
	if in.IsEmpty() {
		return in, fmt.Errorf("nothing to update, pass at least one field flag")
	}
	return in, nil
}

// parseDue accepts a calendar date, taken as midnight UTC, or a full timestamp.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q, want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func printPage(w io.Writer, pg taskquery.Page) {
	if len(pg.Data) == 0 {
		fmt.Fprintln(w, "no tasks")
	} else {
		rows := make([][]string, 0, len(pg.Data))
		for _, t := range pg.Data {
			title := t.Title
			if t.IsDeleted() {
				title += " (deleted)"
			}
			rows = append(rows, []string{t.ID, string(t.Status), string(t.Priority), dueString(t.DueDate), title})
		}
		tbl := table.New().
			Border(lipgloss.HiddenBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("ID", "STATUS", "PRIORITY", "DUE", "TITLE").
			Rows(rows...)
		fmt.Fprintln(w, tbl.String())
	}
	m := pg.Meta
	fmt.Fprintf(w, "page %d/%d, %d tasks\n", m.Page, max(m.TotalPages, 1), m.Total)
}

func printTask(w io.Writer, t model.Task) {
	fmt.Fprintf(w, "id:          %s\n", t.ID)
	fmt.Fprintf(w, "title:       %s\n", t.Title)
	if t.Description != nil {
		fmt.Fprintf(w, "description: %s\n", *t.Description)
	}
	fmt.Fprintf(w, "status:      %s\n", t.Status)
	fmt.Fprintf(w, "priority:    %s\n", t.Priority)
	if t.DueDate != nil {
		fmt.Fprintf(w, "due:         %s\n", dueString(t.DueDate))
	}
	fmt.Fprintf(w, "updated:     %s\n", t.UpdatedAt.Format(time.RFC3339))
	if t.IsDeleted() {
		fmt.Fprintf(w, "deleted:     %s\n", t.DeletedAt.Format(time.RFC3339))
	}
}

func printEvents(w io.Writer, events []client.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no activity")
		return
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-13s %-4s %s", e.CreatedAt.Format(time.RFC3339), e.Event, e.Platform, e.ActorID)
		if props := compactJSON(e.Properties); props != "" {
			line += "  " + props
		}
		fmt.Fprintln(w, line)
	}
}

func compactJSON(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == "{}" {
		return ""
	}
	return s
}

func dueString(t *time.Time) string {
	if t == nil {
		return "-"
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
