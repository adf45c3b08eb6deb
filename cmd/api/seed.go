package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mini-task-manager/internal/auth"
	"mini-task-manager/internal/model"
	"mini-task-manager/internal/tasks"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace all data with demo users and tasks",
	RunE:  runSeed,
}

type seedTask struct {
	title, description string
	status             model.Status
	priority           model.Priority
	due                string
	admin              bool
}

var seedTasks = []seedTask{
	{"Set up the project repository", "Initialize Git, add .gitignore, README, and configure the module.", model.StatusDone, model.PriorityHigh, "2026-01-15", true},
	{"Design the database schema", "Define the users, tasks and task_events tables.", model.StatusDone, model.PriorityHigh, "2026-01-20", true},
	{"Build the REST API", "Implement CRUD endpoints with validation and error handling.", model.StatusDoing, model.PriorityHigh, "2026-02-01", false},
	{"Create the terminal client", "Build the list, form and filter views with optimistic updates.", model.StatusDoing, model.PriorityMedium, "2026-02-10", false},
	{"Write unit tests for the API", "Cover health check, task creation, list, and validation error endpoints.", model.StatusTodo, model.PriorityMedium, "2026-02-15", true},
	{"Add Docker support", "Write a Dockerfile and a compose file with Postgres.", model.StatusTodo, model.PriorityLow, "", false},
	{"Write the README", "Document setup instructions, architecture overview, and API endpoints.", model.StatusTodo, model.PriorityLow, "", true},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, database, log, err := open()
	if err != nil {
		return err
	}
	defer database.Close()
	ctx := cmd.Context()

	if err := database.Migrate(ctx); err != nil {
		return err
	}
	if err := database.Truncate(ctx, "task_events", "tasks", "users"); err != nil {
		return err
	}

	users := auth.NewUsers(database)
	admin, err := users.Create(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	user, err := users.Create(ctx, cfg.Seed.UserEmail, cfg.Seed.UserPassword, model.RoleUser)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	store := tasks.NewStore(database)
	for _, st := range seedTasks {
		owner := user.Actor()
		if st.admin {
			owner = admin.Actor()
		}
		in := model.CreateTaskInput{
			Title:       st.title,
			Description: &st.description,
			Status:      st.status,
			Priority:    st.priority,
		}
		if st.due != "" {
			d, err := time.Parse(time.DateOnly, st.due)
			if err != nil {
				return err
			}
			in.DueDate = &d
		}
		if _, err := store.Create(ctx, owner, in); err != nil {
			return fmt.Errorf("seed task %q: %w", st.title, err)
		}
	}

	log.Info("seeded database", "tasks", len(seedTasks))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "seeded %d tasks\n", len(seedTasks))
	fmt.Fprintf(out, "admin: %s\n", cfg.Seed.AdminEmail)
	fmt.Fprintf(out, "user:  %s\n", cfg.Seed.UserEmail)
	return nil
}
