package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/conc"

	server "github.com/kazz187/kanban/internal"
	"github.com/kazz187/kanban/internal/board"
	"github.com/kazz187/kanban/internal/config"
	"github.com/kazz187/kanban/internal/duedate"
	"github.com/kazz187/kanban/internal/event"
	"github.com/kazz187/kanban/internal/eventbus"
	"github.com/kazz187/kanban/internal/inbox"
	"github.com/kazz187/kanban/internal/persist"
	"github.com/kazz187/kanban/internal/template"
)

// session is an opened store whose changes are persisted until Close.
type session struct {
	store   *board.Store
	writer  *persist.Writer
	closeFn func() error
}

func openSession(ctx context.Context, env *config.Env, opts ...board.Option) (*session, error) {
	st, closeFn, err := config.OpenStorage(ctx, config.StorageEnvFromEnv(env))
	if err != nil {
		return nil, err
	}
	storageEnv := config.StorageEnvFromEnv(env)
	repo := config.NewRepository(storageEnv, st)
	writer := persist.NewWriter(repo, persist.WithWriteTimeout(storageEnv.WriteTimeout))
	store, err := board.Open(ctx, repo, append(opts, board.WithObserver(writer))...)
	if err != nil {
		writer.Close()
		_ = closeFn()
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	return &session{store: store, writer: writer, closeFn: closeFn}, nil
}

func (s *session) Close() {
	s.writer.Close()
	if err := s.closeFn(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

func runServe(ctx context.Context, env *config.Env) error {
	bus := eventbus.New()
	sess, err := openSession(ctx, env, board.WithObserver(bus))
	if err != nil {
		return err
	}
	defer sess.Close()
	// The first run has nothing on disk yet.
	sess.writer.Enqueue(sess.store.State())

	baseEnv := config.BaseEnvFromEnv(env)
	eventServer := event.NewServer(bus, event.WithAllowedOrigins(baseEnv.AllowedOrigins...))
	srv := server.NewServer(baseEnv, board.NewServer(sess.store), eventServer)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	inboxEnv := config.InboxEnvFromEnv(env)
	if inboxEnv.Dir != "" {
		opts := []inbox.Option{inbox.WithDebounce(inboxEnv.Debounce)}
		if inboxEnv.Strict {
			opts = append(opts, inbox.WithImportOptions(board.WithStrict()))
		}
		watcher := inbox.NewWatcher(inboxEnv.Dir, sess.store, opts...)
		wg.Go(func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("inbox watcher stopped", "error", err)
			}
		})
	}
	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
	return nil
}

func runExport(ctx context.Context, env *config.Env, out string) error {
	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()

	raw, err := sess.store.ExportData()
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	raw = append(raw, '\n')
	if out == "-" {
		_, err := os.Stdout.Write(raw)
		return err
	}
	if out == "" {
		out = board.ExportFileName(time.Now())
	}
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Printf("exported to %s\n", out)
	return nil
}

func runImport(ctx context.Context, env *config.Env, file string, strict bool) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()

	var opts []board.ImportOption
	if strict {
		opts = append(opts, board.WithStrict())
	}
	st, err := sess.store.ImportData(raw, opts...)
	if err != nil {
		return err
	}
	color.Green("imported %d boards, %d tasks, %d labels", len(st.Data.BoardOrder), len(st.Data.Tasks), len(st.Labels))
	return nil
}

func runValidate(file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var problems []error
	if err := board.ValidateExport(raw); err != nil {
		problems = append(problems, err)
	}
	if p, err := board.DecodeExport(raw); err != nil {
		problems = append(problems, err)
	} else if err := p.Data.Validate(); err != nil {
		problems = append(problems, err)
	}
	if len(problems) == 0 {
		color.Green("%s: ok", file)
		return nil
	}
	red := color.New(color.FgRed)
	for _, p := range problems {
		for _, line := range strings.Split(p.Error(), "\n") {
			red.Printf("  %s\n", line)
		}
	}
	return fmt.Errorf("%s is not a valid export", file)
}

func runDiff(ctx context.Context, env *config.Env, file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	incoming, err := board.DecodeExport(raw)
	if err != nil {
		return err
	}
	// Re-encode so that formatting differences do not show up.
	next, err := board.Export(&board.State{Data: incoming.Data, Labels: incoming.Labels})
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()
	current, err := sess.store.ExportData()
	if err != nil {
		return err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current) + "\n"),
		B:        difflib.SplitLines(string(next) + "\n"),
		FromFile: "current",
		ToFile:   file,
		Context:  3,
	})
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Println("no changes")
		return nil
	}
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			color.New(color.Bold).Print(line)
		case strings.HasPrefix(line, "+"):
			color.New(color.FgGreen).Print(line)
		case strings.HasPrefix(line, "-"):
			color.New(color.FgRed).Print(line)
		case strings.HasPrefix(line, "@@"):
			color.New(color.FgCyan).Print(line)
		default:
			fmt.Print(line)
		}
	}
	return nil
}

func selectBoard(st *board.State, id string) (*board.Board, error) {
	if id == "" {
		b, ok := st.CurrentBoard()
		if !ok {
			return nil, errors.New("no board exists")
		}
		return b, nil
	}
	b, ok := st.Data.Boards[id]
	if !ok {
		return nil, fmt.Errorf("board %s not found", id)
	}
	return b, nil
}

func runStats(ctx context.Context, env *config.Env, boardID string) error {
	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()

	st := sess.store.State()
	b, err := selectBoard(st, boardID)
	if err != nil {
		return err
	}
	stats := board.BoardStatistics(st, b, time.Now())

	bold := color.New(color.Bold)
	bold.Printf("%s\n", b.Title)
	rate := color.New(color.FgGreen)
	switch {
	case stats.CompletionRate < 30:
		rate = color.New(color.FgRed)
	case stats.CompletionRate < 70:
		rate = color.New(color.FgYellow)
	}
	fmt.Print("  完了率        ")
	rate.Printf("%d%%", stats.CompletionRate)
	fmt.Printf(" (%d / %d タスク完了)\n", stats.CompletedTasks, stats.TotalTasks)
	fmt.Print("  期限切れ      ")
	warnIfPositive(stats.OverdueTasks)
	fmt.Print("  優先度「高」  ")
	warnIfPositive(stats.HighPriorityTasks)

	if len(stats.TopLabels) > 0 {
		fmt.Println("  ラベル使用状況")
		for _, u := range stats.TopLabels {
			fmt.Printf("    %-12s %d\n", u.Name, u.Count)
		}
	}
	return nil
}

func warnIfPositive(n int) {
	if n > 0 {
		color.New(color.FgRed).Printf("%d\n", n)
		return
	}
	fmt.Printf("%d\n", n)
}

type tasksOptions struct {
	board    string
	query    string
	priority string
	assignee string
	labels   []string
}

func runTasks(ctx context.Context, env *config.Env, opts tasksOptions) error {
	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()

	st := sess.store.State()
	b, err := selectBoard(st, opts.board)
	if err != nil {
		return err
	}

	// Labels may be given by name as well as by id.
	labelIDs := make([]string, 0, len(opts.labels))
	for _, l := range opts.labels {
		i := slices.IndexFunc(st.Labels, func(x board.Label) bool { return x.Name == l })
		if i >= 0 {
			l = st.Labels[i].ID
		}
		labelIDs = append(labelIDs, l)
	}

	tasks := board.FilterTasks(st.Data, b, board.TaskFilter{
		Query:    opts.query,
		Priority: opts.priority,
		Assignee: opts.assignee,
		LabelIDs: labelIDs,
	})
	now := time.Now()
	for _, t := range tasks {
		printTask(st, b, t, now)
	}
	fmt.Printf("検索結果: %d タスク\n", len(tasks))
	return nil
}

func printTask(st *board.State, b *board.Board, t *board.Task, now time.Time) {
	column := t.ColumnID
	if c, ok := b.Columns[t.ColumnID]; ok {
		column = c.Title
	}
	priority := color.New(color.FgWhite)
	switch t.Priority {
	case board.PriorityHigh:
		priority = color.New(color.FgRed)
	case board.PriorityMedium:
		priority = color.New(color.FgYellow)
	case board.PriorityLow:
		priority = color.New(color.FgGreen)
	}

	fmt.Printf("[%s] ", column)
	priority.Printf("%-6s ", t.Priority)
	fmt.Print(t.Title)
	if t.Assignee != nil && *t.Assignee != "" {
		fmt.Printf(" @%s", *t.Assignee)
	}
	if t.DueDate != nil {
		due := duedate.Format(t.DueDate)
		switch {
		case duedate.IsOverdue(t.DueDate, now):
			color.New(color.FgRed).Printf(" 期限: %s", due)
		case duedate.IsToday(t.DueDate, now):
			color.New(color.FgYellow).Printf(" 期限: %s", due)
		case duedate.IsUpcoming(t.DueDate, now, duedate.DefaultUpcomingDays):
			color.New(color.FgCyan).Printf(" 期限: %s", due)
		default:
			fmt.Printf(" 期限: %s", due)
		}
	}
	for _, l := range board.ResolveLabels(st.Labels, t.Labels) {
		fmt.Printf(" #%s", l.Name)
	}
	color.New(color.Faint).Printf(" (作成: %s)", t.CreatedTime().Local().Format(time.DateOnly))
	fmt.Println()
}

func runBoards(ctx context.Context, env *config.Env) error {
	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()

	st := sess.store.State()
	for _, id := range st.Data.BoardOrder {
		b, ok := st.Data.Boards[id]
		if !ok {
			fmt.Printf("  %s  %s\n", id, color.RedString("(missing board)"))
			continue
		}
		marker := " "
		if id == st.CurrentBoardID {
			marker = color.GreenString("*")
		}
		count := len(board.BoardTasks(st.Data, b))
		fmt.Printf("%s %s  %s (%d tasks)\n", marker, id, b.Title, count)
	}
	return nil
}

func runBoardAdd(ctx context.Context, env *config.Env, title string) error {
	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()

	st := sess.store.AddBoard(title)
	fmt.Println(st.Data.BoardOrder[len(st.Data.BoardOrder)-1])
	return nil
}

func runTemplate(ctx context.Context, env *config.Env, file string) error {
	tmpl, err := template.Load(file)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer sess.Close()

	st := template.Apply(sess.store, tmpl)
	color.Green("applied %s: %d boards, %d labels", file, len(st.Data.BoardOrder), len(st.Labels))
	return nil
}
