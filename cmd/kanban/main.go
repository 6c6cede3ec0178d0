package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/kazz187/kanban/internal/config"
	"github.com/kazz187/kanban/pkg/clog"
)

var (
	app = kingpin.New("kanban", "Single-user kanban board store")

	serveCmd = app.Command("serve", "Serve the board over HTTP")

	exportCmd = app.Command("export", "Write the board and labels as an export file")
	exportOut = exportCmd.Flag("out", "Output path (\"-\" for stdout). Defaults to kanban_export_<date>.json").Short('o').String()

	importCmd    = app.Command("import", "Replace the board and labels with an export file")
	importFile   = importCmd.Arg("file", "Export file").Required().ExistingFile()
	importStrict = importCmd.Flag("strict", "Also check the schema and the board invariants").Bool()

	validateCmd  = app.Command("validate", "Check an export file without importing it")
	validateFile = validateCmd.Arg("file", "Export file").Required().ExistingFile()

	diffCmd  = app.Command("diff", "Show what importing an export file would change")
	diffFile = diffCmd.Arg("file", "Export file").Required().ExistingFile()

	statsCmd   = app.Command("stats", "Show board statistics")
	statsBoard = statsCmd.Flag("board", "Board ID (defaults to the current board)").String()

	tasksCmd      = app.Command("tasks", "List and filter tasks")
	tasksBoard    = tasksCmd.Flag("board", "Board ID (defaults to the current board)").String()
	tasksQuery    = tasksCmd.Flag("query", "Case-insensitive text in title or description").Short('q').String()
	tasksPriority = tasksCmd.Flag("priority", "Priority").Default("all").Enum("all", "high", "medium", "low")
	tasksAssignee = tasksCmd.Flag("assignee", "Assignee").Default("all").String()
	tasksLabels   = tasksCmd.Flag("label", "Label ID or name (repeatable, any matches)").Strings()

	boardsCmd = app.Command("boards", "List boards")

	boardAddCmd   = app.Command("board-add", "Add a board with the default columns")
	boardAddTitle = boardAddCmd.Arg("title", "Board title").Required().String()

	templateCmd  = app.Command("template", "Create boards and labels from a TOML template")
	templateFile = templateCmd.Arg("file", "Template file").Required().ExistingFile()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogger(env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case serveCmd.FullCommand():
		err = runServe(ctx, env)
	case exportCmd.FullCommand():
		err = runExport(ctx, env, *exportOut)
	case importCmd.FullCommand():
		err = runImport(ctx, env, *importFile, *importStrict)
	case validateCmd.FullCommand():
		err = runValidate(*validateFile)
	case diffCmd.FullCommand():
		err = runDiff(ctx, env, *diffFile)
	case statsCmd.FullCommand():
		err = runStats(ctx, env, *statsBoard)
	case tasksCmd.FullCommand():
		err = runTasks(ctx, env, tasksOptions{
			board:    *tasksBoard,
			query:    *tasksQuery,
			priority: *tasksPriority,
			assignee: *tasksAssignee,
			labels:   *tasksLabels,
		})
	case boardsCmd.FullCommand():
		err = runBoards(ctx, env)
	case boardAddCmd.FullCommand():
		err = runBoardAdd(ctx, env, *boardAddTitle)
	case templateCmd.FullCommand():
		err = runTemplate(ctx, env, *templateFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func setupLogger(env *config.Env) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithColor(!color.NoColor), clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}
