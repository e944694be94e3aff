package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enrollment/internal/repository"
	"github.com/noah-isme/course-enrollment/internal/service"
	"github.com/noah-isme/course-enrollment/pkg/config"
	"github.com/noah-isme/course-enrollment/pkg/database"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

const usage = `usage: enrollctl <command> [flags]

commands:
  offerings          list course offerings and seats available
  progress           print the student progress report
  balance -id N      print a student's balance and enrollments
  check-schema       verify the tables, view and procedure exist`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		color.Red("failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		color.Red("failed to connect to %s/%s: %v", cfg.Database.Server, cfg.Database.Name, err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, db, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		color.Red("%s: %s", os.Args[1], appErrors.FromError(err).Message)
		cancel()
		db.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, db *sqlx.DB, command string, args []string, out io.Writer) error {
	switch command {
	case "offerings":
		offerings, err := service.NewOfferingService(repository.NewOfferingRepository(db), nil, nil).List(ctx)
		if err != nil {
			return err
		}
		renderOfferings(out, offerings)
	case "progress":
		rows, err := service.NewProgressService(repository.NewProgressRepository(db), nil, 0, nil, nil).List(ctx)
		if err != nil {
			return err
		}
		renderProgress(out, rows)
	case "balance":
		fs := flag.NewFlagSet("balance", flag.ContinueOnError)
		fs.SetOutput(out)
		id := fs.Int64("id", 0, "student ID")
		if err := fs.Parse(args); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		if *id <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "-id must be a positive student ID")
		}
		statement, err := service.NewStudentService(repository.NewStudentRepository(db), nil).Statement(ctx, *id)
		if err != nil {
			return err
		}
		renderStatement(out, statement)
	case "check-schema":
		missing, err := repository.NewSchemaRepository(db).Missing(ctx, repository.RequiredSchema)
		if err != nil {
			return err
		}
		renderSchemaCheck(out, missing)
		if len(missing) > 0 {
			return appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("%d required objects missing", len(missing)))
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown command %q\n%s", command, usage))
	}
	return nil
}
